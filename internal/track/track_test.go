package track

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrohdewald/gpxity/internal/geo"
)

// fakeCollection counts every storage operation so tests can pin down
// exactly when the track talks to its collection.
type fakeCollection struct {
	name    string
	caps    Capabilities
	stored  map[string][]byte
	nextID  int
	reads   int
	fulls   int
	fields  int
	renames int
	// failing makes the next writes fail until the counter is used up.
	failing int
}

func newFakeCollection(caps Capabilities) *fakeCollection {
	return &fakeCollection{name: "fake", caps: caps, stored: map[string][]byte{}}
}

func (f *fakeCollection) Identifier() string         { return "fake:" + f.name }
func (f *fakeCollection) Capabilities() Capabilities { return f.caps }

func (f *fakeCollection) List() ([]*Track, error) {
	var result []*Track
	for ident := range f.stored {
		t := New()
		_ = t.Decoupled(func() error {
			t.SetCollection(f)
			return t.SetID(ident)
		})
		result = append(result, t)
	}
	return result, nil
}

func (f *fakeCollection) ReadFull(t *Track) error {
	f.reads++
	data, ok := f.stored[t.ID()]
	if !ok {
		return fmt.Errorf("no track %q", t.ID())
	}
	return t.ParseGPX(data)
}

func (f *fakeCollection) WriteFull(t *Track, ident string) (string, error) {
	f.fulls++
	if f.failing > 0 {
		f.failing--
		return "", fmt.Errorf("write refused")
	}
	if ident == "" {
		f.nextID++
		ident = fmt.Sprintf("t%d", f.nextID)
	}
	data, err := t.Xml()
	if err != nil {
		return "", err
	}
	f.stored[ident] = data
	return ident, nil
}

func (f *fakeCollection) WriteField(t *Track, field string) error {
	f.fields++
	if f.failing > 0 {
		f.failing--
		return fmt.Errorf("write refused")
	}
	if _, ok := f.stored[t.ID()]; !ok {
		return fmt.Errorf("no track %q", t.ID())
	}
	data, err := t.Xml()
	if err != nil {
		return err
	}
	f.stored[t.ID()] = data
	return nil
}

func (f *fakeCollection) Remove(ident string) error {
	if _, ok := f.stored[ident]; !ok {
		return fmt.Errorf("no track %q", ident)
	}
	delete(f.stored, ident)
	return nil
}

func (f *fakeCollection) Rename(t *Track, newIdent string) error {
	f.renames++
	data, ok := f.stored[t.ID()]
	if !ok {
		return fmt.Errorf("no track %q", t.ID())
	}
	delete(f.stored, t.ID())
	f.stored[newIdent] = data
	return t.SetID(newIdent)
}

var _ Collection = (*fakeCollection)(nil)

// testPoints builds n points one minute and roughly 100 m apart.
func testPoints(n int) []geo.Point {
	start := time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)
	points := make([]geo.Point, n)
	for i := range points {
		points[i] = geo.Point{
			Lat:  50.0 + float64(i)*0.001,
			Lon:  6.0,
			Ele:  100,
			Time: start.Add(time.Duration(i) * time.Minute),
		}
	}
	return points
}

func newTestTrack(t *testing.T, n int) *Track {
	track := New()
	require.NoError(t, track.SetTitle("morning ride"))
	require.NoError(t, track.AddPoints(testPoints(n)))
	return track
}

func addTestTrack(t *testing.T, f *fakeCollection, n int) *Track {
	hosted, err := Add(f, newTestTrack(t, n))
	require.NoError(t, err)
	return hosted
}

func TestAddAssignsIdentity(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	hosted := addTestTrack(t, f, 10)

	assert.Equal(t, "t1", hosted.ID())
	assert.Equal(t, 1, f.fulls)
	assert.True(t, hosted.Loaded())
	assert.Empty(t, hosted.Dirty())

	ids, err := hosted.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"fake:fake/t1"}, ids)
}

func TestLazyLoad(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	addTestTrack(t, f, 10)

	listed, err := f.List()
	require.NoError(t, err)
	require.Len(t, listed, 1)
	fresh := listed[0]
	f.reads = 0

	assert.False(t, fresh.Loaded())

	title, err := fresh.Title()
	require.NoError(t, err)
	assert.Equal(t, "morning ride", title)
	assert.Equal(t, 1, f.reads)
	assert.True(t, fresh.Loaded())

	// further reads are answered from memory
	_, err = fresh.Distance()
	require.NoError(t, err)
	_, err = fresh.Keywords()
	require.NoError(t, err)
	assert.Equal(t, 1, f.reads)
}

func TestHeaderFieldsNeedNoLoad(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	addTestTrack(t, f, 10)

	listed, err := f.List()
	require.NoError(t, err)
	fresh := listed[0]
	f.reads = 0

	require.NoError(t, fresh.Decoupled(func() error {
		return fresh.SetTitle("from listing")
	}))
	fresh.MarkHeader(FieldTitle)

	title, err := fresh.Title()
	require.NoError(t, err)
	assert.Equal(t, "from listing", title)
	assert.Equal(t, 0, f.reads)
	assert.False(t, fresh.Loaded())
}

func TestSetterWritesThrough(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	hosted := addTestTrack(t, f, 10)
	f.fulls, f.fields = 0, 0

	require.NoError(t, hosted.SetTitle("evening ride"))
	assert.Equal(t, 1, f.fields)
	assert.Equal(t, 0, f.fulls)
	assert.Empty(t, hosted.Dirty())

	// unchanged value writes nothing
	require.NoError(t, hosted.SetTitle("evening ride"))
	assert.Equal(t, 1, f.fields)
}

func TestFallbackToFullWrite(t *testing.T) {
	caps := FullCapabilities()
	caps.WriteFields = map[string]bool{}
	f := newFakeCollection(caps)
	hosted := addTestTrack(t, f, 10)
	f.fulls = 0

	require.NoError(t, hosted.SetTitle("evening ride"))
	assert.Equal(t, 1, f.fulls)
	assert.Equal(t, 0, f.fields)
}

func TestGeometryChangeForcesFullWrite(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	hosted := addTestTrack(t, f, 10)
	f.fulls, f.fields = 0, 0

	require.NoError(t, hosted.AddPoints(testPoints(1)[:1]))
	assert.Equal(t, 1, f.fulls)
	assert.Equal(t, 0, f.fields)
}

func TestBatchChangesFlushOnce(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	hosted := addTestTrack(t, f, 10)
	f.fulls, f.fields = 0, 0

	err := hosted.BatchChanges(func() error {
		if err := hosted.SetTitle("a"); err != nil {
			return err
		}
		if err := hosted.SetDescription("b"); err != nil {
			return err
		}
		return hosted.SetPublic(true)
	})
	require.NoError(t, err)

	// three field-level writers exist, so three single writes in one flush
	assert.Equal(t, 3, f.fields)
	assert.Equal(t, 0, f.fulls)
	assert.Empty(t, hosted.Dirty())
}

func TestBatchChangesNest(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	hosted := addTestTrack(t, f, 10)
	f.fulls, f.fields = 0, 0

	err := hosted.BatchChanges(func() error {
		return hosted.BatchChanges(func() error {
			if err := hosted.SetTitle("a"); err != nil {
				return err
			}
			// the inner scope must not flush
			assert.Equal(t, 0, f.fields)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.fields)
}

func TestBatchChangesFlushAfterError(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	hosted := addTestTrack(t, f, 10)
	f.fields = 0

	failure := fmt.Errorf("user code failed")
	err := hosted.BatchChanges(func() error {
		if err := hosted.SetTitle("a"); err != nil {
			return err
		}
		return failure
	})
	assert.Equal(t, failure, err)
	// the change made before the error still went out
	assert.Equal(t, 1, f.fields)
	assert.Empty(t, hosted.Dirty())
}

func TestFailedFlushRetries(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	hosted := addTestTrack(t, f, 10)
	f.failing = 1

	err := hosted.SetTitle("a")
	require.Error(t, err)
	assert.Equal(t, []string{FieldTitle}, hosted.Dirty())

	// the next mutation flushes the leftover marker too
	require.NoError(t, hosted.SetPublic(true))
	assert.Empty(t, hosted.Dirty())
}

func TestDecoupledSuppressesWrites(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	hosted := addTestTrack(t, f, 10)
	f.fulls, f.fields = 0, 0

	err := hosted.Decoupled(func() error {
		return hosted.Decoupled(func() error {
			return hosted.SetTitle("silent")
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 0, f.fields)
	assert.Equal(t, 0, f.fulls)
	assert.Empty(t, hosted.Dirty())

	// synchronization is restored after the outermost scope
	require.NoError(t, hosted.SetDescription("loud"))
	assert.Equal(t, 1, f.fields)
}

func TestSetIDUnattached(t *testing.T) {
	track := newTestTrack(t, 5)
	err := track.SetID("x")
	assert.ErrorIs(t, err, ErrIllegalIdentityChange)
}

func TestSetIDRejectsSlash(t *testing.T) {
	track := newTestTrack(t, 5)
	var invalid *ErrValidation
	assert.ErrorAs(t, track.SetID("a/b"), &invalid)
}

func TestSetIDFirstAssignment(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	track := newTestTrack(t, 5)
	require.NoError(t, track.Decoupled(func() error {
		track.SetCollection(f)
		return nil
	}))

	require.NoError(t, track.SetID("chosen"))
	assert.Equal(t, "chosen", track.ID())
	assert.Equal(t, 0, f.renames)
}

func TestSetIDRenames(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	hosted := addTestTrack(t, f, 5)

	require.NoError(t, hosted.SetID("better-name"))
	assert.Equal(t, "better-name", hosted.ID())
	assert.Equal(t, 1, f.renames)
	_, ok := f.stored["t1"]
	assert.False(t, ok)
	_, ok = f.stored["better-name"]
	assert.True(t, ok)
}

func TestSetIDCannotClear(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	hosted := addTestTrack(t, f, 5)
	assert.ErrorIs(t, hosted.SetID(""), ErrIllegalIdentityChange)
}

func TestRemove(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	hosted := addTestTrack(t, f, 5)

	require.NoError(t, hosted.Remove())
	assert.Empty(t, f.stored)
	assert.Nil(t, hosted.Collection())
	assert.Equal(t, "", hosted.ID())

	assert.ErrorIs(t, hosted.Remove(), ErrNotAttached)
}

func TestClone(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	hosted := addTestTrack(t, f, 5)
	require.NoError(t, hosted.AddKeywords("alps"))

	clone, err := hosted.Clone()
	require.NoError(t, err)

	assert.Nil(t, clone.Collection())
	assert.Equal(t, "", clone.ID())
	keywords, err := clone.Keywords()
	require.NoError(t, err)
	assert.Equal(t, []string{"alps"}, keywords)

	ids, err := clone.IDs()
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	assert.Equal(t, "fake:fake/t1", ids[0])

	// no shared geometry
	require.NoError(t, clone.AddPoints(testPoints(1)[:1]))
	seq, err := hosted.Sequence()
	require.NoError(t, err)
	assert.Equal(t, 5, seq.PointCount())
}

func TestAddClonesForeignTrack(t *testing.T) {
	source := newFakeCollection(FullCapabilities())
	target := newFakeCollection(FullCapabilities())
	target.name = "other"
	hosted := addTestTrack(t, source, 5)

	copied, err := Add(target, hosted)
	require.NoError(t, err)

	// the original stays put
	assert.Same(t, source, hosted.Collection().(*fakeCollection))
	assert.NotSame(t, hosted, copied)
	assert.Same(t, target, copied.Collection().(*fakeCollection))
	ids, err := copied.IDs()
	require.NoError(t, err)
	assert.Contains(t, ids, "fake:fake/t1")
}

func TestKeywordSetters(t *testing.T) {
	track := newTestTrack(t, 3)

	require.NoError(t, track.SetKeywords("zoo", "alpha"))
	keywords, err := track.Keywords()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zoo"}, keywords)

	var invalid *ErrValidation
	assert.ErrorAs(t, track.SetKeywords("dup", "dup"), &invalid)
	// rejected call changed nothing
	keywords, err = track.Keywords()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zoo"}, keywords)

	require.NoError(t, track.AddKeywords("beta", "alpha"))
	keywords, err = track.Keywords()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "zoo"}, keywords)

	require.NoError(t, track.RemoveKeywords("zoo", "unknown"))
	keywords, err = track.Keywords()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, keywords)

	var reserved *ErrReservedKeyword
	assert.ErrorAs(t, track.AddKeywords("Id:x"), &reserved)
}

func TestSetCategoryValidates(t *testing.T) {
	track := newTestTrack(t, 3)

	var invalid *ErrValidation
	assert.ErrorAs(t, track.SetCategory("Flying carpet"), &invalid)
	category, err := track.Category()
	require.NoError(t, err)
	assert.Equal(t, DefaultCategory(), category)

	require.NoError(t, track.SetCategory("Hiking"))
	require.NoError(t, track.SetCategory(""))
	category, err = track.Category()
	require.NoError(t, err)
	assert.Equal(t, DefaultCategory(), category)
}

func TestPersistedRoundTrip(t *testing.T) {
	f := newFakeCollection(FullCapabilities())
	original := newTestTrack(t, 8)
	require.NoError(t, original.SetDescription("a longer story"))
	require.NoError(t, original.SetCategory("Hiking"))
	require.NoError(t, original.SetPublic(true))
	require.NoError(t, original.SetKeywords("alps", "summer"))

	hosted, err := Add(f, original)
	require.NoError(t, err)

	listed, err := f.List()
	require.NoError(t, err)
	require.Len(t, listed, 1)
	fresh := listed[0]

	title, err := fresh.Title()
	require.NoError(t, err)
	assert.Equal(t, "morning ride", title)
	description, err := fresh.Description()
	require.NoError(t, err)
	assert.Equal(t, "a longer story", description)
	category, err := fresh.Category()
	require.NoError(t, err)
	assert.Equal(t, "Hiking", category)
	public, err := fresh.Public()
	require.NoError(t, err)
	assert.True(t, public)
	keywords, err := fresh.Keywords()
	require.NoError(t, err)
	assert.Equal(t, []string{"alps", "summer"}, keywords)

	hostedKey, err := hosted.Key()
	require.NoError(t, err)
	freshKey, err := fresh.Key()
	require.NoError(t, err)
	assert.Equal(t, hostedKey, freshKey)
}

func TestDistanceCaching(t *testing.T) {
	track := newTestTrack(t, 10)
	first, err := track.Distance()
	require.NoError(t, err)
	assert.Greater(t, first, 0.0)

	require.NoError(t, track.AddPoints(testPoints(20)[10:]))
	second, err := track.Distance()
	require.NoError(t, err)
	assert.Greater(t, second, first)
}
