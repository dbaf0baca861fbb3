// Package track models a single GPS track with lazy synchronization
// against the collection hosting it, plus the comparison and merge logic
// between tracks and whole collections.
package track

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wrohdewald/gpxity/internal/geo"
	"github.com/wrohdewald/gpxity/internal/gpx"
)

// Track is a single GPS track: geometry plus metadata.
//
// While a track is attached to a Collection, every change is by default
// written through immediately. Some collections can write a single
// changed attribute cheaply, others always rewrite the whole track; the
// track picks per flush. Use BatchChanges to hold updates back and flush
// once.
//
// Data is loaded from the collection lazily: a track coming out of
// Collection.List carries only header fields, the first access to
// anything else triggers one full read.
//
// All points are rounded to 6 decimal digits when they enter the track.
//
// A Track is not safe for concurrent use.
type Track struct {
	collection Collection
	ident      string
	loaded     bool

	decoupled int
	batch     int
	dirty     []string
	// header names the fields already known from a listing while the the
	// track is not fully loaded. Reading those does not trigger a load.
	header map[string]bool

	title       string
	description string
	category    string
	public      bool
	keywords    []string
	ids         []string
	seq         *geo.Sequence

	cachedDistance *float64
	similarities   map[*Track]float64
}

// New creates a bare, unattached track.
func New() *Track {
	return &Track{
		category:     DefaultCategory(),
		seq:          &geo.Sequence{},
		header:       make(map[string]bool),
		similarities: make(map[*Track]float64),
	}
}

// Collection returns the collection this track lives in, nil if the track
// was constructed in memory. It is set when a collection adapter adopts
// the track; a track cannot silently migrate, use Clone to detach.
func (t *Track) Collection() Collection { return t.collection }

// ID returns the identity of this track within its collection. Empty
// means the track was not yet persisted anywhere.
func (t *Track) ID() string { return t.ident }

// Loaded reports whether the full data was fetched from the collection.
func (t *Track) Loaded() bool { return t.loaded }

// String returns a unique printable identifier, usable as foreign id.
func (t *Track) String() string {
	if t.collection == nil {
		title := t.title
		if title == "" {
			title = "untitled"
		}
		return fmt.Sprintf("unsaved: %q", title)
	}
	ident := t.ident
	if ident == "" {
		ident = "unsaved"
	}
	return Identifier(t.collection, ident)
}

// Decoupled runs fn with collection synchronization disabled: writes do
// not mark the track dirty or trigger a write-back, reads do not trigger
// a full load. Collection adapters use this while populating a track from
// their own read results. Scopes nest.
func (t *Track) Decoupled(fn func() error) error {
	t.decoupled++
	defer func() { t.decoupled-- }()
	return fn()
}

// BatchChanges runs fn with immediate write-back suppressed and flushes
// exactly once afterwards. The flush is attempted even when fn fails.
// Scopes nest; only the outermost one flushes.
func (t *Track) BatchChanges(fn func() error) error {
	t.batch++
	err := fn()
	t.batch--
	if flushErr := t.flush(); err == nil {
		err = flushErr
	}
	return err
}

// SetCollection couples the track to a collection. To be used only by
// collection implementations, inside a Decoupled scope.
func (t *Track) SetCollection(c Collection) { t.collection = c }

// MarkHeader records which fields a listing already populated, so reading
// them does not trigger a full load. To be used only by collection
// implementations.
func (t *Track) MarkHeader(fields ...string) {
	for _, field := range fields {
		t.header[field] = true
	}
}

// Dirty returns the names of fields with pending writes.
func (t *Track) Dirty() []string {
	result := make([]string, len(t.dirty))
	copy(result, t.dirty)
	return result
}

func (t *Track) isDecoupled() bool {
	return t.collection == nil || t.decoupled > 0
}

// loadFull fetches the full track from the collection if that was not
// done yet. It is a no-op for unattached, unidentified, decoupled or
// already loaded tracks and for collections that cannot read.
func (t *Track) loadFull() error {
	if t.loaded || t.collection == nil || t.ident == "" || t.decoupled > 0 {
		return nil
	}
	if !t.collection.Capabilities().ReadFull {
		return nil
	}
	err := t.Decoupled(func() error {
		return t.collection.ReadFull(t)
	})
	if err != nil {
		return err
	}
	t.loaded = true
	t.addToIDs(t.ident)
	t.header = make(map[string]bool)
	return nil
}

// markDirty registers a pending write for field and, outside of batch and
// decoupled scopes, flushes right away.
func (t *Track) markDirty(field string) error {
	delete(t.header, field)
	if field == FieldGpx {
		t.cachedDistance = nil
		t.invalidateSimilarity()
	}
	if t.isDecoupled() {
		return nil
	}
	t.dirty = append(t.dirty, field)
	if t.batch == 0 {
		return t.flush()
	}
	return nil
}

// flush writes all pending changes into the collection. If every dirty
// field has a field-level writer, those are used; otherwise, and always
// for geometry changes, the whole track is rewritten once. On failure the
// unsatisfied dirty markers stay, so the next mutating call retries them.
func (t *Track) flush() error {
	if t.collection == nil {
		t.dirty = nil
		return nil
	}
	if len(t.dirty) == 0 || t.decoupled > 0 || t.batch > 0 {
		return nil
	}
	caps := t.collection.Capabilities()
	needFull := false
	for _, field := range t.dirty {
		if field == FieldGpx || !caps.CanWriteField(field) {
			needFull = true
			break
		}
	}
	t.decoupled++
	defer func() { t.decoupled-- }()
	if needFull {
		if !caps.WriteFull {
			return &ErrUnsupportedOperation{Collection: t.collection.Identifier(), Op: "write"}
		}
		newIdent, err := t.collection.WriteFull(t, t.ident)
		if err != nil {
			return err
		}
		t.ident = newIdent
		t.addToIDs(newIdent)
		t.dirty = nil
		return nil
	}
	for len(t.dirty) > 0 {
		if err := t.collection.WriteField(t, t.dirty[0]); err != nil {
			return err
		}
		// fields already written are not retried by a later flush
		t.dirty = t.dirty[1:]
	}
	return nil
}

// SetID changes the identity of the track within its collection.
//
// For a track never saved before this is a plain assignment; afterwards
// it delegates to the collection's rename operation. Assigning an id to an
// unattached track and clearing the id of an identified track are both
// illegal.
func (t *Track) SetID(value string) error {
	if value != "" && strings.Contains(value, "/") {
		return &ErrValidation{Field: "id", Reason: "/ not allowed"}
	}
	if t.decoupled > 0 {
		t.ident = value
		t.addToIDs(value)
		return nil
	}
	if t.ident == value {
		return nil
	}
	if t.collection == nil {
		return fmt.Errorf("%w: track %s has no collection", ErrIllegalIdentityChange, t)
	}
	if t.ident == "" {
		t.ident = value
		t.addToIDs(value)
		return nil
	}
	if value == "" {
		return fmt.Errorf("%w: cannot clear id of saved track %s", ErrIllegalIdentityChange, t)
	}
	if !t.collection.Capabilities().Rename {
		return &ErrUnsupportedOperation{Collection: t.collection.Identifier(), Op: "rename"}
	}
	return t.Decoupled(func() error {
		return t.collection.Rename(t, value)
	})
}

// addToIDs remembers the current full identifier as youngest foreign id.
func (t *Track) addToIDs(ident string) {
	if t.collection == nil || ident == "" {
		return
	}
	t.ids = CleanIDs(append([]string{Identifier(t.collection, ident)}, t.ids...))
}

// Title returns the title, loading the track if needed.
func (t *Track) Title() (string, error) {
	if !t.loaded && t.header[FieldTitle] {
		return t.title, nil
	}
	if err := t.loadFull(); err != nil {
		return "", err
	}
	return t.title, nil
}

// SetTitle changes the title.
func (t *Track) SetTitle(value string) error {
	if value == t.title && (t.loaded || t.isDecoupled()) {
		return nil
	}
	if err := t.loadFull(); err != nil {
		return err
	}
	if value == t.title {
		return nil
	}
	t.title = value
	return t.markDirty(FieldTitle)
}

// Description returns the description, loading the track if needed.
func (t *Track) Description() (string, error) {
	if !t.loaded && t.header[FieldDescription] {
		return t.description, nil
	}
	if err := t.loadFull(); err != nil {
		return "", err
	}
	return t.description, nil
}

// SetDescription changes the description.
func (t *Track) SetDescription(value string) error {
	if value == t.description && (t.loaded || t.isDecoupled()) {
		return nil
	}
	if err := t.loadFull(); err != nil {
		return err
	}
	if value == t.description {
		return nil
	}
	t.description = value
	return t.markDirty(FieldDescription)
}

// Category returns the category, loading the track if needed.
func (t *Track) Category() (string, error) {
	if !t.loaded && t.header[FieldCategory] {
		return t.category, nil
	}
	if err := t.loadFull(); err != nil {
		return "", err
	}
	return t.category, nil
}

// SetCategory changes the category. An empty value resets to the default.
// Values outside Categories are rejected without mutating anything.
func (t *Track) SetCategory(value string) error {
	if value == "" {
		value = DefaultCategory()
	}
	if !LegalCategory(value) {
		return &ErrValidation{Field: FieldCategory, Reason: fmt.Sprintf("category %q is not known", value)}
	}
	if value == t.category {
		return nil
	}
	if err := t.loadFull(); err != nil {
		return err
	}
	if value == t.category {
		return nil
	}
	t.category = value
	return t.markDirty(FieldCategory)
}

// Public reports the visibility: false means only the account holder can
// see the track.
func (t *Track) Public() (bool, error) {
	if !t.loaded && t.header[FieldPublic] {
		return t.public, nil
	}
	if err := t.loadFull(); err != nil {
		return false, err
	}
	return t.public, nil
}

// SetPublic changes the visibility.
func (t *Track) SetPublic(value bool) error {
	if value == t.public {
		return nil
	}
	if err := t.loadFull(); err != nil {
		return err
	}
	if value == t.public {
		return nil
	}
	t.public = value
	return t.markDirty(FieldPublic)
}

// Keywords returns a sorted copy of the plain keywords. The reserved
// encodings for category, visibility and ids never show up here.
func (t *Track) Keywords() ([]string, error) {
	if !t.loaded && t.header[FieldKeywords] {
		return append([]string(nil), t.keywords...), nil
	}
	if err := t.loadFull(); err != nil {
		return nil, err
	}
	return append([]string(nil), t.keywords...), nil
}

// SetKeywords replaces all keywords. Duplicates are rejected.
func (t *Track) SetKeywords(values ...string) error {
	seen := make(map[string]bool)
	for _, keyword := range values {
		if err := CheckKeyword(keyword); err != nil {
			return err
		}
		if seen[keyword] {
			return &ErrValidation{Field: FieldKeywords, Reason: fmt.Sprintf("duplicate keyword %q", keyword)}
		}
		seen[keyword] = true
	}
	if err := t.loadFull(); err != nil {
		return err
	}
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	if equalStrings(sorted, t.keywords) {
		return nil
	}
	t.keywords = sorted
	return t.markDirty(FieldKeywords)
}

// AddKeywords adds keywords. Keywords already present are silently
// ignored.
func (t *Track) AddKeywords(values ...string) error {
	for _, keyword := range values {
		if err := CheckKeyword(keyword); err != nil {
			return err
		}
	}
	if err := t.loadFull(); err != nil {
		return err
	}
	current := make(map[string]bool, len(t.keywords))
	for _, keyword := range t.keywords {
		current[keyword] = true
	}
	added := false
	merged := append([]string(nil), t.keywords...)
	for _, keyword := range values {
		if !current[keyword] {
			current[keyword] = true
			merged = append(merged, keyword)
			added = true
		}
	}
	if !added {
		return nil
	}
	sort.Strings(merged)
	t.keywords = merged
	return t.markDirty(FieldKeywords)
}

// RemoveKeywords removes keywords. Keywords not present are silently
// ignored.
func (t *Track) RemoveKeywords(values ...string) error {
	if err := t.loadFull(); err != nil {
		return err
	}
	drop := make(map[string]bool, len(values))
	for _, keyword := range values {
		drop[keyword] = true
	}
	var remaining []string
	removed := false
	for _, keyword := range t.keywords {
		if drop[keyword] {
			removed = true
			continue
		}
		remaining = append(remaining, keyword)
	}
	if !removed {
		return nil
	}
	t.keywords = remaining
	return t.markDirty(FieldKeywords)
}

// IDs returns the foreign ids of this track, youngest first, at most 5.
func (t *Track) IDs() ([]string, error) {
	if !t.loaded && t.header["ids"] {
		return append([]string(nil), t.ids...), nil
	}
	if err := t.loadFull(); err != nil {
		return nil, err
	}
	return append([]string(nil), t.ids...), nil
}

// SetIDs replaces the foreign id list. The list is cleaned: exact
// duplicates collapsed, one id per directory URL, at most 5 entries.
func (t *Track) SetIDs(values []string) error {
	cleaned := CleanIDs(values)
	if equalStrings(cleaned, t.ids) {
		return nil
	}
	if err := t.loadFull(); err != nil {
		return err
	}
	t.ids = cleaned
	return t.markDirty(FieldGpx)
}

// Sequence returns the geometry. Callers changing it directly must call
// Rewrite afterwards.
func (t *Track) Sequence() (*geo.Sequence, error) {
	if err := t.loadFull(); err != nil {
		return nil, err
	}
	return t.seq, nil
}

// Rewrite marks the whole geometry changed. Call this after manipulating
// the Sequence directly.
func (t *Track) Rewrite() error {
	if err := t.loadFull(); err != nil {
		return err
	}
	return t.markDirty(FieldGpx)
}

// AddPoints adds points to the last segment.
func (t *Track) AddPoints(points []geo.Point) error {
	if len(points) == 0 {
		return nil
	}
	if err := t.loadFull(); err != nil {
		return err
	}
	t.seq.AddPoints(points)
	return t.markDirty(FieldGpx)
}

// AdjustTime shifts all point and waypoint times.
func (t *Track) AdjustTime(delta time.Duration) error {
	if err := t.loadFull(); err != nil {
		return err
	}
	t.seq.AdjustTime(delta)
	return t.markDirty(FieldGpx)
}

// FirstTime returns the time of the first point, or zero.
func (t *Track) FirstTime() (time.Time, error) {
	if !t.loaded && t.header["time"] {
		return t.seq.FirstTime(), nil
	}
	if err := t.loadFull(); err != nil {
		return time.Time{}, err
	}
	return t.seq.FirstTime(), nil
}

// LastTime returns the time of the last point, or zero.
func (t *Track) LastTime() (time.Time, error) {
	if err := t.loadFull(); err != nil {
		return time.Time{}, err
	}
	return t.seq.LastTime(), nil
}

// Distance returns the track length in km. The value is cached until the
// geometry changes.
func (t *Track) Distance() (float64, error) {
	if t.cachedDistance != nil {
		return *t.cachedDistance, nil
	}
	if err := t.loadFull(); err != nil {
		return 0, err
	}
	distance := t.seq.Distance()
	t.cachedDistance = &distance
	return distance, nil
}

// Remove deletes this track in its collection and detaches it, clearing
// the identity.
func (t *Track) Remove() error {
	if t.collection == nil {
		return fmt.Errorf("%w: removing %s", ErrNotAttached, t)
	}
	if !t.collection.Capabilities().Remove {
		return &ErrUnsupportedOperation{Collection: t.collection.Identifier(), Op: "remove"}
	}
	if t.ident != "" {
		if err := t.collection.Remove(t.ident); err != nil {
			return err
		}
	}
	t.collection = nil
	t.ident = ""
	return nil
}

// Clone returns a new unattached track with the same content and no
// shared mutable state. The identifier of the original, if any, becomes
// the youngest foreign id of the clone.
func (t *Track) Clone() (*Track, error) {
	if err := t.loadFull(); err != nil {
		return nil, err
	}
	result := New()
	result.title = t.title
	result.description = t.description
	result.category = t.category
	result.public = t.public
	result.keywords = append([]string(nil), t.keywords...)
	result.seq = t.seq.Clone()
	ids := append([]string(nil), t.ids...)
	if t.collection != nil && t.ident != "" {
		ids = append([]string{Identifier(t.collection, t.ident)}, ids...)
	}
	result.ids = CleanIDs(ids)
	return result, nil
}

// Key builds a string for speed optimized equality checks. Not guaranteed
// exact, but sufficiently safe: two tracks with equal keys count as
// identical.
func (t *Track) Key() (string, error) {
	if err := t.loadFull(); err != nil {
		return "", err
	}
	keywords := make([]string, len(t.keywords))
	for i, keyword := range t.keywords {
		keywords[i] = strings.ToLower(keyword)
	}
	sort.Strings(keywords)
	return fmt.Sprintf(
		"title:%s description:%s keywords:%s category:%s public:%t last_time:%s angle:%v points:%d",
		t.title, t.description, strings.Join(keywords, ","), t.category,
		t.public, t.seq.LastTime().UTC().Format(time.RFC3339), t.seq.Angle(), t.seq.PointCount()), nil
}

// Xml returns the persisted GPX representation. The keyword string is
// derived through the attribute codec on the fly, so the encoded form
// never leaks into the in-memory state.
func (t *Track) Xml() ([]byte, error) {
	if err := t.loadFull(); err != nil {
		return nil, err
	}
	doc := &gpx.Document{
		Name:        t.title,
		Description: t.description,
		Keywords: EncodeKeywords(Attributes{
			Category: t.category,
			Public:   t.public,
			IDs:      t.ids,
			Keywords: t.keywords,
		}),
		Sequence: *t.seq,
	}
	return gpx.Marshal(doc)
}

// ParseGPX populates the track from a GPX document, for collection
// adapters reading from storage. Title and description from the document
// win over current values, visibility is or-ed, keywords are replaced if
// the document has any. The track counts as fully loaded afterwards.
func (t *Track) ParseGPX(data []byte) error {
	return t.Decoupled(func() error {
		doc, err := gpx.Parse(data)
		if err != nil {
			return err
		}
		attr, err := DecodeKeywords(doc.Keywords)
		if err != nil {
			return err
		}
		if doc.Name != "" {
			t.title = doc.Name
		}
		if doc.Description != "" {
			t.description = doc.Description
		}
		if doc.Keywords != "" {
			t.category = attr.Category
			t.public = t.public || attr.Public
			t.keywords = attr.Keywords
			t.ids = CleanIDs(attr.IDs)
		}
		t.seq = &doc.Sequence
		t.cachedDistance = nil
		t.invalidateSimilarity()
		t.loaded = true
		t.header = make(map[string]bool)
		return nil
	})
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
