package collection

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrohdewald/gpxity/internal/config"
	"github.com/wrohdewald/gpxity/internal/geo"
	"github.com/wrohdewald/gpxity/internal/track"
)

func samplePoints(n int) []geo.Point {
	start := time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)
	points := make([]geo.Point, n)
	for i := range points {
		points[i] = geo.Point{
			Lat:  50.0 + float64(i)*0.001,
			Lon:  6.0,
			Time: start.Add(time.Duration(i) * time.Minute),
		}
	}
	return points
}

func sampleTrack(t *testing.T, title string) *track.Track {
	result := track.New()
	require.NoError(t, result.SetTitle(title))
	require.NoError(t, result.SetDescription("a test track"))
	require.NoError(t, result.SetCategory("Hiking"))
	require.NoError(t, result.SetPublic(true))
	require.NoError(t, result.SetKeywords("alps", "summer"))
	require.NoError(t, result.AddPoints(samplePoints(10)))
	return result
}

// exerciseCollection runs the shared adapter contract.
func exerciseCollection(t *testing.T, c track.Collection) {
	hosted, err := track.Add(c, sampleTrack(t, "morning ride"))
	require.NoError(t, err)
	require.NotEmpty(t, hosted.ID())

	listed, err := c.List()
	require.NoError(t, err)
	require.Len(t, listed, 1)
	fresh := listed[0]
	assert.Equal(t, hosted.ID(), fresh.ID())

	title, err := fresh.Title()
	require.NoError(t, err)
	assert.Equal(t, "morning ride", title)
	category, err := fresh.Category()
	require.NoError(t, err)
	assert.Equal(t, "Hiking", category)
	public, err := fresh.Public()
	require.NoError(t, err)
	assert.True(t, public)
	keywords, err := fresh.Keywords()
	require.NoError(t, err)
	assert.Equal(t, []string{"alps", "summer"}, keywords)
	distance, err := fresh.Distance()
	require.NoError(t, err)
	assert.Greater(t, distance, 0.9)

	// metadata write-back survives a fresh read
	require.NoError(t, fresh.SetTitle("renamed ride"))
	listed, err = c.List()
	require.NoError(t, err)
	require.Len(t, listed, 1)
	title, err = listed[0].Title()
	require.NoError(t, err)
	assert.Equal(t, "renamed ride", title)

	// rename
	if c.Capabilities().Rename {
		require.NoError(t, fresh.SetID("better-name"))
		assert.Equal(t, "better-name", fresh.ID())
		listed, err = c.List()
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "better-name", listed[0].ID())
	}

	// remove
	require.NoError(t, fresh.Remove())
	listed, err = c.List()
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestMemoryCollection(t *testing.T) {
	exerciseCollection(t, NewMemory("test"))
}

func TestMemoryListingIsLazy(t *testing.T) {
	m := NewMemory("test")
	_, err := track.Add(m, sampleTrack(t, "one"))
	require.NoError(t, err)

	listed, err := m.List()
	require.NoError(t, err)
	require.Len(t, listed, 1)
	m.Reads = 0

	// header fields come from the listing
	title, err := listed[0].Title()
	require.NoError(t, err)
	assert.Equal(t, "one", title)
	assert.Equal(t, 0, m.Reads)

	// geometry needs the one full read
	_, err = listed[0].Distance()
	require.NoError(t, err)
	assert.Equal(t, 1, m.Reads)
}

func TestDirectoryCollection(t *testing.T) {
	dir, err := NewDirectory(t.TempDir())
	require.NoError(t, err)
	exerciseCollection(t, dir)
}

func TestDirectoryIdentFromTitle(t *testing.T) {
	dir, err := NewDirectory(t.TempDir())
	require.NoError(t, err)

	hosted, err := track.Add(dir, sampleTrack(t, "Tour de Ruhr"))
	require.NoError(t, err)
	assert.Equal(t, "Tour de Ruhr", hosted.ID())

	// a second track with the same title gets a suffix
	second, err := track.Add(dir, sampleTrack(t, "Tour de Ruhr"))
	require.NoError(t, err)
	assert.Equal(t, "Tour de Ruhr.1", second.ID())
}

func TestDirectoryFilesOnDisk(t *testing.T) {
	base := t.TempDir()
	dir, err := NewDirectory(base)
	require.NoError(t, err)

	hosted, err := track.Add(dir, sampleTrack(t, "on disk"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(base, hosted.ID()+".gpx"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<gpx")
	assert.Contains(t, string(data), "Category:Hiking")

	// a rewrite leaves no backup file behind
	require.NoError(t, hosted.SetTitle("rewritten"))
	_, err = os.Stat(filepath.Join(base, hosted.ID()+".gpx.old"))
	assert.True(t, os.IsNotExist(err))
}

func TestSQLiteCollection(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "tracks.db"))
	require.NoError(t, err)
	defer db.Close()
	exerciseCollection(t, db)
}

func TestSQLiteFieldWrite(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "tracks.db"))
	require.NoError(t, err)
	defer db.Close()

	hosted, err := track.Add(db, sampleTrack(t, "one"))
	require.NoError(t, err)

	// a single metadata change goes through the column writer and must
	// be visible in listings and full reads alike
	require.NoError(t, hosted.SetPublic(false))

	listed, err := db.List()
	require.NoError(t, err)
	require.Len(t, listed, 1)
	public, err := listed[0].Public()
	require.NoError(t, err)
	assert.False(t, public)

	distance, err := listed[0].Distance()
	require.NoError(t, err)
	assert.Greater(t, distance, 0.0)
	public, err = listed[0].Public()
	require.NoError(t, err)
	assert.False(t, public)
}

func TestRegistry(t *testing.T) {
	RegisterBuiltins()
	names := Registered()
	assert.Contains(t, names, "memory")
	assert.Contains(t, names, "directory")
	assert.Contains(t, names, "sqlite")
	assert.Contains(t, names, "client")

	c, err := Open(config.Account{Name: "m", Backend: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "memory:m", c.Identifier())

	_, err = Open(config.Account{Name: "x", Backend: "nosuch"})
	assert.Error(t, err)
}
