package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrohdewald/gpxity/internal/geo"
)

// zigzag returns points no simplification can collapse: every second
// point swings far off the direct line.
func zigzag(n int, baseLat float64) []geo.Point {
	points := make([]geo.Point, n)
	for i := range points {
		lon := 6.0 + float64(i)*0.01
		lat := baseLat
		if i%2 == 1 {
			lat += 0.01
		}
		points[i] = geo.Point{Lat: lat, Lon: lon}
	}
	return points
}

func TestSimilarityIdenticalGeometry(t *testing.T) {
	a := trackWithPoints(t, "a", zigzag(20, 50))
	b := trackWithPoints(t, "b", zigzag(20, 50))

	score, err := a.Similarity(b)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestSimilarityDisjointGeometry(t *testing.T) {
	a := trackWithPoints(t, "a", zigzag(20, 50))
	b := trackWithPoints(t, "b", zigzag(20, 40))

	score, err := a.Similarity(b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestSimilarityPartialOverlap(t *testing.T) {
	a := trackWithPoints(t, "a", zigzag(20, 50))
	b := trackWithPoints(t, "b", zigzag(20, 50)[:10])

	score, err := a.Similarity(b)
	require.NoError(t, err)
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 1.0)
}

func TestSimilarityIsSymmetric(t *testing.T) {
	a := trackWithPoints(t, "a", zigzag(20, 50))
	b := trackWithPoints(t, "b", zigzag(20, 50)[:10])

	ab, err := a.Similarity(b)
	require.NoError(t, err)
	ba, err := b.Similarity(a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestSimilarityCacheInvalidation(t *testing.T) {
	a := trackWithPoints(t, "a", zigzag(20, 50))
	b := trackWithPoints(t, "b", zigzag(20, 50))

	score, err := a.Similarity(b)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	// a geometry change must drop the cached score on both tracks
	require.NoError(t, b.AddPoints(zigzag(20, 40)))
	score, err = a.Similarity(b)
	require.NoError(t, err)
	assert.Less(t, score, 1.0)
	score, err = b.Similarity(a)
	require.NoError(t, err)
	assert.Less(t, score, 1.0)
}

func TestSimilarityCacheInvalidationOnParse(t *testing.T) {
	a := trackWithPoints(t, "a", zigzag(20, 50))
	b := trackWithPoints(t, "b", zigzag(20, 50))

	score, err := a.Similarity(b)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	// re-reading a document replaces the geometry wholesale and must
	// drop the cached scores just like an edit does
	elsewhere := trackWithPoints(t, "b", zigzag(20, 40))
	data, err := elsewhere.Xml()
	require.NoError(t, err)
	require.NoError(t, b.ParseGPX(data))

	score, err = a.Similarity(b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
	score, err = b.Similarity(a)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestSimilarityIgnoresSmallDeviation(t *testing.T) {
	// positions are compared after rounding to 3 digits, roughly 100 m
	a := trackWithPoints(t, "a", zigzag(20, 50))
	moved := zigzag(20, 50)
	for i := range moved {
		moved[i].Lat += 0.0001
	}
	b := trackWithPoints(t, "b", moved)

	score, err := a.Similarity(b)
	require.NoError(t, err)
	assert.Greater(t, score, 0.8)
}

func TestSimilarityEmptyTrack(t *testing.T) {
	a := trackWithPoints(t, "a", zigzag(20, 50))
	b := New()

	score, err := a.Similarity(b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}
