package track

import (
	"fmt"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/wrohdewald/gpxity/internal/geo"
)

// similarThreshold is how many identical positions two tracks must share
// to count as similar without being identical.
const similarThreshold = 100

// Flag classifies one kind of difference between two tracks.
type Flag byte

// Difference flags.
const (
	FlagTitle       Flag = 'T'
	FlagDescription Flag = 'D'
	FlagCategory    Flag = 'C'
	FlagStatus      Flag = 'S'
	FlagKeywords    Flag = 'K'
	FlagPositions   Flag = 'P'
	FlagTimeOffset  Flag = 'Z'
)

// Source is one side of a comparison: a single track, a whole collection,
// or a group of either. It is resolved into a flat track list exactly
// once.
type Source interface {
	tracks() ([]*Track, error)
}

type trackSource struct{ t *Track }

func (s trackSource) tracks() ([]*Track, error) { return []*Track{s.t}, nil }

type collectionSource struct{ c Collection }

func (s collectionSource) tracks() ([]*Track, error) { return s.c.List() }

type groupSource struct{ sources []Source }

func (s groupSource) tracks() ([]*Track, error) {
	var result []*Track
	for _, source := range s.sources {
		part, err := source.tracks()
		if err != nil {
			return nil, err
		}
		result = append(result, part...)
	}
	return result, nil
}

// From makes a Source out of a single track.
func From(t *Track) Source { return trackSource{t: t} }

// FromCollection makes a Source out of all tracks of a collection.
func FromCollection(c Collection) Source { return collectionSource{c: c} }

// Group combines sources into one.
func Group(sources ...Source) Source { return groupSource{sources: sources} }

// Tracks resolves a source into its flat track list.
func Tracks(s Source) ([]*Track, error) { return s.tracks() }

// Pair holds two similar tracks and their detailed differences.
type Pair struct {
	Left        *Track
	Right       *Track
	Differences map[Flag][]string
}

// Diff is the result of comparing two sides.
type Diff struct {
	// Identical tracks appear on both sides with equal keys.
	Identical []*Track
	// Similar pairs share at least 100 positions without being identical.
	Similar []*Pair
	// LeftOnly and RightOnly are the tracks without a match on the other
	// side.
	LeftOnly  []*Track
	RightOnly []*Track
}

// DiffOptions control Compare.
type DiffOptions struct {
	// Verbose lists every differing point pair in position reports.
	Verbose bool
}

// Compare matches the tracks of both sides. Tracks with equal keys are
// identical; tracks sharing at least 100 positions are similar and get a
// detailed Pair comparison; the rest is exclusive to its side.
//
// When a track could match more than one candidate, the one with the
// largest position intersection wins. This is a deliberate, documented
// rule; plain iteration order would be arbitrary.
func Compare(left, right Source, opts DiffOptions) (*Diff, error) {
	leftTracks, err := left.tracks()
	if err != nil {
		return nil, err
	}
	rightTracks, err := right.tracks()
	if err != nil {
		return nil, err
	}
	leftKeys, leftPositions, err := sideIndex(leftTracks)
	if err != nil {
		return nil, err
	}
	rightKeys, rightPositions, err := sideIndex(rightTracks)
	if err != nil {
		return nil, err
	}

	result := &Diff{}
	matchedRight := make([]bool, len(rightTracks))
	for i, leftTrack := range leftTracks {
		matched := false
		for j := range rightTracks {
			if !matchedRight[j] && leftKeys[i] == rightKeys[j] {
				result.Identical = append(result.Identical, leftTrack)
				matchedRight[j] = true
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		bestScore, bestIdx := 0, -1
		for j := range rightTracks {
			if matchedRight[j] {
				continue
			}
			score := intersectionSize(leftPositions[i], rightPositions[j])
			if score > bestScore {
				bestScore, bestIdx = score, j
			}
		}
		if bestIdx >= 0 && bestScore >= similarThreshold {
			pair, err := newPair(leftTrack, rightTracks[bestIdx], opts.Verbose)
			if err != nil {
				return nil, err
			}
			result.Similar = append(result.Similar, pair)
			matchedRight[bestIdx] = true
			continue
		}
		result.LeftOnly = append(result.LeftOnly, leftTrack)
	}
	for j, rightTrack := range rightTracks {
		if !matchedRight[j] {
			result.RightOnly = append(result.RightOnly, rightTrack)
		}
	}
	return result, nil
}

func sideIndex(tracks []*Track) ([]string, []map[position]bool, error) {
	keys := make([]string, len(tracks))
	positions := make([]map[position]bool, len(tracks))
	for i, t := range tracks {
		key, err := t.Key()
		if err != nil {
			return nil, nil, err
		}
		keys[i] = key
		seq, err := t.Sequence()
		if err != nil {
			return nil, nil, err
		}
		positions[i] = positionSet(seq.AllPoints())
	}
	return keys, positions, nil
}

func intersectionSize(a, b map[position]bool) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	count := 0
	for pos := range a {
		if b[pos] {
			count++
		}
	}
	return count
}

// newPair computes the detailed comparison of two similar tracks.
func newPair(left, right *Track, verbose bool) (*Pair, error) {
	pair := &Pair{Left: left, Right: right, Differences: make(map[Flag][]string)}
	if err := pair.compareMetadata(); err != nil {
		return nil, err
	}
	if err := pair.comparePoints(verbose); err != nil {
		return nil, err
	}
	return pair, nil
}

func (p *Pair) add(flag Flag, format string, args ...any) {
	p.Differences[flag] = append(p.Differences[flag], fmt.Sprintf(format, args...))
}

func (p *Pair) compareMetadata() error {
	compare := func(flag Flag, get func(*Track) (string, error)) error {
		leftValue, err := get(p.Left)
		if err != nil {
			return err
		}
		rightValue, err := get(p.Right)
		if err != nil {
			return err
		}
		if leftValue != rightValue {
			p.add(flag, "%q <> %q", leftValue, rightValue)
		}
		return nil
	}
	if err := compare(FlagTitle, (*Track).Title); err != nil {
		return err
	}
	if err := compare(FlagDescription, (*Track).Description); err != nil {
		return err
	}
	if err := compare(FlagCategory, (*Track).Category); err != nil {
		return err
	}
	if err := compare(FlagKeywords, func(t *Track) (string, error) {
		keywords, err := t.Keywords()
		if err != nil {
			return "", err
		}
		return strings.Join(keywords, ", "), nil
	}); err != nil {
		return err
	}
	return compare(FlagStatus, func(t *Track) (string, error) {
		public, err := t.Public()
		if err != nil {
			return "", err
		}
		if public {
			return "public", nil
		}
		return "private", nil
	})
}

// pointKeys maps every point to a comparable opaque key (position plus
// elevation, no time) and collects the times separately.
func pointKeys(points []geo.Point) ([]string, []time.Time) {
	keys := make([]string, len(points))
	times := make([]time.Time, len(points))
	epoch := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, point := range points {
		keys[i] = fmt.Sprintf("%v|%v|%v", point.Lat, point.Lon, point.Ele)
		if point.Time.IsZero() {
			times[i] = epoch
		} else {
			times[i] = point.Time
		}
	}
	return keys, times
}

// prettyTimes shortens the second time to time-of-day if it falls on the
// same date as the first.
func prettyTimes(t1, t2 time.Time) (string, string) {
	first := t1.Format("2006-01-02 15:04:05")
	if t1.Year() == t2.Year() && t1.YearDay() == t2.YearDay() {
		return first, t2.Format("15:04:05")
	}
	return first, t2.Format("2006-01-02 15:04:05")
}

func (p *Pair) comparePoints(verbose bool) error {
	leftSeq, err := p.Left.Sequence()
	if err != nil {
		return err
	}
	rightSeq, err := p.Right.Sequence()
	if err != nil {
		return err
	}
	leftPoints := leftSeq.AllPoints()
	rightPoints := rightSeq.AllPoints()
	leftKeys, leftTimes := pointKeys(leftPoints)
	rightKeys, rightTimes := pointKeys(rightPoints)

	matcher := difflib.NewMatcher(leftKeys, rightKeys)
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'd':
			from, to := prettyTimes(leftTimes[op.I1], leftTimes[op.I2-1])
			p.add(FlagPositions, "points between %s and %s are missing on the right", from, to)
		case 'i':
			from, to := prettyTimes(rightTimes[op.J1], rightTimes[op.J2-1])
			p.add(FlagPositions, "points between %s and %s are missing on the left", from, to)
		case 'r':
			p.compareReplaced(
				leftPoints[op.I1:op.I2], rightPoints[op.J1:op.J2],
				leftTimes[op.I1:op.I2], rightTimes[op.J1:op.J2], verbose)
		}
	}

	if offset, ok := leftSeq.TimeOffset(rightSeq); ok {
		p.add(FlagTimeOffset, "time offset: %s", offset)
	}
	return nil
}

// compareReplaced classifies one replace run: same positions with a
// uniform time shift, same positions with differing shifts, or really
// different points.
func (p *Pair) compareReplaced(left, right []geo.Point, leftTimes, rightTimes []time.Time, verbose bool) {
	samePositions := len(left) == len(right)
	if samePositions {
		for i := range left {
			if left[i].Lat != right[i].Lat || left[i].Lon != right[i].Lon {
				samePositions = false
				break
			}
		}
	}
	if samePositions {
		uniform := true
		offset := rightTimes[0].Sub(leftTimes[0])
		for i := range left {
			if rightTimes[i].Sub(leftTimes[i]) != offset {
				uniform = false
				break
			}
		}
		if !uniform {
			p.add(FlagTimeOffset, "points have different times")
		} else if offset != 0 {
			from, to := prettyTimes(leftTimes[0], leftTimes[len(leftTimes)-1])
			p.add(FlagTimeOffset, "%d points between %s and %s on the left are %s later on the right",
				len(left), from, to, offset)
		}
		// identical positions with identical times: only the elevation
		// differs, ignore that
		return
	}
	minTime := leftTimes[0]
	if rightTimes[0].Before(minTime) {
		minTime = rightTimes[0]
	}
	maxTime := leftTimes[len(leftTimes)-1]
	if rightTimes[len(rightTimes)-1].After(maxTime) {
		maxTime = rightTimes[len(rightTimes)-1]
	}
	from, to := prettyTimes(minTime, maxTime)
	p.add(FlagPositions, "points between %s and %s are different", from, to)
	if verbose {
		for i := 0; i < len(left) && i < len(right); i++ {
			p.add(FlagPositions, "  < %8.6f %8.6f %5.2f %s", left[i].Lat, left[i].Lon, left[i].Ele, leftTimes[i])
			p.add(FlagPositions, "  > %8.6f %8.6f %5.2f %s", right[i].Lat, right[i].Lon, right[i].Ele, rightTimes[i])
		}
	}
}
