package track

import (
	"fmt"
	"strings"
)

// MergeOptions control Track.Merge.
type MergeOptions struct {
	// Remove the other track after a successful merge.
	Remove bool
	// DryRun produces the same messages without applying anything.
	DryRun bool
	// Partial also allows merging when one track is a contiguous
	// sub-sequence of the other, as happens after geofencing.
	Partial bool
}

// CanMerge checks whether other may be merged into this track: the point
// sequences are identical, or other carries only waypoints, or - with
// partial - one sequence contains the other. Returns the offset of the
// shorter sequence within the longer one, or ErrCannotMerge.
func (t *Track) CanMerge(other *Track, partial bool) (int, error) {
	if t == other || (t.collection != nil && t.collection == other.collection && t.ident != "" && t.ident == other.ident) {
		return 0, &ErrCannotMerge{Reason: fmt.Sprintf("tracks are identical: %s", t)}
	}
	mySeq, err := t.Sequence()
	if err != nil {
		return 0, err
	}
	otherSeq, err := other.Sequence()
	if err != nil {
		return 0, err
	}
	if otherSeq.PointCount() == 0 && len(otherSeq.Waypoints) > 0 {
		return 0, nil
	}
	if partial {
		if offset, ok := mySeq.Index(otherSeq, 4); ok {
			return offset, nil
		}
		if offset, ok := otherSeq.Index(mySeq, 4); ok {
			return offset, nil
		}
	} else if mySeq.PointsEqual(otherSeq, 4) {
		return 0, nil
	}
	return 0, &ErrCannotMerge{Reason: fmt.Sprintf(
		"%s with %d points does not fit into %s with %d points",
		other, otherSeq.PointCount(), t, mySeq.PointCount())}
}

// Merge merges other into this track inside one batch scope. Geometry,
// waypoints and metadata are combined with defined precedence; every step
// yields a human readable message, identically so in dry-run mode.
func (t *Track) Merge(other *Track, opts MergeOptions) ([]string, error) {
	offset, err := t.CanMerge(other, opts.Partial)
	if err != nil {
		return nil, err
	}
	// Display strings before anything changes, so dry-run and real run
	// report the same names even when the title transfers.
	myName, otherName := t.String(), other.String()
	var msg []string
	err = t.BatchChanges(func() error {
		part, err := t.mergeSequences(other, opts.DryRun, offset)
		if err != nil {
			return err
		}
		msg = append(msg, part...)
		part, err = t.mergeWaypoints(other, opts.DryRun)
		if err != nil {
			return err
		}
		msg = append(msg, part...)
		part, err = t.mergeMetadata(other, opts.DryRun)
		if err != nil {
			return err
		}
		msg = append(msg, part...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(msg) > 0 {
		for i := range msg {
			msg[i] = "     " + msg[i]
		}
		head := "merge"
		if opts.Remove {
			head = "merge and remove"
		}
		msg = append([]string{
			fmt.Sprintf("%s %s", head, otherName),
			fmt.Sprintf("  into %s", myName),
		}, msg...)
	}
	if opts.Remove {
		if len(msg) <= 2 {
			msg = append(msg, fmt.Sprintf("removed exact duplicate %s: it was identical with %s", otherName, myName))
		}
		if !opts.DryRun {
			if err := other.Remove(); err != nil {
				return msg, err
			}
		}
	}
	return msg, nil
}

// mergeSequences takes the longer geometry and back-fills missing point
// times at the aligned offset.
func (t *Track) mergeSequences(other *Track, dryRun bool, offset int) ([]string, error) {
	var msg []string
	mySeq, err := t.Sequence()
	if err != nil {
		return nil, err
	}
	otherSeq, err := other.Sequence()
	if err != nil {
		return nil, err
	}
	if otherSeq.PointCount() > mySeq.PointCount() {
		if !dryRun {
			clone := otherSeq.Clone()
			mySeq.Segments = clone.Segments
			if err := t.Rewrite(); err != nil {
				return nil, err
			}
		}
		msg = append(msg, fmt.Sprintf("%s got entire geometry from %s", t, other))
	}
	otherPoints := otherSeq.AllPoints()
	changed := 0
	idx := 0
	skip := offset
	for s := range mySeq.Segments {
		points := mySeq.Segments[s].Points
		for p := range points {
			if skip > 0 {
				skip--
				continue
			}
			if idx >= len(otherPoints) {
				break
			}
			if points[p].Time.IsZero() && !otherPoints[idx].Time.IsZero() {
				if !dryRun {
					points[p].Time = otherPoints[idx].Time
				}
				changed++
			}
			idx++
		}
	}
	if changed > 0 {
		if !dryRun {
			if err := t.Rewrite(); err != nil {
				return nil, err
			}
		}
		msg = append(msg, fmt.Sprintf("copied times for %d out of %d points", changed, mySeq.PointCount()))
	}
	return msg, nil
}

// mergeWaypoints appends waypoints from other at positions this track does
// not have yet.
func (t *Track) mergeWaypoints(other *Track, dryRun bool) ([]string, error) {
	mySeq, err := t.Sequence()
	if err != nil {
		return nil, err
	}
	otherSeq, err := other.Sequence()
	if err != nil {
		return nil, err
	}
	have := make(map[position]bool, len(mySeq.Waypoints))
	for _, wpt := range mySeq.Waypoints {
		have[position{lat: wpt.Lat, lon: wpt.Lon}] = true
	}
	merged := 0
	for _, wpt := range otherSeq.Waypoints {
		pos := position{lat: wpt.Lat, lon: wpt.Lon}
		if have[pos] {
			continue
		}
		have[pos] = true
		merged++
		if !dryRun {
			mySeq.Waypoints = append(mySeq.Waypoints, wpt)
		}
	}
	if merged == 0 {
		return nil, nil
	}
	if !dryRun {
		if err := t.Rewrite(); err != nil {
			return nil, err
		}
	}
	return []string{fmt.Sprintf("%s got %d waypoints from %s", t, merged, other)}, nil
}

// hasDefaultTitle tries to detect a title some collection assigned
// automatically: empty, "<category> track", or digits and punctuation
// only.
func (t *Track) hasDefaultTitle() (bool, error) {
	title, err := t.Title()
	if err != nil {
		return false, err
	}
	if title == "" {
		return true, nil
	}
	category, err := t.Category()
	if err != nil {
		return false, err
	}
	if title == category+" track" {
		return true, nil
	}
	for _, r := range title {
		if !strings.ContainsRune("0123456789 :-_", r) {
			return false, nil
		}
	}
	return true, nil
}

func (t *Track) mergeMetadata(other *Track, dryRun bool) ([]string, error) {
	var msg []string
	myName, otherName := t.String(), other.String()
	myDefault, err := t.hasDefaultTitle()
	if err != nil {
		return nil, err
	}
	otherDefault, err := other.hasDefaultTitle()
	if err != nil {
		return nil, err
	}
	if !otherDefault && myDefault {
		otherTitle, err := other.Title()
		if err != nil {
			return nil, err
		}
		myTitle, _ := t.Title()
		msg = append(msg, fmt.Sprintf("title: %q -> %q", myTitle, otherTitle))
		if !dryRun {
			if err := t.SetTitle(otherTitle); err != nil {
				return nil, err
			}
		}
	}
	otherDescription, err := other.Description()
	if err != nil {
		return nil, err
	}
	myDescription, err := t.Description()
	if err != nil {
		return nil, err
	}
	if otherDescription != "" && otherDescription != myDescription {
		msg = append(msg, fmt.Sprintf("additional description: %s", otherDescription))
		if !dryRun {
			if err := t.SetDescription(myDescription + "\n" + otherDescription); err != nil {
				return nil, err
			}
		}
	}
	otherPublic, err := other.Public()
	if err != nil {
		return nil, err
	}
	myPublic, err := t.Public()
	if err != nil {
		return nil, err
	}
	if otherPublic && !myPublic {
		msg = append(msg, "visibility: private -> public")
		if !dryRun {
			if err := t.SetPublic(true); err != nil {
				return nil, err
			}
		}
	}
	otherCategory, err := other.Category()
	if err != nil {
		return nil, err
	}
	myCategory, err := t.Category()
	if err != nil {
		return nil, err
	}
	if otherCategory != myCategory {
		// never silently overridden, only reported
		msg = append(msg, fmt.Sprintf("category: %s=%s wins over %s=%s", otherName, otherCategory, myName, myCategory))
	}
	otherKeywords, err := other.Keywords()
	if err != nil {
		return nil, err
	}
	myKeywords, err := t.Keywords()
	if err != nil {
		return nil, err
	}
	current := make(map[string]bool, len(myKeywords))
	for _, keyword := range myKeywords {
		current[keyword] = true
	}
	var fresh []string
	for _, keyword := range otherKeywords {
		if !current[keyword] {
			fresh = append(fresh, keyword)
		}
	}
	if len(fresh) > 0 {
		msg = append(msg, fmt.Sprintf("new keywords: %s", strings.Join(fresh, ",")))
		if !dryRun {
			if err := t.AddKeywords(fresh...); err != nil {
				return nil, err
			}
		}
	}
	otherIDs, err := other.IDs()
	if err != nil {
		return nil, err
	}
	myIDs, err := t.IDs()
	if err != nil {
		return nil, err
	}
	combined := CleanIDs(append(append([]string(nil), myIDs...), otherIDs...))
	if !equalStrings(combined, myIDs) {
		known := make(map[string]bool, len(myIDs))
		for _, id := range myIDs {
			known[id] = true
		}
		var freshIDs []string
		for _, id := range combined {
			if !known[id] {
				freshIDs = append(freshIDs, id)
			}
		}
		msg = append(msg, fmt.Sprintf("new ids: %s", strings.Join(freshIDs, ",")))
		if !dryRun {
			if err := t.SetIDs(combined); err != nil {
				return nil, err
			}
		}
	}
	return msg, nil
}
