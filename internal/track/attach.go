package track

// Add saves a track into a collection and returns the hosted track.
//
// A track already living in a different collection is cloned first, so
// tracks never silently migrate; the original stays where it is. The
// returned track is attached and carries the identity the collection
// assigned.
func Add(c Collection, t *Track) (*Track, error) {
	if !c.Capabilities().WriteFull {
		return nil, &ErrUnsupportedOperation{Collection: c.Identifier(), Op: "write"}
	}
	hosted := t
	if t.collection != nil && t.collection != c {
		clone, err := t.Clone()
		if err != nil {
			return nil, err
		}
		hosted = clone
	}
	err := hosted.Decoupled(func() error {
		hosted.collection = c
		ident, err := c.WriteFull(hosted, hosted.ident)
		if err != nil {
			return err
		}
		hosted.ident = ident
		hosted.addToIDs(ident)
		return nil
	})
	if err != nil {
		hosted.collection = nil
		hosted.ident = ""
		return nil, err
	}
	hosted.loaded = true
	hosted.dirty = nil
	return hosted, nil
}
