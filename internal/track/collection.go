package track

// Field names used for dirty markers and field-level writes.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldPublic      = "public"
	FieldKeywords    = "keywords"
	// FieldGpx marks a bulk geometry change and always forces a full
	// rewrite.
	FieldGpx = "gpx"
)

// Capabilities is the declared set of operations a collection implements.
// Every implementation states this directly, there is no runtime
// introspection. An absent WriteFields entry means changes to that field
// fall back to a full rewrite.
type Capabilities struct {
	List        bool
	ReadFull    bool
	WriteFull   bool
	Remove      bool
	Rename      bool
	WriteFields map[string]bool
}

// CanWriteField reports whether the collection has a field-level writer
// for the given field name.
func (c Capabilities) CanWriteField(name string) bool {
	return c.WriteFields[name]
}

// FullCapabilities is what a collection without restrictions declares.
func FullCapabilities() Capabilities {
	return Capabilities{
		List: true, ReadFull: true, WriteFull: true, Remove: true, Rename: true,
		WriteFields: map[string]bool{
			FieldTitle: true, FieldDescription: true, FieldCategory: true,
			FieldPublic: true, FieldKeywords: true,
		},
	}
}

// Collection is a place where tracks live: a directory, a database, a
// remote service. The core calls only these methods and never retries a
// failed call on its own; retry policy, if any, is the collection's
// business. Collections are not assumed to be safe for concurrent use.
//
// A collection populating a track (in List or ReadFull) must do so inside
// track.Decoupled so the writes do not trigger a write-back into the very
// collection being read.
type Collection interface {
	// Identifier returns a stable unique name for the physical store,
	// like "directory:/home/x/tracks". It prefixes every full track
	// identifier.
	Identifier() string

	// Capabilities returns the declared capability set.
	Capabilities() Capabilities

	// List returns header-populated tracks, attached and not yet loaded.
	List() ([]*Track, error)

	// ReadFull populates every field of the given track from storage.
	// The core marks the track loaded after this returns without error.
	ReadFull(t *Track) error

	// WriteFull writes the entire track. ident is the desired identity or
	// empty for a new one; the returned identity is the one actually
	// assigned.
	WriteFull(t *Track, ident string) (string, error)

	// WriteField writes one metadata field. Only called for fields
	// declared in Capabilities.WriteFields.
	WriteField(t *Track, field string) error

	// Remove deletes the track with the given identity.
	Remove(ident string) error

	// Rename changes the identity of an attached track.
	Rename(t *Track, newIdent string) error
}

// Identifier returns the full identifier of a track within a collection,
// used as foreign id in other collections.
func Identifier(c Collection, ident string) string {
	if c == nil {
		return ident
	}
	return c.Identifier() + "/" + ident
}
