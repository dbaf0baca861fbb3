package collection

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/wrohdewald/gpxity/internal/track"
)

// memoryEntry is one stored track: the persisted GPX document plus the
// header fields a listing hands out without a full read.
type memoryEntry struct {
	xml         []byte
	title       string
	description string
	category    string
	public      bool
	keywords    []string
}

// Memory keeps tracks in process memory. It implements the full
// capability set and is the collection of choice for tests.
type Memory struct {
	name    string
	entries map[string]*memoryEntry

	// Reads counts ReadFull calls, for tests asserting laziness.
	Reads int
	// Writes counts WriteFull and WriteField calls.
	Writes int
}

// NewMemory creates an empty in-memory collection.
func NewMemory(name string) *Memory {
	if name == "" {
		name = "memory"
	}
	return &Memory{name: name, entries: map[string]*memoryEntry{}}
}

// Identifier implements track.Collection.
func (m *Memory) Identifier() string { return "memory:" + m.name }

// Capabilities implements track.Collection.
func (m *Memory) Capabilities() track.Capabilities { return track.FullCapabilities() }

// List implements track.Collection. The returned tracks carry the header
// fields and load their geometry lazily.
func (m *Memory) List() ([]*track.Track, error) {
	idents := make([]string, 0, len(m.entries))
	for ident := range m.entries {
		idents = append(idents, ident)
	}
	sort.Strings(idents)
	result := make([]*track.Track, 0, len(idents))
	for _, ident := range idents {
		entry := m.entries[ident]
		t := newAttached(m, ident)
		err := t.Decoupled(func() error {
			if err := t.SetTitle(entry.title); err != nil {
				return err
			}
			if err := t.SetDescription(entry.description); err != nil {
				return err
			}
			if err := t.SetCategory(entry.category); err != nil {
				return err
			}
			if err := t.SetPublic(entry.public); err != nil {
				return err
			}
			return t.SetKeywords(entry.keywords...)
		})
		if err != nil {
			return nil, err
		}
		t.MarkHeader(track.FieldTitle, track.FieldDescription, track.FieldCategory,
			track.FieldPublic, track.FieldKeywords)
		result = append(result, t)
	}
	return result, nil
}

// ReadFull implements track.Collection.
func (m *Memory) ReadFull(t *track.Track) error {
	m.Reads++
	entry, ok := m.entries[t.ID()]
	if !ok {
		return fmt.Errorf("memory: no track %q", t.ID())
	}
	return t.ParseGPX(entry.xml)
}

// WriteFull implements track.Collection.
func (m *Memory) WriteFull(t *track.Track, ident string) (string, error) {
	m.Writes++
	if ident == "" {
		ident = uuid.NewString()
	}
	entry, err := m.snapshot(t)
	if err != nil {
		return "", err
	}
	m.entries[ident] = entry
	return ident, nil
}

// WriteField implements track.Collection. Memory stores the whole
// document anyway, so a field write refreshes the snapshot.
func (m *Memory) WriteField(t *track.Track, field string) error {
	m.Writes++
	if _, ok := m.entries[t.ID()]; !ok {
		return fmt.Errorf("memory: no track %q", t.ID())
	}
	entry, err := m.snapshot(t)
	if err != nil {
		return err
	}
	m.entries[t.ID()] = entry
	return nil
}

// Remove implements track.Collection.
func (m *Memory) Remove(ident string) error {
	if _, ok := m.entries[ident]; !ok {
		return fmt.Errorf("memory: no track %q", ident)
	}
	delete(m.entries, ident)
	return nil
}

// Rename implements track.Collection.
func (m *Memory) Rename(t *track.Track, newIdent string) error {
	entry, ok := m.entries[t.ID()]
	if !ok {
		return fmt.Errorf("memory: no track %q", t.ID())
	}
	if _, exists := m.entries[newIdent]; exists {
		return fmt.Errorf("memory: track %q already exists", newIdent)
	}
	delete(m.entries, t.ID())
	m.entries[newIdent] = entry
	return t.SetID(newIdent)
}

func (m *Memory) snapshot(t *track.Track) (*memoryEntry, error) {
	xml, err := t.Xml()
	if err != nil {
		return nil, err
	}
	title, err := t.Title()
	if err != nil {
		return nil, err
	}
	description, err := t.Description()
	if err != nil {
		return nil, err
	}
	category, err := t.Category()
	if err != nil {
		return nil, err
	}
	public, err := t.Public()
	if err != nil {
		return nil, err
	}
	keywords, err := t.Keywords()
	if err != nil {
		return nil, err
	}
	return &memoryEntry{
		xml:         xml,
		title:       title,
		description: description,
		category:    category,
		public:      public,
		keywords:    keywords,
	}, nil
}

var _ track.Collection = (*Memory)(nil)
