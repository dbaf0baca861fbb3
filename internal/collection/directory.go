package collection

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/wrohdewald/gpxity/internal/track"
)

// Directory hosts tracks as .gpx files in a filesystem directory. The
// file name without extension is the track identity. Metadata lives
// inside the GPX document, so there are no field-level writers and
// every change rewrites the file.
type Directory struct {
	path string
}

// NewDirectory opens path as a collection, creating it if needed.
func NewDirectory(path string) (*Directory, error) {
	if path == "" {
		return nil, fmt.Errorf("directory: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Directory{path: abs}, nil
}

// Identifier implements track.Collection.
func (d *Directory) Identifier() string { return "directory:" + d.path }

// Capabilities implements track.Collection. WriteFields stays empty so
// any metadata change goes through a full rewrite.
func (d *Directory) Capabilities() track.Capabilities {
	return track.Capabilities{
		List:        true,
		ReadFull:    true,
		WriteFull:   true,
		Remove:      true,
		Rename:      true,
		WriteFields: map[string]bool{},
	}
}

// List implements track.Collection. Header fields are not available
// without parsing, so the returned tracks load everything lazily.
func (d *Directory) List() ([]*track.Track, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	idents := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".gpx") {
			continue
		}
		idents = append(idents, strings.TrimSuffix(entry.Name(), ".gpx"))
	}
	sort.Strings(idents)
	result := make([]*track.Track, 0, len(idents))
	for _, ident := range idents {
		result = append(result, newAttached(d, ident))
	}
	return result, nil
}

// ReadFull implements track.Collection.
func (d *Directory) ReadFull(t *track.Track) error {
	data, err := os.ReadFile(d.file(t.ID()))
	if err != nil {
		return err
	}
	return t.ParseGPX(data)
}

// WriteFull implements track.Collection. A missing identity is derived
// from the title, falling back to a random one, and deduplicated with a
// numeric suffix. Overwriting keeps the previous file as ident.gpx.old
// until the new content is in place.
func (d *Directory) WriteFull(t *track.Track, ident string) (string, error) {
	data, err := t.Xml()
	if err != nil {
		return "", err
	}
	if ident == "" {
		ident, err = d.newIdent(t)
		if err != nil {
			return "", err
		}
	}
	target := d.file(ident)
	backup := target + ".old"
	hadOld := false
	if _, err := os.Stat(target); err == nil {
		if err := os.Rename(target, backup); err != nil {
			return "", err
		}
		hadOld = true
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		if hadOld {
			_ = os.Rename(backup, target)
		}
		return "", err
	}
	if hadOld {
		_ = os.Remove(backup)
	}
	return ident, nil
}

// WriteField implements track.Collection. Never called since
// WriteFields is empty.
func (d *Directory) WriteField(t *track.Track, field string) error {
	return &track.ErrUnsupportedOperation{Collection: d.Identifier(), Op: "write field " + field}
}

// Remove implements track.Collection.
func (d *Directory) Remove(ident string) error {
	return os.Remove(d.file(ident))
}

// Rename implements track.Collection.
func (d *Directory) Rename(t *track.Track, newIdent string) error {
	target := d.file(newIdent)
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("directory: track %q already exists", newIdent)
	}
	if err := os.Rename(d.file(t.ID()), target); err != nil {
		return err
	}
	return t.SetID(newIdent)
}

func (d *Directory) file(ident string) string {
	return filepath.Join(d.path, ident+".gpx")
}

// newIdent derives a file name from the title, keeping only characters
// safe in file names.
func (d *Directory) newIdent(t *track.Track) (string, error) {
	title, err := t.Title()
	if err != nil {
		return "", err
	}
	base := sanitizeIdent(title)
	if base == "" {
		base = uuid.NewString()
	}
	ident := base
	for n := 1; ; n++ {
		if _, err := os.Stat(d.file(ident)); os.IsNotExist(err) {
			return ident, nil
		}
		ident = fmt.Sprintf("%s.%d", base, n)
	}
}

func sanitizeIdent(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.', r == ':':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

var _ track.Collection = (*Directory)(nil)
