package track

import (
	"sort"
	"strings"
)

// Categories lists the legal values for a track category. The first one is
// the default. It is mostly a superset of the values the different storage
// services know; a service adapter maps between these and its own values.
var Categories = []string{
	"Cycling", "Running", "Mountain biking", "Indoor cycling", "Sailing", "Walking", "Hiking",
	"Swimming", "Driving", "Off road driving", "Motor racing", "Motorcycling", "Enduro",
	"Skiing", "Cross country skiing", "Canoeing", "Kayaking", "Sea kayaking", "Stand up paddle boarding",
	"Rowing", "Windsurfing", "Kiteboarding", "Orienteering", "Mountaineering", "Skating",
	"Skateboarding", "Horse riding", "Hang gliding", "Gliding", "Flying", "Snowboarding",
	"Paragliding", "Hot air ballooning", "Nordic walking", "Snowshoeing", "Jet skiing", "Powerboating",
	"Pedelec", "Crossskating", "Handcycle", "Motorhome", "Cabriolet", "Coach",
	"Pack animal trekking", "Train",
	"Miscellaneous",
}

// DefaultCategory is used when no category was ever assigned.
func DefaultCategory() string { return Categories[0] }

// LegalCategory reports whether value is a member of Categories.
func LegalCategory(value string) bool {
	for _, category := range Categories {
		if category == value {
			return true
		}
	}
	return false
}

// Reserved keyword prefixes. The GPX format has no attributes for
// category, visibility or foreign ids, so they are multiplexed into the
// keyword string and demultiplexed on read.
const (
	prefixCategory = "Category:"
	prefixStatus   = "Status:"
	prefixID       = "Id:"
)

// Attributes is the typed in-memory view of whatever is multiplexed into
// the single keyword string of the stored representation.
type Attributes struct {
	Category string
	Public   bool
	IDs      []string
	Keywords []string
}

// CheckKeyword rejects keywords a caller may not set directly: the
// reserved prefixes have typed setters, and a comma would break the
// storage encoding.
func CheckKeyword(keyword string) error {
	for _, prefix := range []string{prefixCategory, prefixStatus, prefixID} {
		if strings.HasPrefix(keyword, prefix) {
			return &ErrReservedKeyword{Keyword: keyword}
		}
	}
	if strings.Contains(keyword, ",") {
		return &ErrValidation{Field: "keyword", Reason: "no comma allowed within a keyword"}
	}
	return nil
}

// EncodeKeywords produces the persisted keyword string: plain keywords
// first, then Category, Status and the foreign Ids, joined by ", ".
func EncodeKeywords(attr Attributes) string {
	parts := make([]string, 0, len(attr.Keywords)+2+len(attr.IDs))
	parts = append(parts, attr.Keywords...)
	parts = append(parts, prefixCategory+attr.Category)
	if attr.Public {
		parts = append(parts, prefixStatus+"public")
	} else {
		parts = append(parts, prefixStatus+"private")
	}
	for _, id := range attr.IDs {
		parts = append(parts, prefixID+id)
	}
	return strings.Join(parts, ", ")
}

// DecodeKeywords reverses EncodeKeywords. Plain keywords come out sorted
// and deduplicated, ids keep their order. A reserved prefix other than Id
// appearing twice is an error.
func DecodeKeywords(raw string) (Attributes, error) {
	result := Attributes{Category: DefaultCategory()}
	if raw == "" {
		return result, nil
	}
	var sawCategory, sawStatus bool
	seen := make(map[string]bool)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		switch {
		case strings.HasPrefix(entry, prefixCategory):
			if sawCategory {
				return Attributes{}, &ErrDuplicateKeyword{Keyword: entry}
			}
			sawCategory = true
			result.Category = strings.TrimSpace(entry[len(prefixCategory):])
		case strings.HasPrefix(entry, prefixStatus):
			if sawStatus {
				return Attributes{}, &ErrDuplicateKeyword{Keyword: entry}
			}
			sawStatus = true
			result.Public = strings.TrimSpace(entry[len(prefixStatus):]) == "public"
		case strings.HasPrefix(entry, prefixID):
			result.IDs = append(result.IDs, strings.TrimSpace(entry[len(prefixID):]))
		default:
			if !seen[entry] {
				seen[entry] = true
				result.Keywords = append(result.Keywords, entry)
			}
		}
	}
	sort.Strings(result.Keywords)
	return result, nil
}
