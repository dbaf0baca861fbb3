package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeKeywords(t *testing.T) {
	encoded := EncodeKeywords(Attributes{
		Category: "Cycling",
		Public:   true,
		Keywords: []string{"berlin"},
	})
	assert.Equal(t, "berlin, Category:Cycling, Status:public", encoded)

	encoded = EncodeKeywords(Attributes{
		Category: "Hiking",
		IDs:      []string{"directory:/tmp/a/1", "server:2"},
	})
	assert.Equal(t, "Category:Hiking, Status:private, Id:directory:/tmp/a/1, Id:server:2", encoded)
}

func TestDecodeKeywords(t *testing.T) {
	attr, err := DecodeKeywords("berlin, Category:Cycling, Status:public")
	require.NoError(t, err)
	assert.Equal(t, "Cycling", attr.Category)
	assert.True(t, attr.Public)
	assert.Equal(t, []string{"berlin"}, attr.Keywords)
	assert.Empty(t, attr.IDs)
}

func TestDecodeKeywordsEmpty(t *testing.T) {
	attr, err := DecodeKeywords("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCategory(), attr.Category)
	assert.False(t, attr.Public)
	assert.Empty(t, attr.Keywords)
}

func TestDecodeKeywordsSortsAndDeduplicates(t *testing.T) {
	attr, err := DecodeKeywords("zoo, alpha, zoo,  beta ")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "zoo"}, attr.Keywords)
}

func TestDecodeKeywordsDuplicatePrefix(t *testing.T) {
	_, err := DecodeKeywords("Category:Cycling, Category:Hiking")
	var dup *ErrDuplicateKeyword
	require.ErrorAs(t, err, &dup)

	_, err = DecodeKeywords("Status:public, Status:private")
	require.ErrorAs(t, err, &dup)

	// multiple ids are fine
	attr, err := DecodeKeywords("Id:a:1, Id:b:2")
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1", "b:2"}, attr.IDs)
}

func TestRoundTrip(t *testing.T) {
	original := Attributes{
		Category: "Sailing",
		Public:   true,
		IDs:      []string{"directory:/tracks/x", "server:y"},
		Keywords: []string{"baltic", "vacation"},
	}
	decoded, err := DecodeKeywords(EncodeKeywords(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestCheckKeyword(t *testing.T) {
	require.NoError(t, CheckKeyword("berlin"))

	var reserved *ErrReservedKeyword
	assert.ErrorAs(t, CheckKeyword("Category:Cycling"), &reserved)
	assert.ErrorAs(t, CheckKeyword("Status:public"), &reserved)
	assert.ErrorAs(t, CheckKeyword("Id:somewhere"), &reserved)

	var invalid *ErrValidation
	assert.ErrorAs(t, CheckKeyword("a,b"), &invalid)
}

func TestLegalCategory(t *testing.T) {
	assert.True(t, LegalCategory("Cycling"))
	assert.True(t, LegalCategory("Miscellaneous"))
	assert.False(t, LegalCategory("cycling"))
	assert.False(t, LegalCategory("Flying saucer"))
	assert.Equal(t, "Cycling", DefaultCategory())
}

func TestCleanIDs(t *testing.T) {
	// exact duplicates go, first wins
	assert.Equal(t, []string{"a:1", "b:2"}, CleanIDs([]string{"a:1", "b:2", "a:1"}))

	// one entry per directory origin
	cleaned := CleanIDs([]string{
		"directory:/tracks/new",
		"directory:/tracks/old",
		"server:x",
	})
	assert.Equal(t, []string{"directory:/tracks/new", "server:x"}, cleaned)

	// capped at five
	cleaned = CleanIDs([]string{"a:1", "b:2", "c:3", "d:4", "e:5", "f:6", "g:7"})
	assert.Len(t, cleaned, 5)
	assert.Equal(t, "a:1", cleaned[0])
	assert.Equal(t, "e:5", cleaned[4])
}
