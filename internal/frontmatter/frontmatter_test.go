package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitWithFrontMatter(t *testing.T) {
	doc := []byte("---\ntitle: Hola Mundo\ndate: 2025-03-01\n---\n<p>cuerpo</p>\n")

	meta, body, had, err := Split(doc)
	require.NoError(t, err)
	assert.True(t, had)
	assert.Equal(t, "title: Hola Mundo\ndate: 2025-03-01\n", string(meta))
	assert.Equal(t, "<p>cuerpo</p>\n", string(body))
}

func TestSplitWithoutFrontMatter(t *testing.T) {
	doc := []byte("<p>solo cuerpo</p>")

	meta, body, had, err := Split(doc)
	require.NoError(t, err)
	assert.False(t, had)
	assert.Nil(t, meta)
	assert.Equal(t, doc, body)
}

func TestSplitEmptyFrontMatter(t *testing.T) {
	doc := []byte("---\n---\nbody")

	meta, body, had, err := Split(doc)
	require.NoError(t, err)
	assert.True(t, had)
	assert.Empty(t, meta)
	assert.Equal(t, "body", string(body))
}

func TestSplitCRLF(t *testing.T) {
	doc := []byte("---\r\ntitle: T\r\n---\r\nbody")

	meta, body, had, err := Split(doc)
	require.NoError(t, err)
	assert.True(t, had)
	assert.Equal(t, "title: T\r\n", string(meta))
	assert.Equal(t, "body", string(body))
}

func TestSplitMissingClosingDelimiter(t *testing.T) {
	doc := []byte("---\ntitle: T\nno closing")

	_, _, _, err := Split(doc)
	require.ErrorIs(t, err, ErrMissingClosingDelimiter)
}

func TestDecodeTyped(t *testing.T) {
	var out struct {
		Title   string   `yaml:"title"`
		Linking []string `yaml:"linking"`
	}
	meta := []byte("title: T\nlinking:\n  - uno\n  - dos\n")
	require.NoError(t, Decode(meta, &out))
	assert.Equal(t, "T", out.Title)
	assert.Equal(t, []string{"uno", "dos"}, out.Linking)
}

func TestFieldsNormalizesNil(t *testing.T) {
	fields, err := Fields(nil)
	require.NoError(t, err)
	assert.NotNil(t, fields)
	assert.Empty(t, fields)
}
