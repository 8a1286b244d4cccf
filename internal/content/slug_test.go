package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hola Mundo", "hola-mundo"},
		{"Artículo número uño", "articulo-numero-uno"},
		{"¿Qué es Git?", "que-es-git"},
		{"  espacios   múltiples  ", "espacios-multiples"},
		{"ya-con-guiones", "ya-con-guiones"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}

func TestAssignUniqueSlugsCollisions(t *testing.T) {
	articles := []*Article{
		{Title: "Hola Mundo"},
		{Title: "Hola Mundo"},
		{Title: "Hola Mundo"},
		{Title: "Otro"},
	}
	assignUniqueSlugs(articles)

	assert.Equal(t, "hola-mundo", articles[0].Slug)
	assert.Equal(t, "hola-mundo-2", articles[1].Slug)
	assert.Equal(t, "hola-mundo-3", articles[2].Slug)
	assert.Equal(t, "otro", articles[3].Slug)
}

func TestAssignUniqueSlugsMissingTitle(t *testing.T) {
	articles := []*Article{{Title: ""}, {Title: "???"}}
	assignUniqueSlugs(articles)

	assert.Equal(t, "articulo", articles[0].Slug)
	assert.Equal(t, "articulo-2", articles[1].Slug)
}

func TestAssignUniqueSlugsNoFalseCollision(t *testing.T) {
	// A literal "hola-mundo-2" title occupies the suffix slot first.
	articles := []*Article{
		{Title: "hola mundo 2"},
		{Title: "Hola Mundo"},
		{Title: "Hola Mundo"},
	}
	assignUniqueSlugs(articles)

	assert.Equal(t, "hola-mundo-2", articles[0].Slug)
	assert.Equal(t, "hola-mundo", articles[1].Slug)
	assert.Equal(t, "hola-mundo-3", articles[2].Slug)
}
