package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Émilie Dupont-Laurent":       "emilie-dupont-laurent",
		"Jean--Pierre   D'Artagnan":   "jean-pierre-d-artagnan",
		"La République En Marche !":   "la-republique-en-marche",
		"Groupe Écologiste (Sénat)":   "groupe-ecologiste-senat",
		"  leading and trailing --- ": "leading-and-trailing",
		"ÀÂÇÉÈÊËÎÏÔÛÙÜŸ":              "aaceeeeiiouuuy",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "input %q", in)
	}
}

func TestSlugifyDeterministic(t *testing.T) {
	first := Slugify("François de Rugy")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Slugify("François de Rugy"))
	}
}

func TestDedup(t *testing.T) {
	got := Dedup([]string{"https://a/", "https://a", "https://b"})
	assert.Equal(t, []string{"https://a", "https://b"}, got)
}
