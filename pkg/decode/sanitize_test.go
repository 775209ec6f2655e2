package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanStripsTagsThenDecodesEntities(t *testing.T) {
	in := `<p>Article&nbsp;1<sup>er</sup> &#8211; d&eacute;fense &amp; s&eacute;curit&eacute;</p>`
	assert.Equal(t, "Article 1er – défense & sécurité", Clean(in))
}

func TestCleanDecodesNamedAndNumericEntities(t *testing.T) {
	assert.Equal(t, "résumé — 100 % «oui»",
		Clean("r&eacute;sum&eacute; &#8212; 100&nbsp;% &laquo;oui&raquo;"))
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "un deux trois", Clean("  un \n\t deux \r\n  trois  "))
}

func TestCleanEmpty(t *testing.T) {
	assert.Equal(t, "", Clean(""))
	assert.Equal(t, "", Clean("   \n  "))
}
