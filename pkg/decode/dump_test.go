package decode

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testDump = `-- export header, ignored
COPY amendement (id, texteloi_id, auteur_id, date, objet, sort) FROM stdin;
A1	T1	PA1	2016-03-10	Vieux amendement	Rejeté
A2	T1	PA1	2016-11-02	Encore vieux	Adopté
A3	T2	PA2	2017-01-15	Toujours vieux	Retiré
A4	T2	PA2	2024-02-01	Amendement r&eacute;cent	Adopté
A5	T3	PA3	2024-05-20	Deuxième récent	Rejeté
garbage line without enough fields
\.
COPY texteloi (id, titre) FROM stdin;
T2	Projet de loi de finances
T3	Loi &laquo;climat&raquo;
\.
COPY ignored_table (id, junk) FROM stdin;
X1	whatever
\.
`

func dumpSpecs() []TableSpec {
	return []TableSpec{
		{Name: "amendement", KeyField: "id", DateField: "date"},
		{Name: "texteloi", KeyField: "id"},
	}
}

func TestStreamDumpRecencyFilter(t *testing.T) {
	cutoff := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := StreamDump(zaptest.NewLogger(t), strings.NewReader(testDump), dumpSpecs(), cutoff)
	require.NoError(t, err)

	amd := res.Tables["amendement"]
	assert.Len(t, amd, 2)
	assert.Contains(t, amd, "A4")
	assert.Contains(t, amd, "A5")
	assert.NotContains(t, amd, "A1")

	// One garbage line, counted not fatal.
	assert.Equal(t, 1, res.SkippedLines)
}

func TestStreamDumpNamedFieldAccess(t *testing.T) {
	res, err := StreamDump(zaptest.NewLogger(t), strings.NewReader(testDump), dumpSpecs(), time.Time{})
	require.NoError(t, err)

	row, ok := res.Tables["amendement"]["A4"]
	require.True(t, ok)
	assert.Equal(t, "PA2", row.Get("auteur_id"))
	assert.Equal(t, "Adopté", row.Get("sort"))
	assert.Equal(t, "", row.Get("no_such_field"))
	when, ok := row.Date("date")
	require.True(t, ok)
	assert.Equal(t, 2024, when.Year())
}

func TestStreamDumpCrossTableLinking(t *testing.T) {
	cutoff := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := StreamDump(zaptest.NewLogger(t), strings.NewReader(testDump), dumpSpecs(), cutoff)
	require.NoError(t, err)

	// Linking happens after the stream: both kept amendments resolve
	// their targeted text in the texteloi index.
	texts := res.Tables["texteloi"]
	for _, key := range []string{"A4", "A5"} {
		amd := res.Tables["amendement"][key]
		text, ok := texts[amd.Get("texteloi_id")]
		require.True(t, ok, "text for %s", key)
		assert.NotEmpty(t, text.Get("titre"))
	}

	// Uninteresting tables are never indexed.
	assert.NotContains(t, res.Tables, "ignored_table")
}

func TestStreamDumpNullsReadAsEmpty(t *testing.T) {
	dump := "COPY amendement (id, texteloi_id, auteur_id, date, objet, sort) FROM stdin;\n" +
		"A9	\\N	PA1	2024-01-01	Objet	\\N\n" +
		"\\.\n"
	res, err := StreamDump(zaptest.NewLogger(t), strings.NewReader(dump), dumpSpecs(), time.Time{})
	require.NoError(t, err)
	row := res.Tables["amendement"]["A9"]
	assert.Equal(t, "", row.Get("texteloi_id"))
	assert.Equal(t, "", row.Get("sort"))
}
