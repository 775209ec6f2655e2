package decode

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type rosterEntry struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

func writeTestArchive(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestArchiveJSONSkipsMalformedWithoutAborting(t *testing.T) {
	entries := map[string]string{}
	for i := 0; i < 20; i++ {
		entries[fmt.Sprintf("json/acteur/PA%03d.json", i)] = fmt.Sprintf(`{"uid":"PA%03d","name":"Member %d"}`, i, i)
	}
	entries["json/acteur/broken1.json"] = `{"uid": "PA900", truncated`
	entries["json/acteur/broken2.json"] = `not json at all`
	entries["json/acteur/broken3.json"] = ``

	path := writeTestArchive(t, entries)
	res, err := ArchiveJSON[rosterEntry](zaptest.NewLogger(t), path, "json/acteur/")
	require.NoError(t, err)
	assert.Len(t, res.Records, 20)
	assert.Equal(t, 3, res.Skipped)
}

func TestArchiveJSONFiltersByPrefixAndExtension(t *testing.T) {
	path := writeTestArchive(t, map[string]string{
		"json/acteur/PA001.json": `{"uid":"PA001","name":"A"}`,
		"json/organe/PO001.json": `{"uid":"PO001","name":"Group"}`,
		"json/acteur/README.txt": `ignore me`,
	})
	res, err := ArchiveJSON[rosterEntry](zaptest.NewLogger(t), path, "json/acteur/")
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.Equal(t, "PA001", res.Records[0].UID)
	assert.Zero(t, res.Skipped)
}

func TestArchiveJSONMissingArchiveIsFatal(t *testing.T) {
	_, err := ArchiveJSON[rosterEntry](zaptest.NewLogger(t), "/nonexistent/roster.zip", "")
	assert.Error(t, err)
}
