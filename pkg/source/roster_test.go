package source

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/opencivica/legisync/pkg/db/models"
)

func rosterArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func serveBytes(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRosterSyncUpsertsGroupsAndLegislators(t *testing.T) {
	archive := rosterArchive(t, map[string]string{
		"json/organe/PO100.json": `{"organe":{"uid":"PO100","libelle":"Groupe du Progr&egrave;s","couleurAssociee":"#ff0000","positionPolitique":"left"}}`,
		"json/acteur/PA1.json":   `{"acteur":{"uid":"PA1","etatCivil":{"ident":{"prenom":"Émilie","nom":"Dupont"}},"groupe":{"organeRef":"PO100"}}}`,
		"json/acteur/PA2.json":   `{"acteur":{"uid":{"#text":"PA2"},"etatCivil":{"ident":{"prenom":"Jean","nom":"Martin"}},"groupe":{"organeRef":null}}}`,
	})
	srv := serveBytes(t, archive)

	store := &fakeStore{}
	r := NewRoster(zaptest.NewLogger(t), store, Config{Chamber: models.ChamberAssembly, RosterURL: srv.URL + "/roster.zip"})

	res, err := r.Sync(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 0, res.Skipped)

	require.Len(t, store.groups, 1)
	assert.Equal(t, "Groupe du Progrès", store.groups[0].Name)
	assert.Equal(t, "groupe-du-progres", store.groups[0].Slug)

	require.Len(t, store.upsertLegislators, 2)
	emilie := store.legislatorByExtID("PA1")
	require.NotNil(t, emilie)
	assert.Equal(t, "Émilie Dupont", emilie.Name)
	assert.Equal(t, "emilie-dupont", emilie.Slug)
	assert.Equal(t, "PO100", emilie.GroupExtID)
	assert.True(t, emilie.Active)

	jean := store.legislatorByExtID("PA2")
	require.NotNil(t, jean)
	assert.Empty(t, jean.GroupExtID)
}

func TestRosterSyncPreservesMetricsAndDeactivatesMissing(t *testing.T) {
	archive := rosterArchive(t, map[string]string{
		"json/acteur/PA1.json": `{"acteur":{"uid":"PA1","etatCivil":{"ident":{"prenom":"Émilie","nom":"Dupont"}},"groupe":{"organeRef":"PO200"}}}`,
	})
	srv := serveBytes(t, archive)

	store := &fakeStore{
		legislators: []*models.Legislator{
			{Chamber: models.ChamberAssembly, ExtID: "PA1", Name: "Émilie Dupont", Active: true, PresenceRate: 80, LoyaltyRate: 75, VotesCast: 8},
			{Chamber: models.ChamberAssembly, ExtID: "PA9", Name: "Paul Ancien", Active: true, PresenceRate: 40},
		},
	}
	r := NewRoster(zaptest.NewLogger(t), store, Config{Chamber: models.ChamberAssembly, RosterURL: srv.URL + "/roster.zip"})

	res, err := r.Sync(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 2, res.Updated)

	emilie := store.legislatorByExtID("PA1")
	require.NotNil(t, emilie)
	assert.Equal(t, "PO200", emilie.GroupExtID)
	// Derived metrics survive a roster re-sync untouched.
	assert.Equal(t, uint8(80), emilie.PresenceRate)
	assert.Equal(t, uint8(75), emilie.LoyaltyRate)
	assert.Equal(t, uint32(8), emilie.VotesCast)

	gone := store.legislatorByExtID("PA9")
	require.NotNil(t, gone)
	assert.False(t, gone.Active)
	assert.Equal(t, uint8(40), gone.PresenceRate)
}

func TestRosterSyncLimitedRunDoesNotDeactivate(t *testing.T) {
	archive := rosterArchive(t, map[string]string{
		"json/acteur/PA1.json": `{"acteur":{"uid":"PA1","etatCivil":{"ident":{"prenom":"A","nom":"One"}}}}`,
		"json/acteur/PA2.json": `{"acteur":{"uid":"PA2","etatCivil":{"ident":{"prenom":"B","nom":"Two"}}}}`,
	})
	srv := serveBytes(t, archive)

	store := &fakeStore{
		legislators: []*models.Legislator{
			{Chamber: models.ChamberAssembly, ExtID: "PA9", Name: "Paul Ancien", Active: true},
		},
	}
	r := NewRoster(zaptest.NewLogger(t), store, Config{Chamber: models.ChamberAssembly, RosterURL: srv.URL + "/roster.zip"})

	_, err := r.Sync(context.Background(), Options{Limit: 1})
	require.NoError(t, err)

	for _, l := range store.upsertLegislators {
		assert.NotEqual(t, "PA9", l.ExtID)
	}
}

func TestRosterSyncUnreachableUpstreamIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := &fakeStore{}
	r := NewRoster(zaptest.NewLogger(t), store, Config{Chamber: models.ChamberAssembly, RosterURL: srv.URL + "/roster.zip"})

	_, err := r.Sync(context.Background(), Options{})
	require.Error(t, err)
	assert.Empty(t, store.upsertLegislators)
}
