package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/opencivica/legisync/pkg/db/models"
)

func amendmentDump() string {
	return "COPY texteloi (id, titre) FROM stdin;\n" +
		"T1\tLoi de finances\n" +
		"\\.\n" +
		"COPY amendement (id, texteloi_id, auteur_id, date, sujet, sort) FROM stdin;\n" +
		"A1\tT1\tPA1\t2019-01-10\tVieux sujet\tAdopté\n" +
		"A2\tT1\tPA1\t2025-02-01\tArticle premier\tAdopté\n" +
		"A3\tT1\tPA2\t2025-02-02\tArticle second\tRejeté\n" +
		"A4\tT9\tPA2\t2025-02-03\tSans texte\tRetiré\n" +
		"A5\tT1\tPA3\t2025-02-04\tEn cours\t\\N\n" +
		"\\.\n"
}

func TestAmendmentsSyncAppliesRecencyWindow(t *testing.T) {
	srv := serveBytes(t, []byte(amendmentDump()))

	store := &fakeStore{}
	a := NewAmendments(zaptest.NewLogger(t), store, Config{
		Chamber:         models.ChamberAssembly,
		AmendmentsURL:   srv.URL + "/dump.sql",
		AmendmentsSince: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	res, err := a.Sync(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Created)

	require.Len(t, store.amendments, 4)
	byID := map[string]*models.Amendment{}
	for _, am := range store.amendments {
		byID[am.ExtID] = am
	}
	assert.NotContains(t, byID, "A1")

	assert.Equal(t, models.AmendmentAdopted, byID["A2"].Outcome)
	assert.Equal(t, "Loi de finances", byID["A2"].TextTitle)
	assert.Equal(t, models.AmendmentRejected, byID["A3"].Outcome)
	assert.Equal(t, models.AmendmentWithdrawn, byID["A4"].Outcome)
	// Unknown target text resolves to no title, not an error.
	assert.Empty(t, byID["A4"].TextTitle)
	assert.Equal(t, models.AmendmentPending, byID["A5"].Outcome)
}

func TestAmendmentsSyncForceReadsFullHistory(t *testing.T) {
	srv := serveBytes(t, []byte(amendmentDump()))

	store := &fakeStore{}
	a := NewAmendments(zaptest.NewLogger(t), store, Config{
		Chamber:         models.ChamberAssembly,
		AmendmentsURL:   srv.URL + "/dump.sql",
		AmendmentsSince: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	_, err := a.Sync(context.Background(), Options{Force: true})
	require.NoError(t, err)
	assert.Len(t, store.amendments, 5)
}

func TestAmendmentsSyncLimitIsDeterministic(t *testing.T) {
	srv := serveBytes(t, []byte(amendmentDump()))

	store := &fakeStore{}
	a := NewAmendments(zaptest.NewLogger(t), store, Config{
		Chamber:         models.ChamberAssembly,
		AmendmentsURL:   srv.URL + "/dump.sql",
		AmendmentsSince: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	res, err := a.Sync(context.Background(), Options{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)

	// Ids are sorted before the limit applies, so a sample is repeatable.
	require.Len(t, store.amendments, 2)
	assert.Equal(t, "A2", store.amendments[0].ExtID)
	assert.Equal(t, "A3", store.amendments[1].ExtID)
}
