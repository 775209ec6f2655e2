package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/opencivica/legisync/pkg/db/models"
)

func TestBallotsSyncUpsertsBallotsAndVotes(t *testing.T) {
	body := `{"scrutins":[
		{"uid":"VT1","numero":"12","dateScrutin":"2025-03-04","titre":"Projet de loi &eacute;nergie",
		 "sort":{"code":"adopté"},
		 "syntheseVote":{"pour":"2","contre":"1","abstentions":"0"},
		 "votes":[
			{"acteurRef":"PA1","position":"pour"},
			{"acteurRef":"PA2","position":"contre"},
			{"acteurRef":"PA3","position":"nonVotant"},
			{"acteurRef":"PA4","position":"mystère"}
		 ]},
		{"uid":"","dateScrutin":"2025-03-05","titre":"sans identité"}
	]}`
	srv := serveBytes(t, []byte(body))

	store := &fakeStore{}
	b := NewBallots(zaptest.NewLogger(t), store, Config{Chamber: models.ChamberAssembly, BallotsURL: srv.URL + "/scrutins.json"})

	res, err := b.Sync(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 0, res.Updated)
	// One ballot without identity, one vote with an unknown position.
	assert.Equal(t, 2, res.Skipped)

	require.Len(t, store.ballots, 1)
	ballot := store.ballots[0]
	assert.Equal(t, "VT1", ballot.ExtID)
	assert.Equal(t, uint32(12), ballot.Number)
	assert.Equal(t, "Projet de loi énergie", ballot.Title)
	assert.Equal(t, "adopted", ballot.Outcome)
	assert.Equal(t, uint32(2), ballot.VotesFor)
	assert.Equal(t, uint32(1), ballot.VotesAgainst)

	require.Len(t, store.votes, 3)
	positions := map[string]string{}
	for _, v := range store.votes {
		positions[v.LegislatorExtID] = v.Position
	}
	assert.Equal(t, models.PositionFor, positions["PA1"])
	assert.Equal(t, models.PositionAgainst, positions["PA2"])
	assert.Equal(t, models.PositionAbsent, positions["PA3"])
}

func TestBallotsSyncCountsUpdatedAgainstExisting(t *testing.T) {
	body := `{"scrutin":[
		{"uid":"VT1","numero":"1","dateScrutin":"2025-03-04","titre":"a","sort":{"code":"rejeté"}},
		{"uid":"VT2","numero":"2","dateScrutin":"2025-03-05","titre":"b","sort":{"code":"adopté"}}
	]}`
	srv := serveBytes(t, []byte(body))

	store := &fakeStore{existingIDs: map[string]map[string]struct{}{
		models.BallotsTableName: {"VT1": {}},
	}}
	b := NewBallots(zaptest.NewLogger(t), store, Config{Chamber: models.ChamberAssembly, BallotsURL: srv.URL + "/scrutins.json"})

	res, err := b.Sync(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, "rejected", store.ballots[0].Outcome)
}

func TestBallotsSyncLimitBoundsRecords(t *testing.T) {
	body := `{"scrutins":[
		{"uid":"VT1","numero":"1","dateScrutin":"2025-03-04","titre":"a"},
		{"uid":"VT2","numero":"2","dateScrutin":"2025-03-05","titre":"b"},
		{"uid":"VT3","numero":"3","dateScrutin":"2025-03-06","titre":"c"}
	]}`
	srv := serveBytes(t, []byte(body))

	store := &fakeStore{}
	b := NewBallots(zaptest.NewLogger(t), store, Config{Chamber: models.ChamberAssembly, BallotsURL: srv.URL + "/scrutins.json"})

	_, err := b.Sync(context.Background(), Options{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, store.ballots, 2)
}

func TestNormalizePosition(t *testing.T) {
	cases := map[string]string{
		"pour":       models.PositionFor,
		"Pour":       models.PositionFor,
		"contre":     models.PositionAgainst,
		"abstention": models.PositionAbstain,
		"absent":     models.PositionAbsent,
		"non-votant": models.PositionAbsent,
	}
	for in, want := range cases {
		got, ok := normalizePosition(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}

	_, ok := normalizePosition("présent")
	assert.False(t, ok)
}
