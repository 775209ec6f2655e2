package source

import (
	"context"

	"github.com/opencivica/legisync/pkg/db/models"
)

// fakeStore records upserts and serves pre-seeded state.
type fakeStore struct {
	legislators []*models.Legislator
	existingIDs map[string]map[string]struct{}

	groups            []*models.PoliticalGroup
	upsertLegislators []*models.Legislator
	ballots           []*models.Ballot
	votes             []*models.Vote
	amendments        []*models.Amendment
	interventions     []*models.Intervention
	lobbyOrgs         []*models.LobbyOrganization
	lobbyActions      []*models.LobbyAction
}

func (f *fakeStore) UpsertPoliticalGroups(_ context.Context, groups []*models.PoliticalGroup) error {
	f.groups = append(f.groups, groups...)
	return nil
}

func (f *fakeStore) UpsertLegislators(_ context.Context, legislators []*models.Legislator) error {
	f.upsertLegislators = append(f.upsertLegislators, legislators...)
	return nil
}

func (f *fakeStore) ListLegislators(_ context.Context, _ string) ([]*models.Legislator, error) {
	return f.legislators, nil
}

func (f *fakeStore) UpsertBallots(_ context.Context, ballots []*models.Ballot) error {
	f.ballots = append(f.ballots, ballots...)
	return nil
}

func (f *fakeStore) UpsertVotes(_ context.Context, votes []*models.Vote) error {
	f.votes = append(f.votes, votes...)
	return nil
}

func (f *fakeStore) UpsertAmendments(_ context.Context, amendments []*models.Amendment) error {
	f.amendments = append(f.amendments, amendments...)
	return nil
}

func (f *fakeStore) UpsertInterventions(_ context.Context, interventions []*models.Intervention) error {
	f.interventions = append(f.interventions, interventions...)
	return nil
}

func (f *fakeStore) UpsertLobbyOrganizations(_ context.Context, orgs []*models.LobbyOrganization) error {
	f.lobbyOrgs = append(f.lobbyOrgs, orgs...)
	return nil
}

func (f *fakeStore) UpsertLobbyActions(_ context.Context, actions []*models.LobbyAction) error {
	f.lobbyActions = append(f.lobbyActions, actions...)
	return nil
}

func (f *fakeStore) ExistingExtIDs(_ context.Context, table, _ string) (map[string]struct{}, error) {
	if ids, ok := f.existingIDs[table]; ok {
		return ids, nil
	}
	return map[string]struct{}{}, nil
}

func (f *fakeStore) legislatorByExtID(extID string) *models.Legislator {
	for _, l := range f.upsertLegislators {
		if l.ExtID == extID {
			return l
		}
	}
	return nil
}
