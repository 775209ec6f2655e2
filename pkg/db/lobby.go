package db

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/opencivica/legisync/pkg/db/models"
)

// UpsertLobbyOrganizations inserts newer row versions for the given
// organizations.
func (s *Store) UpsertLobbyOrganizations(ctx context.Context, orgs []*models.LobbyOrganization) error {
	if len(orgs) == 0 {
		return nil
	}

	batch, err := s.PrepareBatch(ctx, s.insertQuery(models.LobbyOrganizationsTableName, models.LobbyOrganizationColumns))
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, o := range orgs {
		if err := batch.Append(
			o.ExtID,
			o.Name,
			o.Slug,
			o.Category,
			o.Sectors,
			o.Budget,
			o.HeadCount,
			o.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return batch.Send()
}

// UpsertLobbyActions inserts newer row versions for the given actions.
func (s *Store) UpsertLobbyActions(ctx context.Context, actions []*models.LobbyAction) error {
	if len(actions) == 0 {
		return nil
	}

	batch, err := s.PrepareBatch(ctx, s.insertQuery(models.LobbyActionsTableName, models.LobbyActionColumns))
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, a := range actions {
		if err := batch.Append(
			a.ExtID,
			a.OrgExtID,
			a.PeriodStart,
			a.PeriodEnd,
			a.Subject,
			a.TargetLegislatorExtID,
			a.TargetText,
			a.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return batch.Send()
}
