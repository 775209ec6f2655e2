package source

import (
	"time"

	"github.com/opencivica/legisync/pkg/db/models"
	"github.com/opencivica/legisync/pkg/utils"
)

// Config carries the upstream endpoints and fetch knobs shared by the
// connectors. Everything has an env override so a deployment can repoint a
// single source without rebuilding.
type Config struct {
	// Chamber the chamber-scoped connectors ingest into.
	Chamber string

	RosterURL        string
	BallotsURL       string
	AmendmentsURL    string
	InterventionsURL string
	LobbyBaseURL     string
	LobbyTokenURL    string

	// FetchTimeout applies to metadata probes and flat JSON bodies.
	FetchTimeout time.Duration
	// ArchiveTimeout applies to the large roster and dump downloads.
	ArchiveTimeout time.Duration

	// AmendmentsSince is the recency cutoff for the amendments dump. A
	// forced sync ignores it and re-reads the full history.
	AmendmentsSince time.Time
}

// DefaultConfig reads the connector configuration from the environment.
func DefaultConfig() Config {
	return Config{
		Chamber:          utils.Env("SRC_CHAMBER", models.ChamberAssembly),
		RosterURL:        utils.Env("SRC_ROSTER_URL", "https://data.assemblee-nationale.fr/opendata/acteurs_organes.zip"),
		BallotsURL:       utils.Env("SRC_BALLOTS_URL", "https://data.assemblee-nationale.fr/opendata/scrutins.json"),
		AmendmentsURL:    utils.Env("SRC_AMENDMENTS_URL", "https://data.assemblee-nationale.fr/opendata/dump_amendements.sql"),
		InterventionsURL: utils.Env("SRC_INTERVENTIONS_URL", "https://data.assemblee-nationale.fr/opendata/interventions.json"),
		LobbyBaseURL:     utils.Env("SRC_LOBBY_BASE_URL", "https://www.hatvp.fr/agora/opendata/"),
		LobbyTokenURL:    utils.Env("SRC_LOBBY_TOKEN_URL", "https://www.hatvp.fr/agora/oauth/token"),
		FetchTimeout:     utils.EnvDuration("SRC_FETCH_TIMEOUT", 2*time.Minute),
		ArchiveTimeout:   utils.EnvDuration("SRC_ARCHIVE_TIMEOUT", 10*time.Minute),
		AmendmentsSince:  utils.EnvDate("SRC_AMENDMENTS_SINCE", time.Now().AddDate(-2, 0, 0)),
	}
}
