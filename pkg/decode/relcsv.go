package decode

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// The lobbying registry ships as a manually normalized relational schema:
// one root table of organizations plus child tables joined by foreign key.
// Tables are semicolon-separated, with a header row, embedded quotes and
// the occasional ragged row. Parsing is tolerant per table; the joins are
// explicit and in-memory.

// Table is one parsed CSV file: a header index plus raw rows. Missing
// trailing fields read as empty strings instead of panicking on short rows.
type Table struct {
	header map[string]int
	Rows   [][]string
}

// Get returns the named column of the given row, or "" when the column is
// unknown or the row is too short.
func (t *Table) Get(row []string, col string) string {
	idx, ok := t.header[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ReadTable parses one semicolon-separated table. LazyQuotes and a free
// field count keep embedded quotes and ragged rows from aborting the parse;
// a row that still fails to read is counted and skipped.
func ReadTable(logger *zap.Logger, path string) (*Table, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open table %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	headerRow, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header of %s: %w", path, err)
	}
	t := &Table{header: make(map[string]int, len(headerRow))}
	for i, name := range headerRow {
		t.header[strings.TrimSpace(name)] = i
	}

	skipped := 0
	for {
		row, readErr := r.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			skipped++
			logger.Warn("Skipping unreadable CSV row",
				zap.String("table", path),
				zap.Error(readErr))
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, skipped, nil
}

// RegistryPaths names the five tables of one registry download.
type RegistryPaths struct {
	Organizations string
	Sectors       string
	Collaborators string
	Actions       string
	ActionTargets string
}

// RawOrganization is one reconstituted registry entry.
type RawOrganization struct {
	ID        string
	Name      string
	Category  string
	Budget    int64
	HeadCount int
	Sectors   []string
	Actions   []RawAction
}

// RawAction is one time-boxed lobbying action.
type RawAction struct {
	ID          string
	PeriodStart string
	PeriodEnd   string
	Subject     string
	Targets     []RawTarget
}

// RawTarget optionally names a legislator and a targeted legislative text.
type RawTarget struct {
	Legislator string
	Text       string
}

// RegistryResult is the outcome of one registry decode pass.
type RegistryResult struct {
	Organizations []RawOrganization
	SkippedRows   int
}

// AssembleRegistry parses the five registry tables independently and joins
// them back into nested organizations. When limit > 0 it truncates the root
// table before any child table is joined in, so a sampled ingestion never
// pays for children it will discard.
func AssembleRegistry(logger *zap.Logger, paths RegistryPaths, limit int) (RegistryResult, error) {
	var res RegistryResult

	orgs, n, err := ReadTable(logger, paths.Organizations)
	if err != nil {
		return res, err
	}
	res.SkippedRows += n

	if limit > 0 && len(orgs.Rows) > limit {
		orgs.Rows = orgs.Rows[:limit]
	}

	index := make(map[string]*RawOrganization, len(orgs.Rows))
	ordered := make([]string, 0, len(orgs.Rows))
	for _, row := range orgs.Rows {
		id := orgs.Get(row, "id")
		if id == "" {
			res.SkippedRows++
			continue
		}
		index[id] = &RawOrganization{
			ID:        id,
			Name:      Clean(orgs.Get(row, "denomination")),
			Category:  orgs.Get(row, "categorie"),
			Budget:    parseInt64(orgs.Get(row, "budget")),
			HeadCount: int(parseInt64(orgs.Get(row, "effectif"))),
		}
		ordered = append(ordered, id)
	}

	sectors, n, err := ReadTable(logger, paths.Sectors)
	if err != nil {
		return res, err
	}
	res.SkippedRows += n
	for _, row := range sectors.Rows {
		if org, ok := index[sectors.Get(row, "organisation_id")]; ok {
			if s := sectors.Get(row, "secteur"); s != "" {
				org.Sectors = append(org.Sectors, s)
			}
		}
	}

	collabs, n, err := ReadTable(logger, paths.Collaborators)
	if err != nil {
		return res, err
	}
	res.SkippedRows += n
	// The named collaborator list is authoritative over the declared
	// effectif when both are present.
	counted := make(map[string]int)
	for _, row := range collabs.Rows {
		counted[collabs.Get(row, "organisation_id")]++
	}
	for id, n := range counted {
		if org, ok := index[id]; ok {
			org.HeadCount = n
		}
	}

	actions, n, err := ReadTable(logger, paths.Actions)
	if err != nil {
		return res, err
	}
	res.SkippedRows += n
	actionIndex := make(map[string]*RawAction)
	actionOwner := make(map[string]string)
	for _, row := range actions.Rows {
		orgID := actions.Get(row, "organisation_id")
		actionID := actions.Get(row, "id")
		if actionID == "" {
			res.SkippedRows++
			continue
		}
		if _, ok := index[orgID]; !ok {
			// Child without a surviving root (or beyond the limit cut).
			continue
		}
		if _, dup := actionIndex[actionID]; dup {
			// Action ids are unique in the registry; a second owner claiming
			// the same id is a corrupt row, not a shared action.
			res.SkippedRows++
			logger.Warn("Skipping duplicate action id",
				zap.String("action", actionID),
				zap.String("organisation", orgID))
			continue
		}
		actionIndex[actionID] = &RawAction{
			ID:          actionID,
			PeriodStart: actions.Get(row, "date_debut"),
			PeriodEnd:   actions.Get(row, "date_fin"),
			Subject:     Clean(actions.Get(row, "objet")),
		}
		actionOwner[actionID] = orgID
	}

	targets, n, err := ReadTable(logger, paths.ActionTargets)
	if err != nil {
		return res, err
	}
	res.SkippedRows += n
	for _, row := range targets.Rows {
		if action, ok := actionIndex[targets.Get(row, "action_id")]; ok {
			action.Targets = append(action.Targets, RawTarget{
				Legislator: targets.Get(row, "responsable_public"),
				Text:       Clean(targets.Get(row, "texte_vise")),
			})
		}
	}

	// Attach actions in table order so a re-run assembles identically.
	attached := make(map[string]bool, len(actionIndex))
	for _, row := range actions.Rows {
		actionID := actions.Get(row, "id")
		action, ok := actionIndex[actionID]
		if !ok || attached[actionID] {
			continue
		}
		attached[actionID] = true
		org := index[actionOwner[actionID]]
		org.Actions = append(org.Actions, *action)
	}

	res.Organizations = make([]RawOrganization, 0, len(ordered))
	for _, id := range ordered {
		res.Organizations = append(res.Organizations, *index[id])
	}
	return res, nil
}

func parseInt64(s string) int64 {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
