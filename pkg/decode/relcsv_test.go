package decode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeTestRegistry(t *testing.T) RegistryPaths {
	t.Helper()
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}
	return RegistryPaths{
		Organizations: write("organisations.csv",
			"id;denomination;categorie;budget;effectif\n"+
				"ORG1;\"Syndicat des &Eacute;nergies\";syndicat;150000;0\n"+
				"ORG2;\"Cabinet \"\"Influence\"\" SARL\";cabinet;75000;0\n"+
				"ORG3;Association Citoyenne;association;0;0\n"),
		Sectors: write("secteurs.csv",
			"organisation_id;secteur\n"+
				"ORG1;energie\n"+
				"ORG1;environnement\n"+
				"ORG2;finance\n"+
				"ORG3;sante\n"),
		Collaborators: write("collaborateurs.csv",
			"organisation_id;nom\n"+
				"ORG1;Martin\nORG1;Durand\nORG2;Petit\n"),
		Actions: write("actions.csv",
			"id;organisation_id;date_debut;date_fin;objet\n"+
				"ACT1;ORG1;2024-01-01;2024-06-30;\"Loi &eacute;nergie\"\n"+
				"ACT2;ORG2;2024-03-01;2024-03-31;Budget\n"+
				"ACT3;ORG3;2024-04-01;2024-04-30;Santé publique\n"),
		ActionTargets: write("action_cibles.csv",
			"action_id;responsable_public;texte_vise\n"+
				"ACT1;PA1234;Projet de loi n° 42\n"+
				"ACT2;;Texte budget\n"),
	}
}

func TestAssembleRegistryJoins(t *testing.T) {
	res, err := AssembleRegistry(zaptest.NewLogger(t), writeTestRegistry(t), 0)
	require.NoError(t, err)
	require.Len(t, res.Organizations, 3)

	byID := map[string]RawOrganization{}
	for _, o := range res.Organizations {
		byID[o.ID] = o
	}

	org1 := byID["ORG1"]
	assert.Equal(t, "Syndicat des Énergies", org1.Name)
	assert.Equal(t, int64(150000), org1.Budget)
	assert.Equal(t, 2, org1.HeadCount)
	assert.ElementsMatch(t, []string{"energie", "environnement"}, org1.Sectors)
	require.Len(t, org1.Actions, 1)
	assert.Equal(t, "Loi énergie", org1.Actions[0].Subject)
	require.Len(t, org1.Actions[0].Targets, 1)
	assert.Equal(t, "PA1234", org1.Actions[0].Targets[0].Legislator)

	// Embedded quotes survive the tolerant parse.
	assert.Equal(t, `Cabinet "Influence" SARL`, byID["ORG2"].Name)
}

func TestAssembleRegistryNoCrossEntityLeakage(t *testing.T) {
	res, err := AssembleRegistry(zaptest.NewLogger(t), writeTestRegistry(t), 0)
	require.NoError(t, err)
	for _, org := range res.Organizations {
		for _, action := range org.Actions {
			switch org.ID {
			case "ORG1":
				assert.Equal(t, "ACT1", action.ID)
			case "ORG2":
				assert.Equal(t, "ACT2", action.ID)
			case "ORG3":
				assert.Equal(t, "ACT3", action.ID)
			}
		}
	}
}

func TestAssembleRegistryLimitBoundsJoins(t *testing.T) {
	res, err := AssembleRegistry(zaptest.NewLogger(t), writeTestRegistry(t), 1)
	require.NoError(t, err)
	require.Len(t, res.Organizations, 1)
	assert.Equal(t, "ORG1", res.Organizations[0].ID)
	// Children of truncated roots never attach anywhere.
	require.Len(t, res.Organizations[0].Actions, 1)
	assert.Equal(t, "ACT1", res.Organizations[0].Actions[0].ID)
}

func TestAssembleRegistryDuplicateActionIDStaysWithFirstOwner(t *testing.T) {
	paths := writeTestRegistry(t)
	dir := t.TempDir()
	p := filepath.Join(dir, "actions.csv")
	require.NoError(t, os.WriteFile(p, []byte(
		"id;organisation_id;date_debut;date_fin;objet\n"+
			"ACT1;ORG1;2024-01-01;2024-06-30;Energie\n"+
			"ACT1;ORG2;2024-02-01;2024-07-31;Finance\n"), 0o644))
	paths.Actions = p

	res, err := AssembleRegistry(zaptest.NewLogger(t), paths, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SkippedRows)

	byID := map[string]RawOrganization{}
	for _, o := range res.Organizations {
		byID[o.ID] = o
	}
	require.Len(t, byID["ORG1"].Actions, 1)
	assert.Equal(t, "Energie", byID["ORG1"].Actions[0].Subject)
	assert.Empty(t, byID["ORG2"].Actions)
}

func TestAssembleRegistryMissingTableIsFatal(t *testing.T) {
	paths := writeTestRegistry(t)
	paths.Actions = filepath.Join(t.TempDir(), "missing.csv")
	_, err := AssembleRegistry(zaptest.NewLogger(t), paths, 0)
	assert.Error(t, err)
}
