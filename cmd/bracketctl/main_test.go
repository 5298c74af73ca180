package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTeams(t *testing.T, dir string, n int) string {
	t.Helper()
	teams := make([]models.Team, n)
	for i := range teams {
		teams[i] = models.Team{ID: 101 + i, Rating: float64(2000 - 100*i)}
	}
	raw, err := json.Marshal(teams)
	require.NoError(t, err)
	path := filepath.Join(dir, "teams.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(args, &out)
	return &out, err
}

func TestGenerateShowAndReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "brackets.db")
	teams := writeTeams(t, dir, 4)

	out, err := runCLI(t, "--db", dbPath, "generate", "-t", "9", "-f", "single_elimination", "--teams", teams, "--best-of", "3")
	require.NoError(t, err)

	var view brackets.View
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	require.Len(t, view.Matches, 3)

	var opener *models.Match
	for _, m := range view.Matches {
		if m.Code == "SE-R1-M1" {
			opener = m
		}
	}
	require.NotNil(t, opener)

	out, err = runCLI(t, "--db", dbPath, "report", opener.ID, "--score-a", "2", "--score-b", "0")
	require.NoError(t, err)
	var outcome brackets.Outcome
	require.NoError(t, json.Unmarshal(out.Bytes(), &outcome))
	assert.Equal(t, models.MatchStatusCompleted, outcome.Match.Status)

	// The result survives a fresh process.
	out, err = runCLI(t, "--db", dbPath, "show", "-t", "9")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	for _, m := range view.Matches {
		if m.ID == opener.ID {
			assert.Equal(t, models.MatchStatusCompleted, m.Status)
		}
	}

	_, err = runCLI(t, "--db", dbPath, "generate", "-t", "9", "-f", "single_elimination", "--teams", teams)
	assert.ErrorIs(t, err, brackets.ErrBracketLocked)
	assert.Equal(t, 1, exitCode(err))
}

func TestUsageErrors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "brackets.db")

	tests := map[string][]string{
		"unknown command": {"--db", dbPath, "explode"},
		"bad format":      {"--db", dbPath, "generate", "-t", "1", "-f", "ladder", "--teams", "x.json"},
		"missing match":   {"--db", dbPath, "report", "--score-a", "1", "--score-b", "0"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := runCLI(t, args...)
			var flagsErr *flags.Error
			require.ErrorAs(t, err, &flagsErr)
			assert.Equal(t, 2, exitCode(err))
		})
	}

	_, err := runCLI(t, "--help")
	assert.Equal(t, 0, exitCode(err))
}
