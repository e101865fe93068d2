package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remote-agent-terminal/ttyclient/internal/config"
	"github.com/remote-agent-terminal/ttyclient/internal/db"
	"github.com/remote-agent-terminal/ttyclient/internal/model"
	"github.com/remote-agent-terminal/ttyclient/internal/repository"
)

func seedJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")

	database, err := db.Open(path)
	require.NoError(t, err)
	defer database.Close()

	repo := repository.NewAttemptRepository(database)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &model.Attempt{ID: "a1", Attempt: 1, URL: "ws://h/t/ws", State: model.AttemptStateConnecting, StartedAt: start}))
	require.NoError(t, repo.MarkActive(ctx, "a1", start.Add(time.Second)))
	require.NoError(t, repo.MarkClosed(ctx, "a1", start.Add(61*time.Second), "EOF", 2*time.Second))
	require.NoError(t, repo.UpdatePreviewLine(ctx, "a1", "user@host:~$ exit"))

	require.NoError(t, repo.Create(ctx, &model.Attempt{ID: "a2", Attempt: 2, URL: "ws://h/t/ws", State: model.AttemptStateConnecting, StartedAt: start.Add(63 * time.Second)}))
	require.NoError(t, repo.MarkClosed(ctx, "a2", start.Add(64*time.Second), "connection refused", 2*time.Second))

	return path
}

func TestRunHistoryTable(t *testing.T) {
	path := seedJournal(t)

	var out bytes.Buffer
	require.NoError(t, runHistory(context.Background(), &config.History{Journal: path, Limit: 10}, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ATTEMPT"))
	assert.True(t, strings.HasPrefix(lines[1], "2 "))
	assert.Contains(t, lines[1], "connection refused")
	assert.True(t, strings.HasPrefix(lines[2], "1 "))
	assert.Contains(t, lines[2], "1m0s")
	assert.Contains(t, lines[2], "user@host:~$ exit")
}

func TestRunHistoryJSON(t *testing.T) {
	path := seedJournal(t)

	var out bytes.Buffer
	require.NoError(t, runHistory(context.Background(), &config.History{Journal: path, Limit: 1, JSON: true}, &out))

	var attempts []model.Attempt
	require.NoError(t, json.Unmarshal(out.Bytes(), &attempts))
	require.Len(t, attempts, 1)
	assert.Equal(t, "a2", attempts[0].ID)
	assert.Nil(t, attempts[0].ActiveAt)
}

func TestRunHistoryMissingJournal(t *testing.T) {
	err := runHistory(context.Background(), &config.History{Journal: filepath.Join(t.TempDir(), "none.db")}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("  short  ", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
