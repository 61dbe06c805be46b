package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"nvr-hls/internal/platform/database"
	"nvr-hls/internal/recordings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDatabase(t *testing.T, start time.Time, count int) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "recordings.db")
	db, err := database.Open(dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer func() { _ = database.Close(db) }()
	require.NoError(t, recordings.Migrate(db))

	for i := 0; i < count; i++ {
		created := start.Add(time.Duration(5*i) * time.Second)
		filename := fmt.Sprintf("%d.m4s", created.Unix())
		p := "/test/" + filename
		require.NoError(t, db.Create(&recordings.Segment{
			CameraIdentifier: "test",
			Category:         recordings.CategoryRecorder,
			Path:             p,
			Directory:        "test",
			Filename:         filename,
			CreatedAt:        created,
		}).Error)
		require.NoError(t, db.Create(&recordings.SegmentMeta{
			Path:      p,
			OrigCtime: created,
			Meta:      recordings.MetaDocument{M3U8: recordings.M3U8Meta{EXTINF: 5}},
		}).Error)
	}
	return dsn
}

func TestTimespansCmd_prints_duration(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	dsn := seedDatabase(t, start, 3)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--dsn", dsn,
		"--camera", "test",
		"timespans",
		"--from", strconv.FormatInt(start.Add(-time.Hour).Unix(), 10),
		"--to", strconv.FormatInt(start.Add(time.Hour).Unix(), 10),
	})
	require.NoError(t, cmd.Execute())

	var raw map[string][]map[string]int64
	require.NoError(t, json.Unmarshal(out.Bytes(), &raw))
	require.Len(t, raw["timespans"], 1)
	assert.Contains(t, raw["timespans"][0], "duration")

	var resp recordings.TimespansResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, []recordings.TimespanResponse{{
		Start:    start.Unix(),
		End:      start.Add(15 * time.Second).Unix(),
		Duration: 15,
	}}, resp.Timespans)
}

func TestTimespansCmd_inverted_range_fails(t *testing.T) {
	dsn := seedDatabase(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), 1)

	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--dsn", dsn, "--camera", "test", "timespans", "--from", "20", "--to", "10"})

	assert.ErrorIs(t, cmd.Execute(), recordings.ErrInvalidRange)
}
