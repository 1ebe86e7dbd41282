package runlog

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/vbattery/core/battery"
)

var base = time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC)

func sampleRecords() []Record {
	ok := NewRecord(base)
	ok.Start = base.Add(-25 * time.Hour)
	ok.End = base.Add(-2 * time.Hour)
	ok.Seed = battery.State{Stock: 1000}
	ok.Final = battery.State{Stock: 1500, Discharge: 20}
	ok.Hours = 24
	ok.Published = map[string]bool{"sensor.stock": true}

	failed := NewRecord(base.Add(24 * time.Hour))
	failed.Defaulted = []battery.Field{battery.FieldGridDraw}
	failed.Published = map[string]bool{"sensor.stock": false}
	failed.Error = "publish sensor.stock: status 500"

	dry := NewRecord(base.Add(48 * time.Hour))
	dry.DryRun = true
	return []Record{ok, failed, dry}
}

func TestRecord_JSON(t *testing.T) {
	rec := sampleRecords()[1]
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, k := range []string{"id", "timestamp", "start", "end", "seed", "defaulted", "final", "hours", "published", "error"} {
		assert.Contains(t, m, k)
	}
	assert.True(t, rec.Failed())
	assert.NotEqual(t, sampleRecords()[0].ID, sampleRecords()[0].ID, "ids are unique")
}

func TestQuery_Match(t *testing.T) {
	recs := sampleRecords()
	assert.True(t, Query{}.Match(recs[0]))
	assert.False(t, Query{Start: base.Add(time.Hour)}.Match(recs[0]))
	assert.True(t, Query{Start: base, End: base}.Match(recs[0]), "bounds are inclusive")
	assert.False(t, Query{End: base.Add(time.Hour)}.Match(recs[1]))
	assert.False(t, Query{FailedOnly: true}.Match(recs[0]))
	assert.True(t, Query{FailedOnly: true}.Match(recs[1]))
}

func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	recs := sampleRecords()
	for _, r := range recs {
		require.NoError(t, s.Append(ctx, r))
	}

	all, err := s.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, recs[0].ID, all[0].ID)
	assert.Equal(t, recs[0].Final, all[0].Final)
	assert.Equal(t, recs[0].Published, all[0].Published)
	assert.True(t, recs[0].Start.Equal(all[0].Start))

	failed, err := s.Query(ctx, Query{FailedOnly: true})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, recs[1].Error, failed[0].Error)
	assert.Equal(t, []battery.Field{battery.FieldGridDraw}, failed[0].Defaulted)

	window, err := s.Query(ctx, Query{Start: base.Add(time.Hour), End: base.Add(48 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.True(t, window[1].DryRun)
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	storeContract(t, s)
}

func TestRotatingJSONLStore(t *testing.T) {
	s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "logs", "runs.jsonl"), 1, 5, 0)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	storeContract(t, s)
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.jsonl")
	s, err := NewRotatingJSONLStore(path, 1, 10, 0)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	rec := sampleRecords()[0]
	rec.Error = strings.Repeat("x", 2048)
	const n = 1200
	ctx := context.Background()
	for i := 0; i < n; i++ {
		rec.Timestamp = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Append(ctx, rec))
	}
	backups, err := filepath.Glob(filepath.Join(dir, "runs-*.jsonl"))
	require.NoError(t, err)
	assert.NotEmpty(t, backups, "expected rotated files")

	out, err := s.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, out, n)
	assert.True(t, out[0].Timestamp.Equal(base))
	assert.True(t, out[n-1].Timestamp.Equal(base.Add((n-1)*time.Minute)))
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	storeContract(t, s)
}

func TestNopStore(t *testing.T) {
	var s Store = NopStore{}
	require.NoError(t, s.Append(context.Background(), Record{}))
	out, err := s.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.Empty(t, out)
}
