package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestCreateAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "train", "Portland, Oregon", "portland.osm", "osm")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "train", got.Command)
	assert.Equal(t, "Portland, Oregon", got.Region)
	assert.Equal(t, "portland.osm", got.Source)
	assert.Equal(t, "osm", got.Adapter)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.Nil(t, got.Summary)
	assert.Nil(t, got.FinishedAt)
	assert.False(t, got.StartedAt.IsZero())
}

func TestCompleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "train", "Berlin", "berlin.osm", "osm")
	require.NoError(t, err)

	acc := 0.93
	summary := &RunSummary{
		Edges:     1200,
		Accuracy:  &acc,
		ModelPath: "models/street_quality_Berlin.gob",
		Features:  []string{"highway", "width"},
	}
	require.NoError(t, s.CompleteRun(ctx, run.ID, summary))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusComplete, got.Status)
	require.NotNil(t, got.FinishedAt)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 1200, got.Summary.Edges)
	require.NotNil(t, got.Summary.Accuracy)
	assert.Equal(t, 0.93, *got.Summary.Accuracy)
	assert.Equal(t, []string{"highway", "width"}, got.Summary.Features)
}

func TestFailRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "apply", "", "roads.shp", "shapefile")
	require.NoError(t, err)

	require.NoError(t, s.FailRun(ctx, run.ID, eris.New("source not found")))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Contains(t, got.Error, "source not found")
	require.NotNil(t, got.FinishedAt)
}

func TestCompleteUnknownRun(t *testing.T) {
	s := newTestStore(t)
	err := s.CompleteRun(context.Background(), "no-such-id", &RunSummary{})
	assert.Error(t, err)
}

func TestGetUnknownRun(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "no-such-id")
	assert.Error(t, err)
}

func TestListRunsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mk := func(command, region string, fail bool) {
		run, err := s.CreateRun(ctx, command, region, "src", "osm")
		require.NoError(t, err)
		if fail {
			require.NoError(t, s.FailRun(ctx, run.ID, eris.New("boom")))
		} else {
			require.NoError(t, s.CompleteRun(ctx, run.ID, &RunSummary{Edges: 1}))
		}
	}
	mk("train", "Berlin", false)
	mk("train", "Portland", true)
	mk("apply", "Berlin", false)
	mk("score", "Portland", false)

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	trains, err := s.ListRuns(ctx, RunFilter{Command: "train"})
	require.NoError(t, err)
	assert.Len(t, trains, 2)

	berlin, err := s.ListRuns(ctx, RunFilter{Region: "Berlin"})
	require.NoError(t, err)
	assert.Len(t, berlin, 2)

	failed, err := s.ListRuns(ctx, RunFilter{Status: RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "train", failed[0].Command)

	both, err := s.ListRuns(ctx, RunFilter{Command: "train", Region: "Portland"})
	require.NoError(t, err)
	assert.Len(t, both, 1)
}

func TestListRunsLimitOffset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.CreateRun(ctx, "extract", "", "src", "geojson")
		require.NoError(t, err)
	}

	page, err := s.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := s.ListRuns(ctx, RunFilter{Limit: 10, Offset: 3})
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}
