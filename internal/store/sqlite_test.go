package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/firm-research/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testSubject() model.Subject {
	return model.Subject{URL: "https://smithlaw.example", Name: "Smith Law"}
}

// --- Runs ---

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testSubject())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "Smith Law", got.Subject.Name)
	assert.Nil(t, got.Record)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_UpdateRunStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testSubject())
	require.NoError(t, err)

	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusExtracting))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusExtracting, got.Status)
}

func TestSQLite_UpdateRunStatus_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.UpdateRunStatus(context.Background(), "missing", model.RunStatusComplete)
	require.Error(t, err)
}

func TestSQLite_UpdateRunResult(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testSubject())
	require.NoError(t, err)

	rec := model.NewResearchRecord(testSubject())
	rec.Location = model.Location{City: "Denver", Region: "CO"}.WithSource(model.SourceScrapedValidated)
	rec.DataQuality.ComputeOverall()

	require.NoError(t, st.UpdateRunResult(ctx, run.ID, rec))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Record)
	assert.Equal(t, "Denver", got.Record.Location.City)
	assert.Equal(t, 8, got.Record.Location.Confidence)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testSubject())
	require.NoError(t, err)

	require.NoError(t, st.FailRun(ctx, run.ID, "site unreachable"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "site unreachable", got.Error)
	assert.Nil(t, got.Record)
}

func TestSQLite_ListRuns_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, model.Subject{URL: "https://a.example"})
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, model.Subject{URL: "https://b.example"})
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, a.ID, model.RunStatusComplete))

	complete, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, a.ID, complete[0].ID)

	byURL, err := st.ListRuns(ctx, RunFilter{SubjectURL: "https://b.example"})
	require.NoError(t, err)
	require.Len(t, byURL, 1)
	assert.Equal(t, "https://b.example", byURL[0].Subject.URL)

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLite_ListRuns_Limit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := st.CreateRun(ctx, model.Subject{URL: "https://x.example"})
		require.NoError(t, err)
	}

	runs, err := st.ListRuns(ctx, RunFilter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

// --- Page cache ---

func TestSQLite_PageCache_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	page := model.RenderedPage{URL: "https://smithlaw.example/team", Title: "Team", Content: "Jane A. Smith, Partner"}
	require.NoError(t, st.SetCachedPage(ctx, page, time.Hour))

	got, err := st.GetCachedPage(ctx, page.URL)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Team", got.Title)
	assert.Equal(t, page.Content, got.Content)
}

func TestSQLite_PageCache_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetCachedPage(context.Background(), "https://unknown.example")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_PageCache_Expired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	page := model.RenderedPage{URL: "https://old.example", Content: "stale"}
	require.NoError(t, st.SetCachedPage(ctx, page, -time.Hour))

	got, err := st.GetCachedPage(ctx, page.URL)
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := st.DeleteExpiredPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
