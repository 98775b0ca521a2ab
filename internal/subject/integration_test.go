package subject

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datasubjects/internal/schema"
	"github.com/roach88/datasubjects/internal/store"
	"github.com/roach88/datasubjects/internal/testutil"
)

const fixturePrefix = "matomo_"

func openVisitLog(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("sqlite3", filepath.Join(t.TempDir(), "visits.db"), fixturePrefix)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	testutil.CreateVisitLog(t, s.DB(), fixturePrefix)
	return s
}

func newSQLiteService(s *store.Store, opts ...Option) *Service {
	opts = append([]Option{WithTablePrefix(fixturePrefix)}, opts...)
	return newService(s, testutil.VisitLogCatalog(), opts...)
}

func TestSQLite_Export(t *testing.T) {
	s := openVisitLog(t)
	svc := newSQLiteService(s)

	exports, err := svc.ExportDataSubjects(context.Background(), []schema.VisitKey{testutil.VisitA})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"order_note",
		"log_visit",
		"log_link_visit_action",
		"log_conversion",
		"log_action_log_link_visit_action_idaction_url",
		"custom_event",
	}, exports.Keys())

	visit := exports["log_visit"]
	require.Len(t, visit, 1)
	assert.Equal(t, "dead", visit[0]["idvisitor"])
	assert.Equal(t, "192.168.1.7", visit[0]["location_ip"])
	assert.Equal(t, "smartphone", visit[0]["config_device_type"])
	assert.Equal(t, int64(1), visit[0]["idsite"])

	events := exports["custom_event"]
	require.Len(t, events, 2)
	assert.Equal(t, testutil.CompressedNote, events[0]["payload"])
	assert.Equal(t, "plain", events[1]["payload"])
	assert.Equal(t, int64(1), events[0]["idsite"], "idsite borrowed from the link table")

	notes := exports["order_note"]
	require.Len(t, notes, 1)
	assert.Equal(t, "gift wrap", notes[0]["note"])

	assert.Equal(t, []schema.Row{
		{"idaction": int64(1), "name": "http://www.example.com/home"},
		{"idaction": int64(2), "name": "https://example.com/cart"},
	}, exports["log_action_log_link_visit_action_idaction_url"])
}

func TestSQLite_ExportMismatchedSite(t *testing.T) {
	s := openVisitLog(t)
	svc := newSQLiteService(s)

	exports, err := svc.ExportDataSubjects(context.Background(), []schema.VisitKey{testutil.MismatchedVisit})
	require.NoError(t, err)
	for _, key := range exports.Keys() {
		assert.Empty(t, exports[key], key)
	}
}

func TestSQLite_Erase(t *testing.T) {
	s := openVisitLog(t)
	svc := newSQLiteService(s)

	counts, err := svc.DeleteDataSubjects(context.Background(), []schema.VisitKey{testutil.VisitA})
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{
		"custom_event":          2,
		"order_note":            1,
		"log_conversion":        1,
		"log_link_visit_action": 2,
		"log_visit":             1,
	}, map[string]int64(counts))

	db := s.DB()
	assert.Equal(t, 1, testutil.CountRows(t, db, "matomo_custom_event"))
	assert.Equal(t, 1, testutil.CountRows(t, db, "matomo_order_note"))
	assert.Equal(t, 1, testutil.CountRows(t, db, "matomo_log_conversion"))
	assert.Equal(t, 2, testutil.CountRows(t, db, "matomo_log_link_visit_action"))
	assert.Equal(t, 2, testutil.CountRows(t, db, "matomo_log_visit"))
	assert.Equal(t, 3, testutil.CountRows(t, db, "matomo_log_action"), "action names are never erased")
}

func TestSQLite_RoundTrip(t *testing.T) {
	s := openVisitLog(t)
	svc := newSQLiteService(s)
	ctx := context.Background()
	keys := []schema.VisitKey{testutil.VisitA, testutil.VisitB}

	before, err := svc.ExportDataSubjects(ctx, keys)
	require.NoError(t, err)
	require.NotEmpty(t, before["log_visit"])

	counts, err := svc.DeleteDataSubjects(ctx, keys)
	require.NoError(t, err)

	after, err := svc.ExportDataSubjects(ctx, keys)
	require.NoError(t, err)

	for table := range counts {
		assert.Empty(t, after[table], table)
	}
	assert.NotContains(t, after, "log_action_log_link_visit_action_idaction_url")

	other, err := svc.ExportDataSubjects(ctx, []schema.VisitKey{testutil.OtherVisit})
	require.NoError(t, err)
	assert.Len(t, other["log_visit"], 1, "other visits survive")
	assert.Len(t, other["custom_event"], 1)
	assert.Len(t, other["order_note"], 1)
}
