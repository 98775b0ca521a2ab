package subject

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datasubjects/internal/catalog"
	"github.com/roach88/datasubjects/internal/schema"
	"github.com/roach88/datasubjects/internal/testutil"
)

func newService(exec Executor, c *catalog.Static, opts ...Option) *Service {
	opts = append([]Option{WithLogger(discardLogger()), WithOperationIDs(NewFixedGenerator())}, opts...)
	return New(c, c, exec, opts...)
}

func TestEmptyKeys_NoExecutorCalls(t *testing.T) {
	exec := &recordingExecutor{}
	hookCalled := false
	svc := newService(exec, testutil.VisitLogCatalog(),
		WithErasureHook(func(context.Context, []schema.VisitKey) (map[string]int64, error) {
			hookCalled = true
			return nil, nil
		}))
	ctx := context.Background()

	counts, err := svc.DeleteDataSubjects(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, counts)
	assert.Empty(t, counts)

	exports, err := svc.ExportDataSubjects(ctx, []schema.VisitKey{})
	require.NoError(t, err)
	assert.NotNil(t, exports)
	assert.Empty(t, exports)

	assert.Zero(t, exec.calls)
	assert.False(t, hookCalled)
}

func TestDelete_ProcessingOrder(t *testing.T) {
	exec := &recordingExecutor{}
	svc := newService(exec, testutil.VisitLogCatalog())

	counts, err := svc.DeleteDataSubjects(context.Background(), []schema.VisitKey{testutil.VisitA})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"custom_event",
		"order_note",
		"log_conversion",
		"log_link_visit_action",
		"log_visit",
	}, exec.deletes, "bridges outlive the tables joining through them; action names are never erased")
	assert.NotContains(t, counts, "log_action")
}

func TestDelete_ChildLinkVisit(t *testing.T) {
	c := catalog.MustStatic([]schema.TableDescriptor{
		{Name: "log_visit", VisitJoinColumn: "idvisit"},
		{Name: "child", Bridges: []schema.Bridge{{Table: "log_link_visit_action", Column: "idlink_va"}}},
		{Name: "log_link_visit_action", ActionJoinColumn: "idaction_url"},
	})
	exec := &recordingExecutor{}
	svc := newService(exec, c)

	_, err := svc.DeleteDataSubjects(context.Background(), []schema.VisitKey{{SiteID: 1, VisitID: 1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"child", "log_link_visit_action", "log_visit"}, exec.deletes)
}

func TestDelete_UnresolvableFailsBeforeAnyDelete(t *testing.T) {
	tables := append(testutil.VisitLogTables(), schema.TableDescriptor{
		Name:    "orphan",
		Bridges: []schema.Bridge{{Table: "nowhere", Column: "x"}},
	})
	exec := &recordingExecutor{}
	svc := newService(exec, catalog.MustStatic(tables))

	_, err := svc.DeleteDataSubjects(context.Background(), []schema.VisitKey{testutil.VisitA})
	require.Error(t, err)
	assert.True(t, IsUnresolvable(err))
	assert.Contains(t, err.Error(), "orphan")
	assert.Empty(t, exec.deletes)
}

func TestDelete_CycleFails(t *testing.T) {
	tables := append(testutil.VisitLogTables(),
		schema.TableDescriptor{Name: "a", Bridges: []schema.Bridge{{Table: "b", Column: "x"}}},
		schema.TableDescriptor{Name: "b", Bridges: []schema.Bridge{{Table: "a", Column: "x"}}},
	)
	exec := &recordingExecutor{}
	svc := newService(exec, catalog.MustStatic(tables))

	_, err := svc.DeleteDataSubjects(context.Background(), []schema.VisitKey{testutil.VisitA})
	require.Error(t, err)
	assert.Equal(t, ErrCodeCycle, Code(err))
	assert.Empty(t, exec.deletes)
}

func TestDelete_MutualBridgesOnDirectJoinTables(t *testing.T) {
	c := catalog.MustStatic([]schema.TableDescriptor{
		{Name: "log_visit", VisitJoinColumn: "idvisit"},
		{Name: "log_link_visit_action", ActionJoinColumn: "idaction_url"},
		{Name: "log_conversion", VisitJoinColumn: "idvisit",
			Bridges: []schema.Bridge{{Table: "log_conversion_item", Column: "idorder"}}},
		{Name: "log_conversion_item", VisitJoinColumn: "idvisit",
			Bridges: []schema.Bridge{{Table: "log_conversion", Column: "idorder"}}},
	})
	exec := &recordingExecutor{}
	svc := newService(exec, c)

	counts, err := svc.DeleteDataSubjects(context.Background(), []schema.VisitKey{{SiteID: 1, VisitID: 1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"log_conversion", "log_conversion_item", "log_link_visit_action", "log_visit"}, exec.deletes)
	assert.Len(t, counts, 4)
}

func TestDelete_ExecutorFailureAborts(t *testing.T) {
	exec := &recordingExecutor{failDelete: "log_conversion"}
	svc := newService(exec, testutil.VisitLogCatalog())

	_, err := svc.DeleteDataSubjects(context.Background(), []schema.VisitKey{testutil.VisitA})
	require.Error(t, err)
	assert.Equal(t, ErrCodeExecution, Code(err))
	assert.Equal(t, []string{"custom_event", "order_note"}, exec.deletes)
}

func TestDelete_HookSeedsResult(t *testing.T) {
	exec := &recordingExecutor{}
	svc := newService(exec, testutil.VisitLogCatalog(),
		WithErasureHook(func(_ context.Context, keys []schema.VisitKey) (map[string]int64, error) {
			return map[string]int64{"plugin_data": int64(len(keys)), "log_visit": 99}, nil
		}))

	counts, err := svc.DeleteDataSubjects(context.Background(), []schema.VisitKey{testutil.VisitA, testutil.VisitB})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["plugin_data"])
	assert.Equal(t, int64(1), counts["log_visit"], "core counts replace hook counts")
}

func TestDelete_HookFailure(t *testing.T) {
	exec := &recordingExecutor{}
	svc := newService(exec, testutil.VisitLogCatalog(),
		WithErasureHook(func(context.Context, []schema.VisitKey) (map[string]int64, error) {
			return nil, errors.New("plugin down")
		}))

	_, err := svc.DeleteDataSubjects(context.Background(), []schema.VisitKey{testutil.VisitA})
	require.Error(t, err)
	assert.True(t, IsHookError(err))
	assert.Contains(t, err.Error(), "plugin down")
	assert.Empty(t, exec.deletes)
}

func TestExport_SkipsUnresolvable(t *testing.T) {
	tables := append(testutil.VisitLogTables(), schema.TableDescriptor{
		Name:    "orphan",
		Bridges: []schema.Bridge{{Table: "nowhere", Column: "x"}},
	})
	exec := &recordingExecutor{}
	svc := newService(exec, catalog.MustStatic(tables, testutil.VisitLogDimensions()...))

	exports, err := svc.ExportDataSubjects(context.Background(), []schema.VisitKey{testutil.VisitA})
	require.NoError(t, err)

	assert.NotContains(t, exports, "orphan")
	assert.NotContains(t, exports, "log_action")
	assert.Equal(t, []string{
		"order_note",
		"log_visit",
		"log_link_visit_action",
		"log_conversion",
		"custom_event",
	}, exports.Keys(), "empty action-name lookups are omitted")
}

func TestExport_BoundedFanOut(t *testing.T) {
	exec := &recordingExecutor{delay: 5 * time.Millisecond}
	svc := newService(exec, testutil.VisitLogCatalog(), WithWorkers(2))

	_, err := svc.ExportDataSubjects(context.Background(), []schema.VisitKey{testutil.VisitA})
	require.NoError(t, err)

	assert.Len(t, exec.selects, 6, "five tables and one action-name lookup")
	assert.LessOrEqual(t, exec.maxSeen.Load(), int32(2))
}

func TestExport_HookOverrides(t *testing.T) {
	exec := &recordingExecutor{}
	svc := newService(exec, testutil.VisitLogCatalog(),
		WithExportHook(func(context.Context, []schema.VisitKey) (map[string][]schema.Row, error) {
			return map[string][]schema.Row{
				"log_visit":   {{"from": "hook"}},
				"plugin_data": {{"k": "v"}},
			}, nil
		}))

	exports, err := svc.ExportDataSubjects(context.Background(), []schema.VisitKey{testutil.VisitA})
	require.NoError(t, err)
	assert.Equal(t, []schema.Row{{"from": "hook"}}, exports["log_visit"])
	assert.Equal(t, []schema.Row{{"k": "v"}}, exports["plugin_data"])
}

func TestExport_HookFailure(t *testing.T) {
	exec := &recordingExecutor{}
	svc := newService(exec, testutil.VisitLogCatalog(),
		WithExportHook(func(context.Context, []schema.VisitKey) (map[string][]schema.Row, error) {
			return nil, errors.New("plugin down")
		}))

	_, err := svc.ExportDataSubjects(context.Background(), []schema.VisitKey{testutil.VisitA})
	require.Error(t, err)
	assert.True(t, IsHookError(err))
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Equal(t, "b", g.Generate())

	assert.Equal(t, "test-operation", NewFixedGenerator().Generate())
}

func TestUUIDv7Generator(t *testing.T) {
	var g UUIDv7Generator
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestOperationError(t *testing.T) {
	cause := errors.New("boom")
	err := &OperationError{Code: ErrCodeExecution, OperationID: "op-1", Table: "log_visit", Err: cause}

	assert.Equal(t, "EXECUTION_FAILED: boom (operation=op-1, table=log_visit)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorCode(""), Code(cause))
}
