package querysql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datasubjects/internal/schema"
)

var goalDetailPath = schema.JoinPath{
	Base: "goal_detail",
	Steps: []schema.JoinStep{
		{Table: "log_conversion", Condition: "goal_detail.idorder = log_conversion.idorder"},
		{Table: "log_visit", Condition: "log_conversion.idvisit = log_visit.idvisit"},
	},
	Selectable: "log_visit",
}

var twoVisits = []schema.VisitKey{{SiteID: 1, VisitID: 10}, {SiteID: 2, VisitID: 20}}

func TestBuild_FromAndWhere(t *testing.T) {
	a := NewAssembler("p_")

	stmt, err := a.Build(goalDetailPath, []string{"idorder", "idline"}, twoVisits)
	require.NoError(t, err)

	assert.Equal(t, "goal_detail", stmt.Target)
	assert.Equal(t,
		"p_goal_detail AS goal_detail"+
			" LEFT JOIN p_log_conversion AS log_conversion ON goal_detail.idorder = log_conversion.idorder"+
			" LEFT JOIN p_log_visit AS log_visit ON log_conversion.idvisit = log_visit.idvisit",
		stmt.From)
	assert.Equal(t,
		"(log_visit.idsite = ? AND log_visit.idvisit = ?) OR (log_visit.idsite = ? AND log_visit.idvisit = ?)",
		stmt.Where)
	assert.Equal(t, []any{int64(1), int64(10), int64(2), int64(20)}, stmt.Params)
	assert.Equal(t, []string{"goal_detail.idorder", "goal_detail.idline"}, stmt.OrderBy)
}

func TestBuild_AnchorHasNoJoins(t *testing.T) {
	a := NewAssembler("")
	path := schema.JoinPath{Base: "log_visit", Selectable: "log_visit"}

	stmt, err := a.Build(path, []string{"idvisit"}, []schema.VisitKey{{SiteID: 3, VisitID: 4}})
	require.NoError(t, err)
	assert.Equal(t, "log_visit AS log_visit", stmt.From)
	assert.NotContains(t, stmt.From, "JOIN")
	assert.Equal(t, "(log_visit.idsite = ? AND log_visit.idvisit = ?)", stmt.Where)
}

func TestBuild_DuplicateKeysTolerated(t *testing.T) {
	a := NewAssembler("")
	keys := []schema.VisitKey{{SiteID: 1, VisitID: 1}, {SiteID: 1, VisitID: 1}}

	stmt, err := a.Build(goalDetailPath, nil, keys)
	require.NoError(t, err)
	assert.Len(t, stmt.Params, 4)
	assert.Equal(t, []string{"log_visit.idsite", "log_visit.idvisit"}, stmt.OrderBy)
}

func TestBuild_Errors(t *testing.T) {
	a := NewAssembler("")

	_, err := a.Build(goalDetailPath, nil, nil)
	assert.True(t, errors.Is(err, ErrNoVisits))

	bad := goalDetailPath
	bad.Base = "goal detail"
	_, err = a.Build(bad, nil, twoVisits)
	assert.Error(t, err)

	_, err = a.Build(goalDetailPath, []string{"id; --"}, twoVisits)
	assert.Error(t, err)

	_, err = NewAssembler("bad-prefix").Build(goalDetailPath, nil, twoVisits)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prefix")
}

func TestDeleteSQL_Dialects(t *testing.T) {
	a := NewAssembler("p_")
	path := schema.JoinPath{
		Base:       "log_conversion",
		Steps:      []schema.JoinStep{{Table: "log_visit", Condition: "log_conversion.idvisit = log_visit.idvisit"}},
		Selectable: "log_visit",
	}
	stmt, err := a.Build(path, nil, []schema.VisitKey{{SiteID: 1, VisitID: 2}})
	require.NoError(t, err)

	from := "p_log_conversion AS log_conversion LEFT JOIN p_log_visit AS log_visit ON log_conversion.idvisit = log_visit.idvisit"

	tests := []struct {
		dialect Dialect
		want    string
	}{
		{SQLite, "DELETE FROM p_log_conversion WHERE rowid IN (SELECT log_conversion.rowid FROM " + from +
			" WHERE (log_visit.idsite = ? AND log_visit.idvisit = ?))"},
		{MySQL, "DELETE log_conversion FROM " + from + " WHERE (log_visit.idsite = ? AND log_visit.idvisit = ?)"},
		{Postgres, "DELETE FROM p_log_conversion WHERE ctid IN (SELECT log_conversion.ctid FROM " + from +
			" WHERE (log_visit.idsite = $1 AND log_visit.idvisit = $2))"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			sql, params := stmt.DeleteSQL(tt.dialect, a.PhysicalName(stmt.Target))
			assert.Equal(t, tt.want, sql)
			assert.Equal(t, []any{int64(1), int64(2)}, params)
		})
	}
}

func TestSelectSQL_AlwaysOrdered(t *testing.T) {
	a := NewAssembler("")
	stmt, err := a.Build(goalDetailPath, []string{"idorder"}, twoVisits)
	require.NoError(t, err)

	cols := ExportColumns("goal_detail", "log_visit", []schema.ColumnInfo{{Name: "idorder"}, {Name: "price"}})
	sql, params := stmt.SelectSQL(SQLite, cols)

	assert.Equal(t,
		"SELECT goal_detail.idorder AS idorder, goal_detail.price AS price, log_visit.idsite AS idsite FROM "+stmt.From+
			" WHERE "+stmt.Where+" ORDER BY goal_detail.idorder ASC",
		sql)
	assert.Len(t, params, 4)
	assert.NotContains(t, sql, "1 AND", "values must never be interpolated")

	pg, _ := stmt.SelectSQL(Postgres, cols)
	assert.Contains(t, pg, "log_visit.idsite = $1 AND log_visit.idvisit = $2")
	assert.Contains(t, pg, "log_visit.idsite = $3 AND log_visit.idvisit = $4")
}

func TestExportColumns(t *testing.T) {
	withSite := []schema.ColumnInfo{{Name: "idsite"}, {Name: "idvisit"}, {Name: "idvisit"}}
	assert.Equal(t, []string{"log_visit.idsite", "log_visit.idvisit"},
		ExportColumns("log_visit", "log_visit", withSite))

	noSite := []schema.ColumnInfo{{Name: "id"}, {Name: "payload"}}
	assert.Equal(t, []string{"custom.id", "custom.payload", "log_link_visit_action.idsite"},
		ExportColumns("custom", "log_link_visit_action", noSite))
}

func TestBuildActionNameLookup(t *testing.T) {
	a := NewAssembler("p_")
	stmt, err := a.BuildActionNameLookup("log_action", "log_link_visit_action", "idaction_url", "idvisit", twoVisits)
	require.NoError(t, err)

	assert.Equal(t,
		"p_log_action AS log_action INNER JOIN p_log_link_visit_action AS log_link_visit_action"+
			" ON log_link_visit_action.idaction_url = log_action.idaction",
		stmt.From)
	assert.Equal(t,
		"(log_link_visit_action.idsite = ? AND log_link_visit_action.idvisit = ?)"+
			" OR (log_link_visit_action.idsite = ? AND log_link_visit_action.idvisit = ?)",
		stmt.Where)

	sql, _ := stmt.SelectSQL(SQLite, ActionNameColumns("log_action"))
	assert.Contains(t, sql, "SELECT log_action.idaction AS idaction, log_action.name AS name, log_action.url_prefix AS url_prefix FROM")
	assert.Contains(t, sql, "ORDER BY log_action.idaction ASC")

	_, err = a.BuildActionNameLookup("log_action", "owner", "col", "idvisit", nil)
	assert.True(t, errors.Is(err, ErrNoVisits))
}

func TestParseDialect(t *testing.T) {
	for _, d := range Dialects {
		got, err := ParseDialect(string(d))
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	_, err := ParseDialect("oracle")
	assert.Error(t, err)
}
