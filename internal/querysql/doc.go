// Package querysql assembles the parameterized statements that reach a
// visit's rows through a resolved join path.
//
// Every statement has the same shape: a FROM clause that starts at the
// target table and LEFT JOINs each step of the path, and a WHERE clause that
// is a disjunction over visit keys on the selectable table:
//
//	FROM p_goal_detail AS goal_detail
//	LEFT JOIN p_log_conversion AS log_conversion ON goal_detail.idorder = log_conversion.idorder
//	LEFT JOIN p_log_visit AS log_visit ON log_conversion.idvisit = log_visit.idvisit
//	WHERE (log_visit.idsite = ? AND log_visit.idvisit = ?) OR (...)
//
// Values are never interpolated; identifiers are validated before use.
// Every select carries an ORDER BY so results are deterministic.
package querysql
