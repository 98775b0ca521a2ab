// Package catalog provides TableCatalog and DimensionRegistry implementations.
//
// Static holds descriptors in memory and is what tests and embedders use.
// Load reads the same information from CUE files, so independently developed
// modules can each ship a file declaring their tables and dimensions. All
// files in a catalog directory share one CUE package:
//
//	package visitlog
//
//	table: log_conversion: {
//		id_columns: ["idvisit", "idgoal", "buster"]
//		visit_join_column: "idvisit"
//	}
//
//	table: log_custom_event: {
//		id_columns: ["id"]
//		bridges: [{table: "log_link_visit_action", column: "idlink_va"}]
//	}
//
//	dimension: visitor_ip: {
//		table:  "log_visit"
//		column: "location_ip"
//		binary: true
//		format: "ip"
//	}
//
// Bridges are a list because their order is the resolution priority.
package catalog
