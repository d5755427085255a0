package database

import "github.com/d21hq/d21/internal/core"

// Id tiebreakers keep OFFSET paging stable when the primary key ties.
var startupOrderBy = map[core.SortOrder]string{
	core.SortNameAsc:       "s.name ASC, s.id",
	core.SortNameDesc:      "s.name DESC, s.id",
	core.SortCreatedAtAsc:  "s.created_at ASC, s.id",
	core.SortCreatedAtDesc: "s.created_at DESC, s.id",
	core.SortFoundedAtAsc:  "s.founded_at ASC NULLS LAST, s.id",
	core.SortFoundedAtDesc: "s.founded_at DESC NULLS LAST, s.id",
}

var directoryOrderBy = map[core.SortOrder]string{
	core.SortNameAsc:           "d.name ASC, d.id",
	core.SortNameDesc:          "d.name DESC, d.id",
	core.SortCreatedAtAsc:      "d.created_at ASC, d.id",
	core.SortCreatedAtDesc:     "d.created_at DESC, d.id",
	core.SortFeaturedOrderAsc:  "d.featured_order ASC NULLS LAST, d.created_at DESC, d.id",
	core.SortFeaturedOrderDesc: "d.featured_order DESC NULLS LAST, d.created_at DESC, d.id",
}

// startupOrder returns the ORDER BY clause for sort, defaulting to newest first.
func startupOrder(sort core.SortOrder) string {
	if o, ok := startupOrderBy[sort]; ok {
		return " ORDER BY " + o
	}
	return " ORDER BY " + startupOrderBy[core.SortCreatedAtDesc]
}

// directoryOrder returns the ORDER BY clause for sort, defaulting to newest first.
func directoryOrder(sort core.SortOrder) string {
	if o, ok := directoryOrderBy[sort]; ok {
		return " ORDER BY " + o
	}
	return " ORDER BY " + directoryOrderBy[core.SortCreatedAtDesc]
}
