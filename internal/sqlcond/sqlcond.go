// Package sqlcond compiles filter trees into SQL boolean conditions. The
// compiler is pure text assembly: it never touches a connection, and for a
// given filter tree and dialect its output is deterministic.
package sqlcond

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chronolith/chronolith/internal/schema"
	"github.com/chronolith/chronolith/pkg/casedb"
	"github.com/chronolith/chronolith/pkg/filter"
	"github.com/chronolith/chronolith/pkg/types"
)

// Condition is a compiled filter: the WHERE fragment plus the secondary
// relations the surrounding query must join for the fragment to resolve.
// Membership conditions correlate events with the tags or hash-set-hits
// relations, so compilation signals the joins here rather than leaving the
// query engine to re-inspect the tree.
type Condition struct {
	Where        string
	JoinTags     bool
	JoinHashHits bool
}

// Compile compiles a root filter for the given dialect. A nil root compiles
// to the dialect's neutral-true condition.
func Compile(root *filter.RootFilter, d casedb.Dialect) Condition {
	c := compiler{d: d}
	var where string
	if root == nil {
		where = d.TrueLiteral()
	} else {
		where = c.compile(root)
	}
	return Condition{
		Where:        where,
		JoinTags:     c.joinTags,
		JoinHashHits: c.joinHashHits,
	}
}

// CompileFilter compiles any filter subtree to its predicate text, for
// callers that need just the condition without join signaling.
func CompileFilter(f filter.Filter, d casedb.Dialect) string {
	c := compiler{d: d}
	return c.compile(f)
}

type compiler struct {
	d            casedb.Dialect
	joinTags     bool
	joinHashHits bool
}

// compile dispatches over the closed set of filter kinds. Any inactive node
// compiles to neutral-true; the per-kind rules below only ever see active
// nodes. The default branch is unreachable while the filter interface stays
// sealed.
func (c *compiler) compile(f filter.Filter) string {
	if f == nil || !f.IsActive() {
		return c.d.TrueLiteral()
	}
	switch ft := f.(type) {
	case *filter.RootFilter:
		return c.intersection(ft.SubFilters())
	case *filter.IntersectionFilter:
		return c.intersection(ft.SubFilters())
	case *filter.UnionFilter:
		return c.union(ft.SubFilters())
	case *filter.DataSourcesFilter:
		return c.dataSources(ft)
	case *filter.DataSourceFilter:
		return fmt.Sprintf("(datasource_id = %d)", ft.DataSourceID())
	case *filter.TagsFilter:
		return c.tags(ft)
	case *filter.TagNameFilter:
		c.joinTags = true
		return fmt.Sprintf("(events.event_id = tags.event_id AND tags.tag_name_id = %d)", ft.TagNameID())
	case *filter.HashHitsFilter:
		return c.hashHits(ft)
	case *filter.HashSetFilter:
		c.joinHashHits = true
		return fmt.Sprintf("(events.event_id = hash_set_hits.event_id AND hash_set_hits.hash_set_id = %d)", ft.HashSetID())
	case *filter.TextFilter:
		return c.text(ft)
	case *filter.DescriptionFilter:
		return c.description(ft)
	case *filter.HideKnownFilter:
		return "(" + c.d.NotEqual("known_state", strconv.Itoa(int(types.KnownGood))) + ")"
	case *filter.TypeFilter:
		return c.typeFilter(ft)
	default:
		panic(fmt.Sprintf("sqlcond: unknown filter kind %T", f))
	}
}

// intersection conjoins every member. Inactive and unrestrictive members
// contribute the true literal; a conjunction of nothing but true literals
// collapses to the bare literal.
func (c *compiler) intersection(subs []filter.Filter) string {
	var parts []string
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		parts = append(parts, c.compile(sub))
	}
	if len(parts) == 0 {
		return c.d.TrueLiteral()
	}
	return c.collapseAllTrue("(" + strings.Join(parts, " AND ") + ")")
}

// union disjoins every member. A member contributing the true literal,
// inactive members included, absorbs the whole disjunction; an empty union
// is also neutral-true.
func (c *compiler) union(subs []filter.Filter) string {
	var parts []string
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		part := c.compile(sub)
		if part == c.d.TrueLiteral() {
			return c.d.TrueLiteral()
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return c.d.TrueLiteral()
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func (c *compiler) dataSources(f *filter.DataSourcesFilter) string {
	ids := f.ActiveDataSourceIDs()
	if len(ids) == 0 {
		return c.d.TrueLiteral()
	}
	return fmt.Sprintf("(datasource_id IN (%s))", joinInt64s(ids))
}

func (c *compiler) tags(f *filter.TagsFilter) string {
	ids := f.ActiveTagNameIDs()
	if len(ids) == 0 {
		return c.d.FalseLiteral()
	}
	c.joinTags = true
	return fmt.Sprintf("(events.event_id = tags.event_id AND tags.tag_name_id IN (%s))", joinInt64s(ids))
}

func (c *compiler) hashHits(f *filter.HashHitsFilter) string {
	ids := f.ActiveHashSetIDs()
	if len(ids) == 0 {
		return c.d.FalseLiteral()
	}
	c.joinHashHits = true
	return fmt.Sprintf("(events.event_id = hash_set_hits.event_id AND hash_set_hits.hash_set_id IN (%s))", joinInt64s(ids))
}

// text matches the needle as a substring of any description column. Blank
// text restricts nothing.
func (c *compiler) text(f *filter.TextFilter) string {
	needle := strings.ToLower(strings.TrimSpace(f.Text()))
	if needle == "" {
		return c.d.TrueLiteral()
	}
	like := "'%" + escapeSingleQuotes(needle) + "%'"
	return fmt.Sprintf("((med_description LIKE %s) OR (full_description LIKE %s) OR (short_description LIKE %s))", like, like, like)
}

// description compares at the filter's own granularity, LIKE without
// wildcards being the original equality idiom.
func (c *compiler) description(f *filter.DescriptionFilter) string {
	op := "LIKE"
	if f.Mode() == filter.DescriptionExclude {
		op = "NOT LIKE"
	}
	column := schema.DescriptionColumn(f.Level())
	return fmt.Sprintf("(%s %s '%s')", column, op, escapeSingleQuotes(f.Description()))
}

// typeFilter compiles the type hierarchy. An all-selected hierarchy under
// an active root restricts nothing and collapses; otherwise the active
// branches' sub-types form an IN list, with no branches at all excluding
// everything.
func (c *compiler) typeFilter(f *filter.TypeFilter) string {
	if f.IsRoot() && f.FullySelected() {
		return c.d.TrueLiteral()
	}
	subs := f.ActiveSubTypes()
	if len(subs) == 0 {
		return c.d.FalseLiteral()
	}
	parts := make([]string, len(subs))
	for i, st := range subs {
		parts[i] = strconv.Itoa(st.Ordinal())
	}
	return fmt.Sprintf("(sub_type IN (%s))", strings.Join(parts, ", "))
}

// collapseAllTrue reduces a parenthesized conjunction whose every conjunct
// is the true literal to the bare true literal. The comparison ignores
// whitespace, so it is structural rather than a fixed-arity string match.
func (c *compiler) collapseAllTrue(cond string) string {
	t := c.d.TrueLiteral()
	squeezed := strings.Join(strings.Fields(cond), "")
	if squeezed == "()" {
		return t
	}
	if !strings.HasPrefix(squeezed, "(") || !strings.HasSuffix(squeezed, ")") {
		return cond
	}
	inner := squeezed[1 : len(squeezed)-1]
	for _, part := range strings.Split(inner, "AND") {
		if part != t {
			return cond
		}
	}
	return t
}

func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func joinInt64s(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}
