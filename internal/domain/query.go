package domain

import (
	"fmt"
	"strings"
)

// TokenSeparator separates multiple enum members inside one filter value,
// e.g. status=active.inactive.
const TokenSeparator = "."

// SortDirection is the ordering direction of the listing.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Combinator decides how multiple filter predicates are merged.
type Combinator string

const (
	CombinatorAnd Combinator = "and"
	CombinatorOr  Combinator = "or"
)

// ParseCombinator maps "or" to CombinatorOr and everything else to CombinatorAnd.
func ParseCombinator(s string) Combinator {
	if s == string(CombinatorOr) {
		return CombinatorOr
	}
	return CombinatorAnd
}

// TextOperator is the comparison applied by the title filter.
type TextOperator string

const (
	TextILike      TextOperator = "ilike"
	TextNotILike   TextOperator = "notIlike"
	TextStartsWith TextOperator = "startsWith"
	TextEndsWith   TextOperator = "endsWith"
	TextEq         TextOperator = "eq"
	TextNotEq      TextOperator = "notEq"
	TextIsNull     TextOperator = "isNull"
	TextIsNotNull  TextOperator = "isNotNull"
)

// ParseTextOperator returns the named operator; unknown names fall back to TextILike.
func ParseTextOperator(s string) TextOperator {
	switch op := TextOperator(s); op {
	case TextILike, TextNotILike, TextStartsWith, TextEndsWith,
		TextEq, TextNotEq, TextIsNull, TextIsNotNull:
		return op
	default:
		return TextILike
	}
}

// NeedsValue reports whether the operator compares against a value.
func (op TextOperator) NeedsValue() bool {
	return op != TextIsNull && op != TextIsNotNull
}

// Sort is the requested ordering. Column is untrusted and is resolved
// against the known task columns by the query planner.
type Sort struct {
	Column    string        `json:"column"`
	Direction SortDirection `json:"direction"`
}

// TextFilter is the optional title filter.
type TextFilter struct {
	Value    string       `json:"value"`
	Operator TextOperator `json:"operator"`
}

// EnumFilter restricts one enumerated column to a set of members.
// A present filter with no Values matches no rows.
type EnumFilter struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// TaskQuery is the validated, normalized form of one listing request.
type TaskQuery struct {
	Page     int          `json:"page"`
	PerPage  int          `json:"per_page"`
	Sort     Sort         `json:"sort"`
	Title    *TextFilter  `json:"title,omitempty"`
	Filters  []EnumFilter `json:"filters,omitempty"`
	Operator Combinator   `json:"operator"`
}

// Offset returns the number of rows skipped before the requested page.
func (q TaskQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// Key returns a canonical string identifying the query, used for caching.
func (q TaskQuery) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "p=%d|pp=%d|s=%s.%s|op=%s", q.Page, q.PerPage, q.Sort.Column, q.Sort.Direction, q.Operator)
	if q.Title != nil {
		fmt.Fprintf(&b, "|title=%s~%s", q.Title.Value, q.Title.Operator)
	}
	for _, f := range q.Filters {
		fmt.Fprintf(&b, "|%s=%s", f.Column, strings.Join(f.Values, TokenSeparator))
	}
	return b.String()
}
