package repository

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/mtlprog/casegrid/internal/domain"
)

// Op is the comparison a Predicate applies to its column.
type Op string

const (
	OpILike    Op = "ilike"     // Value is a LIKE pattern
	OpNotILike Op = "not_ilike" // Value is a LIKE pattern
	OpEq       Op = "eq"
	OpNotEq    Op = "not_eq"
	OpIsNull   Op = "is_null"
	OpNotNull  Op = "is_not_null"
	OpIn       Op = "in"   // Value is a []string with at least one member
	OpNone     Op = "none" // matches no rows
)

// Predicate is one filter clause of a listing query.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

var (
	matchAll  = sq.Expr("TRUE")
	matchNone = sq.Expr("FALSE")
)

// likeEscaper escapes LIKE metacharacters so user text is matched literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Contains returns an ILIKE pattern matching s anywhere in the column.
func Contains(s string) string { return "%" + likeEscaper.Replace(s) + "%" }

// Prefix returns an ILIKE pattern matching columns starting with s.
func Prefix(s string) string { return likeEscaper.Replace(s) + "%" }

// Suffix returns an ILIKE pattern matching columns ending with s.
func Suffix(s string) string { return "%" + likeEscaper.Replace(s) }

// Compile turns predicates into a single parameterized condition.
// CombinatorOr yields AnyOf, anything else AllOf. No predicates match every row.
// Every column must be one of the task columns.
func Compile(combinator domain.Combinator, preds []Predicate) (sq.Sqlizer, error) {
	if len(preds) == 0 {
		return matchAll, nil
	}

	parts := make([]sq.Sqlizer, 0, len(preds))
	for _, p := range preds {
		part, err := p.sqlizer()
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}

	if combinator == domain.CombinatorOr {
		return sq.Or(parts), nil
	}
	return sq.And(parts), nil
}

func (p Predicate) sqlizer() (sq.Sqlizer, error) {
	if !isTaskColumn(p.Column) {
		return nil, fmt.Errorf("unknown filter column %q", p.Column)
	}

	switch p.Op {
	case OpILike:
		return sq.ILike{p.Column: p.Value}, nil
	case OpNotILike:
		return sq.NotILike{p.Column: p.Value}, nil
	case OpEq:
		return sq.Eq{p.Column: p.Value}, nil
	case OpNotEq:
		return sq.NotEq{p.Column: p.Value}, nil
	case OpIsNull:
		return sq.Eq{p.Column: nil}, nil
	case OpNotNull:
		return sq.NotEq{p.Column: nil}, nil
	case OpIn:
		values, ok := p.Value.([]string)
		if !ok || len(values) == 0 {
			return matchNone, nil
		}
		return sq.Eq{p.Column: values}, nil
	case OpNone:
		return matchNone, nil
	default:
		return nil, fmt.Errorf("unknown filter operator %q on %s", p.Op, p.Column)
	}
}

// predicatesFor builds the filter clauses of a listing query.
func predicatesFor(q domain.TaskQuery) []Predicate {
	var preds []Predicate

	if q.Title != nil {
		if p, ok := titlePredicate(*q.Title); ok {
			preds = append(preds, p)
		}
	}

	for _, f := range q.Filters {
		if len(f.Values) == 0 {
			preds = append(preds, Predicate{Column: f.Column, Op: OpNone})
			continue
		}
		preds = append(preds, Predicate{Column: f.Column, Op: OpIn, Value: f.Values})
	}

	return preds
}

func titlePredicate(f domain.TextFilter) (Predicate, bool) {
	if f.Value == "" && f.Operator.NeedsValue() {
		return Predicate{}, false
	}

	p := Predicate{Column: "title"}
	switch f.Operator {
	case domain.TextNotILike:
		p.Op, p.Value = OpNotILike, Contains(f.Value)
	case domain.TextStartsWith:
		p.Op, p.Value = OpILike, Prefix(f.Value)
	case domain.TextEndsWith:
		p.Op, p.Value = OpILike, Suffix(f.Value)
	case domain.TextEq:
		p.Op, p.Value = OpEq, f.Value
	case domain.TextNotEq:
		p.Op, p.Value = OpNotEq, f.Value
	case domain.TextIsNull:
		p.Op = OpIsNull
	case domain.TextIsNotNull:
		p.Op = OpNotNull
	default:
		p.Op, p.Value = OpILike, Contains(f.Value)
	}
	return p, true
}
