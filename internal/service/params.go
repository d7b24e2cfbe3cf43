package service

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/mtlprog/casegrid/internal/domain"
)

// Query-string parameter names of the listing endpoint.
const (
	ParamPage            = "page"
	ParamPerPage         = "per_page"
	ParamSort            = "sort"
	ParamTitle           = "title"
	ParamStatus          = "status"
	ParamCategory        = "category"
	ParamAssignedTo      = "assigned_to"
	ParamLastActionTaken = "last_action_taken"
	ParamOperator        = "operator"
)

// titleOperatorSeparator splits "value~operator" in the title parameter.
const titleOperatorSeparator = "~"

// TokenPolicy decides what happens to enum filter tokens that are not members.
type TokenPolicy string

const (
	// TokenPolicyDrop removes unknown tokens; a filter left empty matches nothing.
	TokenPolicyDrop TokenPolicy = "drop"
	// TokenPolicyReject fails validation on the first unknown token.
	TokenPolicyReject TokenPolicy = "reject"
)

// ParseTokenPolicy validates a configured policy name.
func ParseTokenPolicy(s string) (TokenPolicy, error) {
	switch p := TokenPolicy(strings.ToLower(s)); p {
	case TokenPolicyDrop, TokenPolicyReject:
		return p, nil
	case "":
		return TokenPolicyDrop, nil
	default:
		return "", &domain.ValidationError{Field: "unknown_tokens", Value: s, Reason: "must be drop or reject"}
	}
}

// ParamLimits bounds the values accepted from clients.
type ParamLimits struct {
	DefaultPerPage int
	MaxPerPage     int
	// MaxOffset rejects pages whose offset is larger; 0 only bounds the offset
	// to what fits in an int.
	MaxOffset     int
	UnknownTokens TokenPolicy
}

// DefaultParamLimits returns the limits used when nothing is configured.
func DefaultParamLimits() ParamLimits {
	return ParamLimits{
		DefaultPerPage: 10,
		MaxPerPage:     100,
		MaxOffset:      100_000,
		UnknownTokens:  TokenPolicyDrop,
	}
}

type enumParam struct {
	param   string
	column  string
	isValid func(string) bool
}

var enumParams = []enumParam{
	{ParamStatus, "status", domain.TaskStatuses.Contains},
	{ParamCategory, "category", domain.TaskCategories.Contains},
	{ParamAssignedTo, "assigned_to", domain.Divisions.Contains},
	{ParamLastActionTaken, "last_action_taken", domain.LastActions.Contains},
}

// ParamParser turns raw listing parameters into a TaskQuery.
type ParamParser struct {
	limits ParamLimits
}

// NewParamParser creates a parser. Zero or negative limits fall back to the defaults.
func NewParamParser(limits ParamLimits) *ParamParser {
	def := DefaultParamLimits()
	if limits.DefaultPerPage <= 0 {
		limits.DefaultPerPage = def.DefaultPerPage
	}
	if limits.MaxPerPage <= 0 {
		limits.MaxPerPage = def.MaxPerPage
	}
	limits.DefaultPerPage = min(limits.DefaultPerPage, limits.MaxPerPage)
	if limits.MaxOffset < 0 {
		limits.MaxOffset = 0
	}
	if limits.UnknownTokens == "" {
		limits.UnknownTokens = def.UnknownTokens
	}
	return &ParamParser{limits: limits}
}

// Parse validates the parameters. Uncoercible paging values fall back to
// defaults rather than failing; a ValidationError is returned only for offsets
// past MaxOffset and, under TokenPolicyReject, unknown enum tokens.
func (p *ParamParser) Parse(values url.Values) (domain.TaskQuery, error) {
	q := domain.TaskQuery{
		Page:     parsePositiveInt(values.Get(ParamPage), 1),
		PerPage:  parsePositiveInt(values.Get(ParamPerPage), p.limits.DefaultPerPage),
		Sort:     parseSort(values.Get(ParamSort)),
		Title:    parseTitle(values.Get(ParamTitle)),
		Operator: domain.ParseCombinator(values.Get(ParamOperator)),
	}
	q.PerPage = min(q.PerPage, p.limits.MaxPerPage)

	if err := p.checkOffset(q); err != nil {
		return domain.TaskQuery{}, err
	}

	for _, ep := range enumParams {
		raw := values.Get(ep.param)
		if strings.TrimSpace(raw) == "" {
			continue
		}

		filter, err := p.parseEnumFilter(ep, raw)
		if err != nil {
			return domain.TaskQuery{}, err
		}
		q.Filters = append(q.Filters, filter)
	}

	return q, nil
}

// checkOffset rejects pages whose offset exceeds MaxOffset. With MaxOffset
// disabled the offset must still fit in an int.
func (p *ParamParser) checkOffset(q domain.TaskQuery) error {
	limit := p.limits.MaxOffset
	if limit == 0 {
		limit = math.MaxInt
	}
	if q.Page-1 <= limit/q.PerPage {
		return nil
	}
	return &domain.ValidationError{
		Field:  ParamPage,
		Value:  strconv.Itoa(q.Page),
		Reason: fmt.Sprintf("offset exceeds %d rows", limit),
	}
}

func (p *ParamParser) parseEnumFilter(ep enumParam, raw string) (domain.EnumFilter, error) {
	filter := domain.EnumFilter{Column: ep.column, Values: []string{}}
	seen := make(map[string]bool)

	for _, token := range strings.Split(raw, domain.TokenSeparator) {
		token = strings.TrimSpace(token)
		if token == "" || seen[token] {
			continue
		}
		seen[token] = true

		if !ep.isValid(token) {
			if p.limits.UnknownTokens == TokenPolicyReject {
				return domain.EnumFilter{}, &domain.ValidationError{
					Field:  ep.param,
					Value:  token,
					Reason: "not a known value",
				}
			}
			continue
		}
		filter.Values = append(filter.Values, token)
	}

	return filter, nil
}

// parsePositiveInt returns def for missing or uncoercible input and clamps
// values below 1 to def as well.
func parsePositiveInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// parseSort splits "column.direction" on the first dot. Missing input sorts
// by title descending; any direction other than asc is descending.
func parseSort(s string) domain.Sort {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Sort{Column: "title", Direction: domain.SortDesc}
	}

	column, direction, _ := strings.Cut(s, domain.TokenSeparator)
	if domain.SortDirection(direction) == domain.SortAsc {
		return domain.Sort{Column: column, Direction: domain.SortAsc}
	}
	return domain.Sort{Column: column, Direction: domain.SortDesc}
}

// parseTitle reads "value" or "value~operator". The null checks need no value.
func parseTitle(s string) *domain.TextFilter {
	if s == "" {
		return nil
	}

	value, op, _ := strings.Cut(s, titleOperatorSeparator)
	filter := &domain.TextFilter{
		Value:    strings.TrimSpace(value),
		Operator: domain.ParseTextOperator(op),
	}
	if filter.Value == "" && filter.Operator.NeedsValue() {
		return nil
	}
	return filter
}
