package vectorstore

import (
	"fmt"
	"strings"
)

// Filter is a payload filter expression: either a single field equality
// or a conjunction of sub-filters. The grammar is deliberately closed:
// equality and AND only, no disjunction, negation, or ranges.
type Filter interface {
	filterExpr()
}

// Equals matches points whose payload field equals the given value.
type Equals struct {
	Field string
	Value string
}

// And matches points satisfying every clause. An empty conjunction is
// equivalent to no filter at all.
type And struct {
	Clauses []Filter
}

func (Equals) filterExpr() {}
func (And) filterExpr()    {}

// ParseFilter converts a wire-format filter object into a Filter.
// Supported shapes:
//
//	{"subject": "Meeting Request"}
//	{"subject": {"$eq": "Meeting Request"}}
//	{"$and": [{"from": "..."}, {"to": "..."}]}
//
// A nil or empty object parses to nil (match everything). Operator keys
// other than $eq and $and are rejected.
func ParseFilter(raw map[string]any) (Filter, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	if andRaw, ok := raw["$and"]; ok {
		if len(raw) > 1 {
			return nil, fmt.Errorf("$and cannot be combined with other keys")
		}
		items, ok := andRaw.([]any)
		if !ok {
			return nil, fmt.Errorf("$and must be a list of filter objects")
		}
		clauses := make([]Filter, 0, len(items))
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("$and entries must be filter objects")
			}
			sub, err := ParseFilter(obj)
			if err != nil {
				return nil, err
			}
			if sub != nil {
				clauses = append(clauses, sub)
			}
		}
		if len(clauses) == 0 {
			return nil, nil
		}
		return And{Clauses: clauses}, nil
	}

	clauses := make([]Filter, 0, len(raw))
	for field, val := range raw {
		if strings.HasPrefix(field, "$") {
			return nil, fmt.Errorf("unsupported filter operator %q", field)
		}
		eq, err := parseValue(field, val)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, eq)
	}
	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return And{Clauses: clauses}, nil
}

// parseValue handles the direct and extended ({"$eq": v}) value forms.
func parseValue(field string, val any) (Equals, error) {
	if obj, ok := val.(map[string]any); ok {
		inner, ok := obj["$eq"]
		if !ok || len(obj) > 1 {
			for op := range obj {
				if op != "$eq" {
					return Equals{}, fmt.Errorf("unsupported filter operator %q on field %q", op, field)
				}
			}
			return Equals{}, fmt.Errorf("empty filter condition on field %q", field)
		}
		val = inner
	}
	s, ok := val.(string)
	if !ok {
		return Equals{}, fmt.Errorf("filter value for field %q must be a string, got %T", field, val)
	}
	return Equals{Field: field, Value: s}, nil
}
