// Package querymust evaluates per-chunk lexical requirements against a query.
//
// A chunk may carry a "query_must" metadata value declaring terms the query
// has to mention for the chunk to be relevant (e.g. an attack matrix row for
// a specific armor class). All operators present are combined with AND.
package querymust

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Range is an inclusive numeric bound.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Requirement is the decoded query_must declaration of a chunk.
type Requirement struct {
	// ContainOneOf is an AND of OR groups: every group needs one matching term.
	ContainOneOf [][]string `json:"contain_one_of,omitempty"`
	// ContainAllOf requires every term.
	ContainAllOf []string `json:"contain_all_of,omitempty"`
	// Contain requires a single term, plural "s" allowed.
	Contain string `json:"contain,omitempty"`
	// ContainRange requires any number in the query to fall in the range.
	ContainRange *Range `json:"contain_range,omitempty"`
}

var numberPattern = regexp.MustCompile(`\b\d+\b`)

// Parse decodes a raw query_must value. An empty value yields a nil requirement.
func Parse(raw string) (*Requirement, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" || raw == "{}" {
		return nil, nil
	}
	var r Requirement
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("parse query_must: %w", err)
	}
	if r.IsEmpty() {
		return nil, nil
	}
	return &r, nil
}

// IsEmpty reports whether no operator is set.
func (r *Requirement) IsEmpty() bool {
	return r == nil || (len(r.ContainOneOf) == 0 && len(r.ContainAllOf) == 0 &&
		r.Contain == "" && r.ContainRange == nil)
}

// SatisfiedBy reports whether query meets every operator of r.
// A nil requirement is always satisfied.
func (r *Requirement) SatisfiedBy(query string) bool {
	_, ok := r.Check(query)
	return ok
}

// Check is SatisfiedBy that also names the first failing operator.
func (r *Requirement) Check(query string) (failed string, ok bool) {
	if r.IsEmpty() {
		return "", true
	}
	q := strings.ToLower(query)

	for _, group := range r.ContainOneOf {
		if !anyTerm(q, group) {
			return "contain_one_of", false
		}
	}
	for _, term := range r.ContainAllOf {
		if !hasWord(q, term, false) {
			return "contain_all_of", false
		}
	}
	if r.Contain != "" && !hasWord(q, r.Contain, true) {
		return "contain", false
	}
	if r.ContainRange != nil && !inRange(q, *r.ContainRange) {
		return "contain_range", false
	}
	return "", true
}

func anyTerm(q string, terms []string) bool {
	for _, t := range terms {
		if hasWord(q, t, false) {
			return true
		}
	}
	return false
}

// hasWord matches term on word boundaries so "bear" does not match
// "owlbear". With plural, a trailing "s" on the query word is accepted.
func hasWord(q, term string, plural bool) bool {
	term = strings.ToLower(term)
	if term == "" {
		return false
	}
	for from := 0; from < len(q); {
		i := strings.Index(q[from:], term)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(term)
		if boundary(q, start) {
			if boundary(q, end) {
				return true
			}
			if plural && end < len(q) && q[end] == 's' && boundary(q, end+1) {
				return true
			}
		}
		from = start + 1
	}
	return false
}

// boundary reports a \b position: word and non-word bytes on either side.
func boundary(q string, i int) bool {
	before := i > 0 && isWordByte(q[i-1])
	after := i < len(q) && isWordByte(q[i])
	return before != after
}

func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func inRange(q string, rg Range) bool {
	for _, m := range numberPattern.FindAllString(q, -1) {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if n >= rg.Min && n <= rg.Max {
			return true
		}
	}
	return false
}
