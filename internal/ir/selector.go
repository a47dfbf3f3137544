package ir

import (
	"errors"
	"fmt"
)

// ContextLength is the number of runes of prefix/suffix recorded with a selector.
const ContextLength = 32

// ErrMalformedSelector indicates a selector without exact text.
var ErrMalformedSelector = errors.New("malformed selector")

// Selector is a portable, context-bearing description of a text span.
//
// Exact is required. Prefix and Suffix are ranking hints; the empty string
// means the context was absent when the selector was recorded.
type Selector struct {
	Exact  string `json:"exact" yaml:"exact"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Suffix string `json:"suffix,omitempty" yaml:"suffix,omitempty"`
}

// NewSelector constructs a validated selector.
func NewSelector(exact, prefix, suffix string) (Selector, error) {
	s := Selector{Exact: exact, Prefix: prefix, Suffix: suffix}
	if err := s.Validate(); err != nil {
		return Selector{}, err
	}
	return s, nil
}

// Validate reports ErrMalformedSelector if Exact is empty.
func (s Selector) Validate() error {
	if s.Exact == "" {
		return fmt.Errorf("%w: exact text is required", ErrMalformedSelector)
	}
	return nil
}

// HasPrefix reports whether prefix context was recorded.
func (s Selector) HasPrefix() bool {
	return s.Prefix != ""
}

// HasSuffix reports whether suffix context was recorded.
func (s Selector) HasSuffix() bool {
	return s.Suffix != ""
}

// Canonical returns the selector as a canonical-JSON-ready map.
// Absent context keys are omitted.
func (s Selector) Canonical() map[string]any {
	m := map[string]any{"exact": s.Exact}
	if s.Prefix != "" {
		m["prefix"] = s.Prefix
	}
	if s.Suffix != "" {
		m["suffix"] = s.Suffix
	}
	return m
}
