package match

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoCandidates is returned when Resolve is called with an empty
// candidate list.
var ErrNoCandidates = errors.New("match: no candidates")

// NoMatchError is returned when no candidate comes close enough to the
// query. Suggestions holds the nearest names, best first, so callers
// can offer a "did you mean" hint.
type NoMatchError struct {
	Query       string
	Suggestions []string
}

func (e *NoMatchError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("match: no match for %q", e.Query)
	}
	return fmt.Sprintf("match: no match for %q (did you mean: %s)",
		e.Query, strings.Join(e.Suggestions, ", "))
}

// AmbiguousMatchError is returned when two or more candidates rank
// equally for a query. Matches lists the tied names in lexical order.
type AmbiguousMatchError struct {
	Query   string
	Matches []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("match: %q is ambiguous between: %s",
		e.Query, strings.Join(e.Matches, ", "))
}
