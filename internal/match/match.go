package match

import (
	"sort"
	"strings"
)

// maxSuggestions bounds the "did you mean" list on NoMatchError.
const maxSuggestions = 3

// Candidate is a named resource to resolve against.
type Candidate struct {
	ID   string
	Name string
}

// rank orders candidates for a query. Lower is better. Two candidates
// with the same rank are indistinguishable, which makes the query
// ambiguous rather than letting list order decide.
type rank struct {
	// class: 0 containment, 1 edit distance
	class int
	// score: candidate name length for containment, distance for fallback
	score int
	nameLen int
}

func (r rank) less(other rank) bool {
	if r.class != other.class {
		return r.class < other.class
	}
	if r.score != other.score {
		return r.score < other.score
	}
	return r.nameLen < other.nameLen
}

func (r rank) equal(other rank) bool {
	return r.class == other.class && r.score == other.score && r.nameLen == other.nameLen
}

// Resolve finds the candidate best matching query.
//
// Matching is case-insensitive. Substring containment is tried first;
// if nothing contains the query, candidates within an edit distance
// proportional to the query length are considered. Shorter names win
// containment ties because they match more of the query.
//
// Returns:
//   - ErrNoCandidates if cands is empty
//   - *AmbiguousMatchError if two or more candidates rank equally
//   - *NoMatchError if nothing comes close, with nearest-name suggestions
func Resolve(query string, cands []Candidate) (Candidate, error) {
	if len(cands) == 0 {
		return Candidate{}, ErrNoCandidates
	}

	q := strings.ToLower(strings.TrimSpace(query))

	type scored struct {
		cand Candidate
		rank rank
	}
	var matches []scored

	threshold := distanceThreshold(q)
	for _, c := range cands {
		name := strings.ToLower(c.Name)
		switch {
		case strings.Contains(name, q):
			matches = append(matches, scored{c, rank{class: 0, score: len(name), nameLen: len(name)}})
		default:
			if d := editDistance(q, name); d <= threshold {
				matches = append(matches, scored{c, rank{class: 1, score: d, nameLen: len(name)}})
			}
		}
	}

	if len(matches) == 0 {
		return Candidate{}, &NoMatchError{
			Query:       query,
			Suggestions: nearest(q, cands),
		}
	}

	// Stable order: rank, then name, so equal inputs always resolve
	// (or fail) the same way.
	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].rank.equal(matches[j].rank) {
			return matches[i].rank.less(matches[j].rank)
		}
		return matches[i].cand.Name < matches[j].cand.Name
	})

	if len(matches) > 1 && matches[0].rank.equal(matches[1].rank) {
		var tied []string
		for _, m := range matches {
			if m.rank.equal(matches[0].rank) {
				tied = append(tied, m.cand.Name)
			}
		}
		return Candidate{}, &AmbiguousMatchError{Query: query, Matches: tied}
	}

	return matches[0].cand, nil
}

// distanceThreshold is the maximum edit distance accepted for a query.
// Proportional to query length so short queries stay strict.
func distanceThreshold(q string) int {
	t := len(q) / 3
	if t < 1 {
		t = 1
	}
	return t
}

// nearest returns up to maxSuggestions candidate names closest to q by
// edit distance, best first.
func nearest(q string, cands []Candidate) []string {
	type entry struct {
		name string
		dist int
	}
	entries := make([]entry, 0, len(cands))
	for _, c := range cands {
		entries = append(entries, entry{c.Name, editDistance(q, strings.ToLower(c.Name))})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].dist != entries[j].dist {
			return entries[i].dist < entries[j].dist
		}
		return entries[i].name < entries[j].name
	})

	n := len(entries)
	if n > maxSuggestions {
		n = maxSuggestions
	}
	names := make([]string, 0, n)
	for _, e := range entries[:n] {
		names = append(names, e.name)
	}
	return names
}

// editDistance computes the Levenshtein distance between a and b using
// a two-row table.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
