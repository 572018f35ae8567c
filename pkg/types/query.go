package types

import (
	"strings"
	"time"
)

// Mode selects the matching algorithm applied to the scope field.
type Mode string

const (
	ModeExact      Mode = "exact"
	ModeCI         Mode = "ci" // case-insensitive
	ModeFuzzy      Mode = "fuzzy"
	ModeRegex      Mode = "regex"
	ModeGlob       Mode = "glob"
)

// Scope selects which record field(s) a query's pattern is matched against.
type Scope string

const (
	ScopeName    Scope = "name"
	ScopePath    Scope = "path"
	ScopeContent Scope = "content"
	ScopeAll     Scope = "all"
)

// SizeRange is an inclusive filter on FileRecord.SizeBytes. A zero value on
// either bound means "unbounded" on that side.
type SizeRange struct {
	Min uint64
	Max uint64 // 0 means unbounded
}

// TimeRange is an inclusive filter on FileRecord.Modified. Zero values mean
// unbounded on that side.
type TimeRange struct {
	After  time.Time
	Before time.Time
}

// Filters narrow the candidate set independent of Mode/Scope matching.
type Filters struct {
	Extensions []string // normalized, lowercased, no leading dot
	Size       SizeRange
	Modified   TimeRange
}

// Query is the canonical, parsed form of a search request.
type Query struct {
	Text       string
	Mode       Mode
	Scope      Scope
	Filters    Filters
	MaxResults int
	Offset     int
}

// DefaultQuery returns a Query with its documented defaults:
// mode=Glob, scope=Name, max_results=1000.
func DefaultQuery(text string) Query {
	return Query{
		Text:       text,
		Mode:       ModeGlob,
		Scope:      ScopeName,
		MaxResults: 1000,
	}
}

// Canonicalize normalizes a Query so that two logically-equivalent queries
// produce the same fingerprint: it fills in defaults, sorts and lowercases
// extension filters, and clamps negative pagination.
func (q Query) Canonicalize() Query {
	out := q
	if out.Mode == "" {
		out.Mode = ModeGlob
	}
	if out.Scope == "" {
		out.Scope = ScopeName
	}
	if out.MaxResults <= 0 {
		out.MaxResults = 1000
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	if len(out.Filters.Extensions) > 0 {
		exts := make([]string, len(out.Filters.Extensions))
		for i, e := range out.Filters.Extensions {
			exts[i] = strings.ToLower(e)
		}
		sortStrings(exts)
		out.Filters.Extensions = exts
	}
	return out
}

// sortStrings is a tiny insertion sort to avoid pulling in "sort" for a
// handful of extension strings; it is used for every list length.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// SearchResult is a FileRecord enriched with a relevance score and,
// optionally, a content preview.
type SearchResult struct {
	Record          FileRecord
	Score           float64
	ContentPreview  string
}
