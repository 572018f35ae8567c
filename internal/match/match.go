package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sahilm/fuzzy"

	"filesearch/pkg/types"
)

// DefaultFuzzyThreshold is the minimum normalized fuzzy score a match must
// clear to be accepted.
const DefaultFuzzyThreshold = 0.7

// Evidence is what a successful match carries forward to the Ranker.
type Evidence struct {
	Score float64
}

// Matcher evaluates FileRecords against a single compiled Query. Regex and
// glob patterns are validated once at construction, not on every record.
type Matcher struct {
	mode           types.Mode
	scope          types.Scope
	pattern        string
	regex          *regexp.Regexp
	fuzzyThreshold float64
}

// New compiles m against q. Invalid regex or glob patterns return an error
// wrapping types.ErrQueryCompile.
func New(q types.Query, fuzzyThreshold float64) (*Matcher, error) {
	if fuzzyThreshold <= 0 {
		fuzzyThreshold = DefaultFuzzyThreshold
	}

	m := &Matcher{
		mode:           q.Mode,
		scope:          q.Scope,
		pattern:        q.Text,
		fuzzyThreshold: fuzzyThreshold,
	}

	switch q.Mode {
	case types.ModeRegex:
		re, err := regexp.Compile(q.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrQueryCompile, err)
		}
		m.regex = re
	case types.ModeGlob:
		if !doublestar.ValidatePattern(q.Text) {
			return nil, fmt.Errorf("%w: invalid glob pattern %q", types.ErrQueryCompile, q.Text)
		}
	}

	return m, nil
}

// Match reports whether rec matches, and if so the evidence the Ranker
// uses to score it.
func (m *Matcher) Match(rec *types.FileRecord) (Evidence, bool) {
	target, ok := m.scopeTarget(rec)
	if !ok {
		return Evidence{}, false
	}

	switch m.mode {
	case types.ModeExact:
		if target == m.pattern {
			return Evidence{Score: 1.0}, true
		}
		return Evidence{}, false

	case types.ModeCI:
		if strings.Contains(strings.ToLower(target), strings.ToLower(m.pattern)) {
			return Evidence{Score: 1.0}, true
		}
		return Evidence{}, false

	case types.ModeFuzzy:
		matches := fuzzy.Find(m.pattern, []string{target})
		if len(matches) == 0 {
			return Evidence{}, false
		}
		score := normalizeFuzzyScore(matches[0].Score, len(m.pattern))
		if score < m.fuzzyThreshold {
			return Evidence{}, false
		}
		return Evidence{Score: score}, true

	case types.ModeRegex:
		if m.regex.MatchString(target) {
			return Evidence{Score: 1.0}, true
		}
		return Evidence{}, false

	case types.ModeGlob:
		ok, err := doublestar.Match(m.pattern, target)
		if err != nil || !ok {
			return Evidence{}, false
		}
		return Evidence{Score: 1.0}, true
	}

	return Evidence{}, false
}

// scopeTarget extracts the field the pattern is matched against. Records
// with no tokenized content are skipped for scope=Content.
func (m *Matcher) scopeTarget(rec *types.FileRecord) (string, bool) {
	switch m.scope {
	case types.ScopeName:
		return rec.Name, true
	case types.ScopePath:
		return rec.Path, true
	case types.ScopeContent:
		if !rec.HasContent() {
			return "", false
		}
		return strings.Join(rec.ContentTokens, " "), true
	case types.ScopeAll:
		parts := []string{rec.Name, rec.Path}
		if rec.HasContent() {
			parts = append(parts, strings.Join(rec.ContentTokens, " "))
		}
		return strings.Join(parts, " "), true
	default:
		return rec.Name, true
	}
}

// normalizeFuzzyScore maps sahilm/fuzzy's unbounded integer score into
// [0,1], scaled by pattern length since the library's score grows with the
// number of matched characters.
func normalizeFuzzyScore(rawScore, patternLen int) float64 {
	if patternLen == 0 {
		return 0
	}
	max := float64(patternLen) * 2.5
	score := float64(rawScore) / max
	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}
