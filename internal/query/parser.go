package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"filesearch/pkg/types"
)

// knownKeys are the only recognized filter keys; anything else is a parse
// error.
var knownKeys = map[string]bool{
	"ext":      true,
	"size":     true,
	"modified": true,
	"mode":     true,
	"scope":    true,
	"limit":    true,
}

var sizeUnitRe = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(b|kb|mb|gb)?$`)
var relativeModifiedRe = regexp.MustCompile(`(?i)^(\d+)(days|week|month)$`)

// Parse turns a query-string in the filesearch DSL into a Query. Unknown
// keys return an error wrapping types.ErrQueryParse.
func Parse(input string) (types.Query, error) {
	q := types.DefaultQuery("")

	var patternWords []string
	for _, tok := range strings.Fields(input) {
		key, value, isFilter := splitFilter(tok)
		if !isFilter {
			patternWords = append(patternWords, tok)
			continue
		}

		if !knownKeys[key] {
			return types.Query{}, fmt.Errorf("%w: unknown filter key %q", types.ErrQueryParse, key)
		}

		if err := applyFilter(&q, key, value); err != nil {
			return types.Query{}, err
		}
	}

	q.Text = strings.Join(patternWords, " ")
	return q.Canonicalize(), nil
}

// splitFilter reports whether tok is of the form key:value, and if so
// returns the split halves.
func splitFilter(tok string) (key, value string, ok bool) {
	idx := strings.IndexByte(tok, ':')
	if idx <= 0 || idx == len(tok)-1 {
		return "", "", false
	}
	return tok[:idx], tok[idx+1:], true
}

func applyFilter(q *types.Query, key, value string) error {
	switch key {
	case "ext":
		for _, e := range strings.Split(value, ",") {
			e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
			if e != "" {
				q.Filters.Extensions = append(q.Filters.Extensions, e)
			}
		}
	case "size":
		r, err := parseSizeRange(value)
		if err != nil {
			return fmt.Errorf("%w: size filter: %v", types.ErrQueryParse, err)
		}
		q.Filters.Size = r
	case "modified":
		r, err := parseModifiedRange(value)
		if err != nil {
			return fmt.Errorf("%w: modified filter: %v", types.ErrQueryParse, err)
		}
		q.Filters.Modified = r
	case "mode":
		m, err := parseMode(value)
		if err != nil {
			return err
		}
		q.Mode = m
	case "scope":
		s, err := parseScope(value)
		if err != nil {
			return err
		}
		q.Scope = s
	case "limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: invalid limit %q", types.ErrQueryParse, value)
		}
		q.MaxResults = n
	}
	return nil
}

func parseMode(value string) (types.Mode, error) {
	switch value {
	case "exact":
		return types.ModeExact, nil
	case "ci":
		return types.ModeCI, nil
	case "fuzzy":
		return types.ModeFuzzy, nil
	case "regex":
		return types.ModeRegex, nil
	case "glob":
		return types.ModeGlob, nil
	default:
		return "", fmt.Errorf("%w: invalid mode %q", types.ErrQueryParse, value)
	}
}

func parseScope(value string) (types.Scope, error) {
	switch value {
	case "name":
		return types.ScopeName, nil
	case "path":
		return types.ScopePath, nil
	case "content":
		return types.ScopeContent, nil
	case "all":
		return types.ScopeAll, nil
	default:
		return "", fmt.Errorf("%w: invalid scope %q", types.ErrQueryParse, value)
	}
}

// parseSizeRange handles SIZE, ">"SIZE, "<"SIZE, and SIZE".."SIZE.
func parseSizeRange(value string) (types.SizeRange, error) {
	if lo, hi, ok := strings.Cut(value, ".."); ok {
		minB, err := parseSizeBytes(lo)
		if err != nil {
			return types.SizeRange{}, err
		}
		maxB, err := parseSizeBytes(hi)
		if err != nil {
			return types.SizeRange{}, err
		}
		return types.SizeRange{Min: minB, Max: maxB}, nil
	}

	switch {
	case strings.HasPrefix(value, ">"):
		minB, err := parseSizeBytes(value[1:])
		if err != nil {
			return types.SizeRange{}, err
		}
		return types.SizeRange{Min: minB}, nil
	case strings.HasPrefix(value, "<"):
		maxB, err := parseSizeBytes(value[1:])
		if err != nil {
			return types.SizeRange{}, err
		}
		return types.SizeRange{Max: maxB}, nil
	default:
		b, err := parseSizeBytes(value)
		if err != nil {
			return types.SizeRange{}, err
		}
		return types.SizeRange{Min: b, Max: b}, nil
	}
}

func parseSizeBytes(value string) (uint64, error) {
	m := sizeUnitRe.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("invalid size %q", value)
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, err
	}
	var mult float64 = 1
	switch strings.ToLower(m[2]) {
	case "kb":
		mult = 1024
	case "mb":
		mult = 1024 * 1024
	case "gb":
		mult = 1024 * 1024 * 1024
	}
	return uint64(n * mult), nil
}

// parseModifiedRange handles "today", "yesterday", "Ndays"/"Nweek"/"Nmonth",
// and ">"DATE / "<"DATE / DATE (DATE is RFC3339 date-only, YYYY-MM-DD).
func parseModifiedRange(value string) (types.TimeRange, error) {
	now := time.Now()
	startOfDay := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}

	switch value {
	case "today":
		today := startOfDay(now)
		return types.TimeRange{After: today, Before: today.Add(24 * time.Hour)}, nil
	case "yesterday":
		yesterday := startOfDay(now).Add(-24 * time.Hour)
		return types.TimeRange{After: yesterday, Before: yesterday.Add(24 * time.Hour)}, nil
	}

	if m := relativeModifiedRe.FindStringSubmatch(value); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return types.TimeRange{}, err
		}
		var d time.Duration
		switch m[2] {
		case "days":
			d = time.Duration(n) * 24 * time.Hour
		case "week":
			d = time.Duration(n) * 7 * 24 * time.Hour
		case "month":
			d = time.Duration(n) * 30 * 24 * time.Hour
		}
		return types.TimeRange{After: now.Add(-d)}, nil
	}

	switch {
	case strings.HasPrefix(value, ">"):
		d, err := time.Parse("2006-01-02", value[1:])
		if err != nil {
			return types.TimeRange{}, fmt.Errorf("invalid date %q", value[1:])
		}
		return types.TimeRange{After: d}, nil
	case strings.HasPrefix(value, "<"):
		d, err := time.Parse("2006-01-02", value[1:])
		if err != nil {
			return types.TimeRange{}, fmt.Errorf("invalid date %q", value[1:])
		}
		return types.TimeRange{Before: d}, nil
	default:
		d, err := time.Parse("2006-01-02", value)
		if err != nil {
			return types.TimeRange{}, fmt.Errorf("invalid date %q", value)
		}
		return types.TimeRange{After: d, Before: d.Add(24 * time.Hour)}, nil
	}
}
