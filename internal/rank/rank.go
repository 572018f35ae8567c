package rank

import (
	"math"
	"sort"
	"strings"
	"time"

	"filesearch/internal/match"
	"filesearch/pkg/types"
)

// ShortlistMinSize is the floor on K = 4*max_results.
const ShortlistMinSize = 256

// ShortlistSize returns K, the number of top candidates the Searcher
// should hand to the Ranker.
func ShortlistSize(maxResults int) int {
	k := 4 * maxResults
	if k < ShortlistMinSize {
		return ShortlistMinSize
	}
	return k
}

// Candidate pairs a matched record with the evidence the Matcher produced
// for it.
type Candidate struct {
	Record   *types.FileRecord
	Evidence match.Evidence
}

// Score computes the weighted ranking formula for a single candidate.
func Score(c Candidate, now time.Time) float64 {
	matchScore := c.Evidence.Score

	ageDays := now.Sub(c.Record.Modified).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	recency := math.Exp(-ageDays / 30)

	depth := strings.Count(strings.Trim(c.Record.Path, "/"), "/")
	pathDepthPenalty := 1 / (1 + float64(depth))

	accessBonus := math.Log1p(float64(c.Record.AccessCount)) / 100
	if accessBonus > 0.1 {
		accessBonus = 0.1
	}

	return 0.5*matchScore + 0.3*recency + 0.2*pathDepthPenalty + accessBonus
}

// Rank scores candidates, sorts them by descending score (ties broken by
// lexicographic path), and applies offset/limit.
func Rank(candidates []Candidate, offset, limit int, now time.Time) []types.SearchResult {
	type scored struct {
		cand  Candidate
		score float64
	}

	scoredList := make([]scored, len(candidates))
	for i, c := range candidates {
		scoredList[i] = scored{cand: c, score: Score(c, now)}
	}

	sort.Slice(scoredList, func(i, j int) bool {
		if scoredList[i].score != scoredList[j].score {
			return scoredList[i].score > scoredList[j].score
		}
		return scoredList[i].cand.Record.Path < scoredList[j].cand.Record.Path
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(scoredList) {
		return nil
	}
	scoredList = scoredList[offset:]

	if limit > 0 && limit < len(scoredList) {
		scoredList = scoredList[:limit]
	}

	out := make([]types.SearchResult, len(scoredList))
	for i, s := range scoredList {
		out[i] = types.SearchResult{Record: *s.cand.Record, Score: s.score}
	}
	return out
}
