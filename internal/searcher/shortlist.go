package searcher

import "filesearch/internal/rank"

// minHeap is a bounded min-heap of rank.Candidate ordered by match
// evidence score, letting the Searcher keep only the top-K shortlist
// without retaining every candidate.
type minHeap []rank.Candidate

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].Evidence.Score < h[j].Evidence.Score }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)         { *h = append(*h, x.(rank.Candidate)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
