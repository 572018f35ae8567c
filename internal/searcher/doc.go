// Package searcher evaluates a Query against the index by selecting the
// narrowest Store predicate available, applying the Matcher and cheap
// filters to each candidate, ranking a bounded shortlist, and caching the
// result.
package searcher
