// Package rank scores a shortlist of matched FileRecords by combining
// match evidence, recency, path depth, and access frequency into a
// single ordering.
package rank
