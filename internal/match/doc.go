// Package match provides a single entry point evaluating a FileRecord
// against a Query under one of five modes (exact, case-insensitive,
// fuzzy, regex, glob), returning evidence the Ranker can score.
package match
