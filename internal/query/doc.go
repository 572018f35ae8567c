// Package query turns the query-string DSL into a types.Query. Tokens of
// the form key:value are consumed as structured filters; everything else
// becomes the pattern.
package query
