package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filesearch/pkg/types"
)

func TestParsePlainPattern(t *testing.T) {
	q, err := Parse("main.go")
	require.NoError(t, err)
	assert.Equal(t, "main.go", q.Text)
	assert.Equal(t, types.ModeGlob, q.Mode)
	assert.Equal(t, types.ScopeName, q.Scope)
}

func TestParseExtFilter(t *testing.T) {
	q, err := Parse("ext:go,MD foo")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "md"}, q.Filters.Extensions)
	assert.Equal(t, "foo", q.Text)
}

func TestParseModeAndScope(t *testing.T) {
	q, err := Parse("mode:regex scope:content ^main$")
	require.NoError(t, err)
	assert.Equal(t, types.ModeRegex, q.Mode)
	assert.Equal(t, types.ScopeContent, q.Scope)
	assert.Equal(t, "^main$", q.Text)
}

func TestParseLimit(t *testing.T) {
	q, err := Parse("limit:50 foo")
	require.NoError(t, err)
	assert.Equal(t, 50, q.MaxResults)
}

func TestParseLastModeWins(t *testing.T) {
	q, err := Parse("mode:glob mode:fuzzy foo")
	require.NoError(t, err)
	assert.Equal(t, types.ModeFuzzy, q.Mode)
}

func TestParseUnknownKeyFails(t *testing.T) {
	_, err := Parse("bogus:1 foo")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrQueryParse)
}

func TestParseSizeExact(t *testing.T) {
	q, err := Parse("size:10KB foo")
	require.NoError(t, err)
	assert.Equal(t, uint64(10*1024), q.Filters.Size.Min)
	assert.Equal(t, uint64(10*1024), q.Filters.Size.Max)
}

func TestParseSizeGreaterThan(t *testing.T) {
	q, err := Parse("size:>1MB foo")
	require.NoError(t, err)
	assert.Equal(t, uint64(1024*1024), q.Filters.Size.Min)
	assert.Equal(t, uint64(0), q.Filters.Size.Max)
}

func TestParseSizeRange(t *testing.T) {
	q, err := Parse("size:1KB..2KB foo")
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), q.Filters.Size.Min)
	assert.Equal(t, uint64(2048), q.Filters.Size.Max)
}

func TestParseModifiedToday(t *testing.T) {
	q, err := Parse("modified:today foo")
	require.NoError(t, err)
	assert.False(t, q.Filters.Modified.After.IsZero())
	assert.False(t, q.Filters.Modified.Before.IsZero())
}

func TestParseModifiedRelative(t *testing.T) {
	q, err := Parse("modified:7days foo")
	require.NoError(t, err)
	assert.False(t, q.Filters.Modified.After.IsZero())
	assert.True(t, q.Filters.Modified.Before.IsZero())
}

func TestParseInvalidSize(t *testing.T) {
	_, err := Parse("size:notasize foo")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrQueryParse)
}
