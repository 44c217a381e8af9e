package cellref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Ref
	}{
		{"A1", Ref{0, 0}},
		{"B2", Ref{1, 1}},
		{"Z1", Ref{0, 25}},
		{"AA1", Ref{0, 26}},
		{"AZ10", Ref{9, 51}},
		{"AAA1", Ref{0, 702}},
		{"ZZZ999", Ref{998, 18277}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{
		"", "A", "1", "1A", "a1", "A1B", "A-1", "A0", "AAAA1", "A 1", "A1 ",
	} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidCell, "input %q", in)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []string{"A1", "Z26", "AA27", "AZ702", "BA703", "ZZ702", "AAA703", "ZZZ999"} {
		ref, err := Parse(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, ref.String())
	}
}

func TestColumnName(t *testing.T) {
	assert.Equal(t, "A", ColumnName(0))
	assert.Equal(t, "Z", ColumnName(25))
	assert.Equal(t, "AA", ColumnName(26))
	assert.Equal(t, "AZ", ColumnName(51))
	assert.Equal(t, "ZZ", ColumnName(701))
	assert.Equal(t, "AAA", ColumnName(702))
}

func TestParseRange(t *testing.T) {
	rng, err := ParseRange("A1:B3")
	require.NoError(t, err)
	assert.Equal(t, Range{Start: Ref{0, 0}, End: Ref{2, 1}}, rng)
	assert.Equal(t, 6, rng.Area())
	assert.True(t, rng.Contains(Ref{1, 0}))
	assert.False(t, rng.Contains(Ref{3, 0}))

	single, err := ParseRange("C2:C2")
	require.NoError(t, err)
	assert.Equal(t, 1, single.Area())
}

func TestParseRangeInvalid(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"A1", ErrInvalidRange},
		{":A1", ErrInvalidRange},
		{"A1:", ErrInvalidRange},
		{"B1:A1", ErrInvalidRange}, // inverted columns
		{"A2:A1", ErrInvalidRange}, // inverted rows
		{"A1:1B", ErrInvalidCell},
		{"X:Y1", ErrInvalidCell},
	}
	for _, tt := range tests {
		_, err := ParseRange(tt.in)
		assert.ErrorIs(t, err, tt.want, "input %q", tt.in)
	}
}
