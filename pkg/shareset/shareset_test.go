package shareset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Davincible/polysecret/pkg/crypto/basen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
    "keys": {
        "n": 4,
        "k": 3
    },
    "1": {
        "base": "10",
        "value": "4"
    },
    "2": {
        "base": "2",
        "value": "111"
    },
    "3": {
        "base": "10",
        "value": "12"
    },
    "6": {
        "base": "4",
        "value": "213"
    }
}`

func TestParseJSON(t *testing.T) {
	set, err := Parse([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, 4, set.N)
	assert.Equal(t, 3, set.K)
	require.Len(t, set.Shares, 4)
	assert.Equal(t, Share{Index: 1, Base: 10, Value: "4"}, set.Shares[0])
	assert.Equal(t, Share{Index: 6, Base: 4, Value: "213"}, set.Shares[3])
	assert.Empty(t, set.Warnings())
}

func TestParseJSONNumericBase(t *testing.T) {
	data := `{"keys": {"n": 2, "k": 2}, "10": {"base": 16, "value": "FF"}, "2": {"base": "36", "value": "z"}}`
	set, err := Parse([]byte(data), FormatJSON)
	require.NoError(t, err)

	// numeric ordering, not lexical
	require.Len(t, set.Shares, 2)
	assert.Equal(t, 2, set.Shares[0].Index)
	assert.Equal(t, 10, set.Shares[1].Index)
	assert.Equal(t, 16, set.Shares[1].Base)
}

func TestParseJSONErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{
			name:    "Not JSON",
			data:    `{"keys":`,
			wantErr: ErrMalformed,
		},
		{
			name:    "Missing keys",
			data:    `{"1": {"base": "10", "value": "4"}}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "Threshold above count",
			data:    `{"keys": {"n": 1, "k": 2}, "1": {"base": "10", "value": "4"}}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "Non numeric index",
			data:    `{"keys": {"n": 1, "k": 1}, "one": {"base": "10", "value": "4"}}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "Duplicate index after normalisation",
			data:    `{"keys": {"n": 2, "k": 1}, "1": {"base": "10", "value": "4"}, "01": {"base": "10", "value": "5"}}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "Base out of range",
			data:    `{"keys": {"n": 1, "k": 1}, "1": {"base": "40", "value": "4"}}`,
			wantErr: basen.ErrInvalidBase,
		},
		{
			name:    "Missing base",
			data:    `{"keys": {"n": 1, "k": 1}, "1": {"value": "4"}}`,
			wantErr: ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Parse([]byte(tt.data), FormatJSON)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, set)
		})
	}
}

func TestPoints(t *testing.T) {
	set, err := Parse([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)

	all, err := set.Points(0)
	require.NoError(t, err)
	require.Len(t, all, 4)

	expected := []string{"(1, 4)", "(2, 7)", "(3, 12)", "(6, 39)"}
	for i, p := range all {
		assert.Equal(t, expected[i], p.String())
	}

	firstK, err := set.Points(set.K)
	require.NoError(t, err)
	assert.Len(t, firstK, 3)
}

func TestPointsReportsFailingShare(t *testing.T) {
	set, err := New("bad", 3, 2, []Share{
		{Index: 1, Base: 10, Value: "4"},
		{Index: 2, Base: 2, Value: "121"},
		{Index: 3, Base: 10, Value: "9"},
	})
	require.NoError(t, err)

	_, err = set.Points(0)
	assert.ErrorIs(t, err, basen.ErrInvalidDigit)
	assert.Contains(t, err.Error(), "share 2")

	// the bad share is beyond the first one
	points, err := set.Points(1)
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestWarnings(t *testing.T) {
	set, err := New("short", 5, 2, []Share{
		{Index: 1, Base: 10, Value: "4"},
		{Index: 2, Base: 10, Value: "7"},
	})
	require.NoError(t, err)
	require.Len(t, set.Warnings(), 1)
	assert.Contains(t, set.Warnings()[0], "declared 5 shares but found 2")
}

func TestFingerprint(t *testing.T) {
	a, err := New("a", 2, 2, []Share{{Index: 1, Base: 16, Value: "ff"}, {Index: 2, Base: 10, Value: "3"}})
	require.NoError(t, err)
	b, err := New("b", 2, 2, []Share{{Index: 2, Base: 10, Value: "3"}, {Index: 1, Base: 16, Value: "FF"}})
	require.NoError(t, err)
	c, err := New("c", 2, 2, []Share{{Index: 1, Base: 16, Value: "fe"}, {Index: 2, Base: 10, Value: "3"}})
	require.NoError(t, err)

	assert.Len(t, a.Fingerprint(), 64)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestMarshalFormats(t *testing.T) {
	set, err := Parse([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)

	for _, format := range []Format{FormatJSON, FormatCBOR} {
		t.Run(string(format), func(t *testing.T) {
			data, err := set.Marshal(format)
			require.NoError(t, err)

			parsed, err := Parse(data, format)
			require.NoError(t, err)
			assert.Equal(t, set.N, parsed.N)
			assert.Equal(t, set.K, parsed.K)
			assert.Equal(t, set.Shares, parsed.Shares)
			assert.Equal(t, set.Fingerprint(), parsed.Fingerprint())
		})
	}
}

func TestMarshalJSONLayout(t *testing.T) {
	set, err := New("", 2, 1, []Share{{Index: 2, Base: 10, Value: "7"}, {Index: 1, Base: 6, Value: "324"}})
	require.NoError(t, err)

	data, err := set.Marshal(FormatJSON)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, `"base": "6"`)
	assert.Less(t, strings.Index(text, `"keys"`), strings.Index(text, `"1"`))
	assert.Less(t, strings.Index(text, `"1"`), strings.Index(text, `"2"`))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "testcase1.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(sampleJSON), 0600))

	set, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "testcase1.json", set.Name)

	cborData, err := set.Marshal(FormatCBOR)
	require.NoError(t, err)
	cborPath := filepath.Join(dir, "testcase1.cbor")
	require.NoError(t, os.WriteFile(cborPath, cborData, 0600))

	fromCBOR, err := Load(cborPath)
	require.NoError(t, err)
	assert.Equal(t, "testcase1.cbor", fromCBOR.Name)
	assert.Equal(t, set.Shares, fromCBOR.Shares)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatCBOR, FormatFromPath("a/b/set.CBOR"))
	assert.Equal(t, FormatJSON, FormatFromPath("set.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("set"))

	f, err := ParseFormat("CBOR")
	require.NoError(t, err)
	assert.Equal(t, FormatCBOR, f)
	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}
