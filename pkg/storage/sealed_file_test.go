package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Davincible/polysecret/pkg/shareset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSet(t *testing.T) *shareset.ShareSet {
	t.Helper()
	set, err := shareset.New("sample", 4, 3, []shareset.Share{
		{Index: 1, Base: 10, Value: "4"},
		{Index: 2, Base: 2, Value: "111"},
		{Index: 3, Base: 10, Value: "12"},
		{Index: 6, Base: 4, Value: "213"},
	})
	require.NoError(t, err)
	return set
}

func TestSealedFileSaveLoad(t *testing.T) {
	for _, format := range []shareset.Format{shareset.FormatJSON, shareset.FormatCBOR} {
		t.Run(string(format), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "set.sealed")
			sf := NewSealedFile(path)
			assert.False(t, sf.Exists())

			set := sampleSet(t)
			require.NoError(t, sf.Save(set, format, []byte("correct horse")))
			assert.True(t, sf.Exists())

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.NotContains(t, string(raw), "value")

			loaded, err := sf.Load([]byte("correct horse"))
			require.NoError(t, err)
			assert.Equal(t, "set.sealed", loaded.Name)
			assert.Equal(t, set.Shares, loaded.Shares)
			assert.Equal(t, set.Fingerprint(), loaded.Fingerprint())
		})
	}
}

func TestSealedFileWrongPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.sealed")
	sf := NewSealedFile(path)
	require.NoError(t, sf.Save(sampleSet(t), shareset.FormatJSON, []byte("right")))

	_, err := sf.Load([]byte("wrong"))
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = sf.Load(nil)
	assert.Error(t, err)
}

func TestOpenDetectsTampering(t *testing.T) {
	password := []byte("pw")
	env, err := Seal([]byte(`{"keys":{"n":1,"k":1},"1":{"base":"10","value":"4"}}`), shareset.FormatJSON, password)
	require.NoError(t, err)

	tampered := *env
	tampered.Ciphertext = append([]byte(nil), env.Ciphertext...)
	tampered.Ciphertext[0] ^= 0xff
	_, err = Open(&tampered, password)
	assert.ErrorIs(t, err, ErrDecrypt)

	// the format is authenticated as well
	relabelled := *env
	relabelled.Format = shareset.FormatCBOR
	_, err = Open(&relabelled, password)
	assert.ErrorIs(t, err, ErrDecrypt)

	plaintext, err := Open(env, password)
	require.NoError(t, err)
	assert.Contains(t, string(plaintext), `"value":"4"`)
}

func TestSealEmptyPassword(t *testing.T) {
	_, err := Seal([]byte("data"), shareset.FormatJSON, nil)
	assert.Error(t, err)
}

func TestIsSealed(t *testing.T) {
	assert.True(t, IsSealed("a/b/set.sealed"))
	assert.True(t, IsSealed("SET.SEALED"))
	assert.False(t, IsSealed("set.json"))
}
