package test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Davincible/polysecret/internal/cli"
	"github.com/Davincible/polysecret/pkg/crypto/interpolate"
	"github.com/Davincible/polysecret/pkg/crypto/reconstruct"
	"github.com/Davincible/polysecret/pkg/shareset"
	"github.com/Davincible/polysecret/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testdata(name string) string {
	return filepath.Join("testdata", name)
}

func options(strategy reconstruct.Strategy, arithmetic interpolate.Arithmetic) cli.RecoverOptions {
	return cli.RecoverOptions{
		Strategy:    strategy,
		Solver:      interpolate.NewSolver(arithmetic),
		Parallelism: 2,
	}
}

func TestFullWorkflow(t *testing.T) {
	paths := []string{testdata("testcase1.json"), testdata("testcase2.json")}

	outcomes, err := cli.RecoverAll(context.Background(), paths, options(reconstruct.FirstK{}, interpolate.ArithmeticExact))
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	for _, o := range outcomes {
		require.NoError(t, o.Err, o.Source)
		assert.Empty(t, o.Warnings, o.Source)
	}
	assert.Equal(t, "3", outcomes[0].Result.Secret.String())
	assert.Equal(t, "79836264049851", outcomes[1].Result.Secret.String())
}

func TestTruncatingArithmetic(t *testing.T) {
	paths := []string{testdata("testcase1.json"), testdata("testcase2.json")}

	outcomes, err := cli.RecoverAll(context.Background(), paths, options(reconstruct.FirstK{}, interpolate.ArithmeticTruncating))
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	// truncated pivot factors leave the first row untouched
	assert.Equal(t, "4", outcomes[0].Result.Secret.String())
	assert.Equal(t, "987734158251704194", outcomes[1].Result.Secret.String())
}

func TestCorruptedShareWorkflow(t *testing.T) {
	path := testdata("corrupted.json")

	set, err := shareset.Load(path)
	require.NoError(t, err)

	report, err := cli.CheckShareSet(set, interpolate.NewSolver(interpolate.ArithmeticExact))
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.Equal(t, "79836264049845", report.Secret)

	outcomes, err := cli.RecoverAll(context.Background(), []string{path}, options(&reconstruct.Consensus{}, interpolate.ArithmeticExact))
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, "79836264049851", outcomes[0].Result.Secret.String())
	assert.Equal(t, 5, outcomes[0].Result.Votes)
}

func TestSealedWorkflow(t *testing.T) {
	set, err := shareset.Load(testdata("testcase2.json"))
	require.NoError(t, err)

	dir := t.TempDir()
	for _, format := range []shareset.Format{shareset.FormatJSON, shareset.FormatCBOR} {
		t.Run(string(format), func(t *testing.T) {
			sealed := storage.NewSealedFile(filepath.Join(dir, string(format)+storage.SealedExt))
			require.NoError(t, sealed.Save(set, format, []byte("correct horse")))
			assert.True(t, sealed.Exists())

			loaded, err := sealed.Load([]byte("correct horse"))
			require.NoError(t, err)
			assert.Equal(t, set.Fingerprint(), loaded.Fingerprint())

			result, err := reconstruct.Recover(loaded, &reconstruct.Consensus{}, nil)
			require.NoError(t, err)
			assert.Equal(t, "79836264049851", result.Secret.String())
			assert.Equal(t, 15, result.Votes)

			_, err = sealed.Load([]byte("wrong horse"))
			assert.ErrorIs(t, err, storage.ErrDecrypt)
		})
	}
}

func TestCBORRoundTripKeepsSecret(t *testing.T) {
	set, err := shareset.Load(testdata("testcase1.json"))
	require.NoError(t, err)

	data, err := set.Marshal(shareset.FormatCBOR)
	require.NoError(t, err)

	decoded, err := shareset.Parse(data, shareset.FormatCBOR)
	require.NoError(t, err)

	secret, err := interpolate.ReconstructSecret(mustPoints(t, decoded), decoded.K)
	require.NoError(t, err)
	assert.Equal(t, "3", secret.String())
}

func mustPoints(t *testing.T, set *shareset.ShareSet) []interpolate.Point {
	t.Helper()
	points, err := set.Points(0)
	require.NoError(t, err)
	return points
}
