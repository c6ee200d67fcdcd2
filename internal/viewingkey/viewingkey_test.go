package viewingkey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-ledger/internal/domain"
)

func testEnv(height uint64) domain.Env {
	return domain.Env{
		Block:  domain.BlockInfo{Height: height, Time: 1_700_000_000},
		Sender: "sender",
	}
}

func TestNew_Deterministic(t *testing.T) {
	seed := []byte("seed")

	a, err := New(testEnv(1), seed, []byte("entropy"))
	require.NoError(t, err)
	b, err := New(testEnv(1), seed, []byte("entropy"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(string(a), Prefix))
}

func TestNew_VariesWithInputs(t *testing.T) {
	seed := []byte("seed")

	base, err := New(testEnv(1), seed, []byte("entropy"))
	require.NoError(t, err)

	otherHeight, err := New(testEnv(2), seed, []byte("entropy"))
	require.NoError(t, err)
	otherEntropy, err := New(testEnv(1), seed, []byte("other"))
	require.NoError(t, err)
	otherSeed, err := New(testEnv(1), []byte("seed2"), []byte("entropy"))
	require.NoError(t, err)

	assert.NotEqual(t, base, otherHeight)
	assert.NotEqual(t, base, otherEntropy)
	assert.NotEqual(t, base, otherSeed)
}

func TestNew_RequiresSeed(t *testing.T) {
	_, err := New(testEnv(1), nil, []byte("entropy"))
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	key := Key("correct horse")
	stored := key.Hash()

	assert.Len(t, stored, HashSize)
	assert.True(t, key.Check(stored))
	assert.False(t, Key("wrong").Check(stored))
	assert.False(t, key.Check(Dummy))
	assert.False(t, key.Check(nil))
}
