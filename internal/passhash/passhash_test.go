package passhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDigest_DeterministicPerUser(t *testing.T) {
	t.Parallel()

	a, err := Digest("Alice", "s3cret")
	require.NoError(t, err)
	require.Len(t, a, KeyLen*2)

	b, err := Digest("  alice ", "s3cret")
	require.NoError(t, err)
	require.Equal(t, a, b, "username is normalized")

	c, err := Digest("bob", "s3cret")
	require.NoError(t, err)
	require.NotEqual(t, a, c, "salt depends on username")

	d, err := Digest("alice", "S3cret")
	require.NoError(t, err)
	require.NotEqual(t, a, d, "password is case sensitive")
	require.NotContains(t, a, "s3cret")
}

func TestDigest_Empty(t *testing.T) {
	t.Parallel()

	_, err := Digest("", "x")
	require.ErrorIs(t, err, ErrEmpty)

	_, err = Digest("   ", "x")
	require.ErrorIs(t, err, ErrEmpty)

	_, err = Digest("alice", "")
	require.ErrorIs(t, err, ErrEmpty)
}
