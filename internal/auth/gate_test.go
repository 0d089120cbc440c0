package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGateVerify(t *testing.T) {
	t.Parallel()

	g, err := NewGate(DefaultUsers, bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, g.Verify("admin", "password123"))
	assert.True(t, g.Verify("analyst", "data2024"))
	assert.True(t, g.Verify("demo", "demo"))

	assert.False(t, g.Verify("admin", "data2024"))
	assert.False(t, g.Verify("Admin", "password123"))
	assert.False(t, g.Verify("nobody", "demo"))
	assert.False(t, g.Verify("", ""))

	assert.Equal(t, []string{"admin", "analyst", "demo"}, g.Usernames())
}

func TestNewGateRejectsEmptyTable(t *testing.T) {
	t.Parallel()

	_, err := NewGate(nil, bcrypt.MinCost)
	require.ErrorIs(t, err, ErrNoUsers)
}

func TestParseUsers(t *testing.T) {
	t.Parallel()

	users, err := ParseUsers(" alice:s3cret , bob:pa:ss,")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": "s3cret", "bob": "pa:ss"}, users)

	for _, raw := range []string{"", " , ", "alice", ":pw", "alice:", "a:1,a:2"} {
		_, err := ParseUsers(raw)
		assert.Error(t, err, raw)
	}
}
