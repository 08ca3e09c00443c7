package plugins

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllPermissions(t *testing.T) {
	perms := AllPermissions()
	assert.Equal(t, []Permission{
		"database.read", "database.write",
		"api.read", "api.write",
		"files.read", "files.write",
		"network.request",
	}, perms)

	// Callers cannot mutate the vocabulary
	perms[0] = "root"
	assert.Equal(t, PermissionDatabaseRead, AllPermissions()[0])
}

func TestParsePermission(t *testing.T) {
	for _, p := range AllPermissions() {
		got, err := ParsePermission(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := ParsePermission("filesystem.delete")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrManifestInvalid))

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "filesystem.delete", vErr.Value)
}

func TestPermissionIsValid(t *testing.T) {
	assert.True(t, PermissionNetworkRequest.IsValid())
	assert.False(t, Permission("").IsValid())
	assert.False(t, Permission("network.*").IsValid())
}
