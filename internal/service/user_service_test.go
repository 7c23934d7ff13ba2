package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJWTSecretRefusesToStartUnconfiguredInRelease(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GIN_MODE", "release")

	require.Panics(t, func() { GetJWTSecret() })
}

func TestGetJWTSecretUsesConfiguredValue(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	t.Setenv("GIN_MODE", "release")

	assert.Equal(t, []byte("unit-test-secret"), GetJWTSecret())
}

func TestGetJWTSecretDevelopmentFallback(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GIN_MODE", "")

	assert.Equal(t, []byte("default_super_secret_key"), GetJWTSecret())
}
