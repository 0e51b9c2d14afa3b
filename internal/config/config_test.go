package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("ALGORITHM", "")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "")

	s, err := Load()
	require.NoError(t, err)
	require.Equal(t, "HS256", s.Algorithm)
	require.Equal(t, 30, s.AccessTokenExpireMinute)
	require.Equal(t, 30*time.Minute, s.AccessTokenTTL())
	require.Equal(t, "8080", s.Port)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownAlgorithm(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("ALGORITHM", "RS256")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("ALGORITHM", "HS256")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	t.Setenv("JWT_ISSUER", "obser")
	t.Setenv("JWT_AUD", "obser-web")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	s, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5, s.AccessTokenExpireMinute)
	require.Equal(t, "obser", s.JWTIssuer)
	require.Equal(t, "obser-web", s.JWTAudience)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, s.CORSOrigins)
}
