package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 7*24*time.Hour, cfg.Invites.TTL)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  addr: ":9000"
  dev: false
auth:
  jwt_secret: file-secret
  token_ttl: 2h
invites:
  ttl: 48h
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("PM_ADDR", ":9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.Server.Addr)
	require.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	require.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	require.Equal(t, 48*time.Hour, cfg.Invites.TTL)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mysql"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Server.Dev = false
	require.Error(t, cfg.Validate(), "dev secret outside dev mode")

	cfg = Default()
	cfg.Invites.TTL = 0
	require.Error(t, cfg.Validate())

	require.NoError(t, Default().Validate())
}
