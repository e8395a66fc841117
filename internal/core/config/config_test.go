package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestReadAppliesDefaults(t *testing.T) {
	p := writeYAML(t, "jwt:\n  secret: s3cret\n")

	c, err := Read(p)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", c.JWT.Secret)
	assert.Equal(t, int64(100), c.Market.UnitPrice)
	assert.Equal(t, []string{"MP"}, c.Market.PaymentPrefixes)
	assert.Equal(t, 30, c.Market.NeedTTLDays)
	assert.Equal(t, 8080, c.App.HTTP.Port)
	assert.Equal(t, "postgres", c.DB.Driver)
}

func TestReadEnvOverride(t *testing.T) {
	p := writeYAML(t, "db:\n  driver: mysql\n")
	t.Setenv("APP_DB_DRIVER", "sqlite")

	c, err := Read(p)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.DB.Driver)
}

func TestReadRejectsBadUnitPrice(t *testing.T) {
	p := writeYAML(t, "market:\n  unitPrice: 0\n")

	_, err := Read(p)
	require.Error(t, err)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
