package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

func validTestConfig() *domain.Config {
	return &domain.Config{
		Server: domain.ServerConfig{Port: 8080},
		History: domain.HistoryConfig{
			Backend:    "sqlite",
			SQLitePath: "data/reviews.db",
		},
		ExternalAPI: domain.ExternalAPIConfig{
			CPIC:   domain.CPICAPIConfig{BaseURL: "https://api.cpicpgx.org/v1/"},
			RxNorm: domain.RxNormAPIConfig{BaseURL: "https://rxnav.nlm.nih.gov/REST/"},
		},
		Logging: domain.LoggingConfig{Level: "info"},
	}
}

func TestValidateConfig_EmptyDatabaseHostSkipsPersistenceChecks(t *testing.T) {
	cfg := validTestConfig()
	cfg.Database = domain.DatabaseConfig{}

	require.NoError(t, validateConfig(cfg))
}

func TestValidateConfig_DatabaseFieldsRequiredWhenHostSet(t *testing.T) {
	cfg := validTestConfig()
	cfg.Database.Host = "localhost"

	err := validateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database name")

	cfg.Database.Database = "oncosaferx_phenotypes"
	err = validateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database username")

	cfg.Database.Username = "postgres"
	require.NoError(t, validateConfig(cfg))
}

func TestValidateConfig_PostgresHistoryNeedsDatabaseHost(t *testing.T) {
	cfg := validTestConfig()
	cfg.History.Backend = "postgres"

	err := validateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database host")
}

func TestValidateConfig_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Config)
	}{
		{"invalid port", func(c *domain.Config) { c.Server.Port = 0 }},
		{"unknown history backend", func(c *domain.Config) { c.History.Backend = "mysql" }},
		{"missing CPIC base URL", func(c *domain.Config) { c.ExternalAPI.CPIC.BaseURL = "" }},
		{"missing RxNorm base URL", func(c *domain.Config) { c.ExternalAPI.RxNorm.BaseURL = "" }},
		{"invalid log level", func(c *domain.Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}
