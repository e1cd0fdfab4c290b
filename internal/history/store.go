package history

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

// Open selects and opens the configured review store backend.
// postgresConn is only consulted when the backend is "postgres".
func Open(cfg domain.HistoryConfig, postgresConn string, logger *logrus.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, logger)
	case "postgres":
		return NewPostgresStore(postgresConn, logger)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}
