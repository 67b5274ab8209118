// internal/output/mysql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3"

	"github.com/si0411/tourextract/internal/utils"
)

// NewMySQLWriter connects to dsn and migrates the schema. The DSN is
// parsed so utf8mb4 and time parsing are always on.
func NewMySQLWriter(ctx context.Context, dsn string, logger utils.Logger) (Writer, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	cfg.Params["charset"] = "utf8mb4"

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create MySQL connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := migrate(ctx, db, goose.DialectMySQL, "mysql"); err != nil {
		db.Close()
		return nil, err
	}

	return &sqlWriter{
		name:        "mysql",
		db:          db,
		placeholder: questionMarks,
		logger:      logger.WithField("sink", "mysql"),
	}, nil
}
