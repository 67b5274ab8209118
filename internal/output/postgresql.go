// internal/output/postgresql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pressly/goose/v3"

	"github.com/si0411/tourextract/internal/utils"
)

// NewPostgreSQLWriter connects to dsn and migrates the schema.
func NewPostgreSQLWriter(ctx context.Context, dsn string, logger utils.Logger) (Writer, error) {
	if dsn == "" {
		return nil, fmt.Errorf("PostgreSQL connection string is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := migrate(ctx, db, goose.DialectPostgres, "postgres"); err != nil {
		db.Close()
		return nil, err
	}

	return &sqlWriter{
		name:        "postgres",
		db:          db,
		placeholder: dollarN,
		logger:      logger.WithField("sink", "postgres"),
	}, nil
}
