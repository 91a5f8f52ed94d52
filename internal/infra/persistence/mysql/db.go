package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	drv "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL with parseTime forced on, verifies the connection
// and creates the order tables if they do not exist.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := drv.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	connector, err := drv.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pending_orders (
        session_id   VARCHAR(255) NOT NULL PRIMARY KEY,
        image_data   LONGTEXT     NOT NULL,
        city_name    VARCHAR(255) NOT NULL DEFAULT '',
        state_name   VARCHAR(255) NOT NULL DEFAULT '',
        theme_name   VARCHAR(255) NOT NULL DEFAULT '',
        status       VARCHAR(32)  NOT NULL,
        failed_step  VARCHAR(32)  NOT NULL DEFAULT '',
        attempts     INT          NOT NULL DEFAULT 0,
        last_error   TEXT         NOT NULL,
        created_at   DATETIME(6)  NOT NULL,
        updated_at   DATETIME(6)  NOT NULL,
        INDEX idx_pending_created (created_at)
    )`,
	`CREATE TABLE IF NOT EXISTS completed_orders (
        session_id           VARCHAR(255) NOT NULL PRIMARY KEY,
        mockup_url           TEXT         NOT NULL,
        fulfillment_order_id VARCHAR(64)  NOT NULL,
        created_at           DATETIME(6)  NOT NULL,
        INDEX idx_completed_created (created_at)
    )`,
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate mysql: %w", err)
		}
	}
	return nil
}
