package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

// migrate bootstraps the schema so a fresh database works out of the box.
func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_results (
			id              VARCHAR(36)  NOT NULL PRIMARY KEY,
			url             TEXT         NOT NULL,
			scanned_at      TIMESTAMPTZ  NOT NULL,
			status          VARCHAR(16)  NOT NULL,
			overall_grade   VARCHAR(4)   NOT NULL,
			risk_score      INT          NOT NULL,
			risk_level      VARCHAR(16)  NOT NULL,
			http_grade      VARCHAR(4)   NOT NULL,
			ssl_grade       VARCHAR(4)   NOT NULL,
			dns_grade       VARCHAR(4)   NOT NULL,
			critical        INT          NOT NULL DEFAULT 0,
			high            INT          NOT NULL DEFAULT 0,
			medium          INT          NOT NULL DEFAULT 0,
			low             INT          NOT NULL DEFAULT 0,
			findings_total  INT          NOT NULL DEFAULT 0,
			recommendations JSONB        NULL,
			duration_ms     BIGINT       NOT NULL DEFAULT 0,
			report_url      TEXT         NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_results_scanned_at ON scan_results (scanned_at)`,
		`CREATE TABLE IF NOT EXISTS check_records (
			id             BIGSERIAL    PRIMARY KEY,
			kind           VARCHAR(8)   NOT NULL,
			subject        TEXT         NOT NULL,
			breached       BOOLEAN      NOT NULL DEFAULT FALSE,
			phishing_score DOUBLE PRECISION NULL,
			risk_level     VARCHAR(16)  NOT NULL,
			checked_at     TIMESTAMPTZ  NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_check_records_checked_at ON check_records (checked_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
