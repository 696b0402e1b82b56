package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
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
			url             VARCHAR(2048) NOT NULL,
			scanned_at      DATETIME     NOT NULL,
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
			recommendations JSON         NULL,
			duration_ms     BIGINT       NOT NULL DEFAULT 0,
			report_url      VARCHAR(2048) NOT NULL DEFAULT '',
			INDEX idx_scan_results_scanned_at (scanned_at)
		)`,
		`CREATE TABLE IF NOT EXISTS check_records (
			id             BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
			kind           VARCHAR(8)   NOT NULL,
			subject        VARCHAR(2048) NOT NULL,
			breached       TINYINT(1)   NOT NULL DEFAULT 0,
			phishing_score DOUBLE       NULL,
			risk_level     VARCHAR(16)  NOT NULL,
			checked_at     DATETIME     NOT NULL,
			INDEX idx_check_records_checked_at (checked_at)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
