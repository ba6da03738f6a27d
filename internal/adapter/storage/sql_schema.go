package storage

import (
	"context"
	"fmt"
)

// Generated unique columns hold a value only while a loan is open or a
// reservation is active, so MySQL enforces one open loan per copy and one
// active reservation per borrower and title. Postgres uses partial indexes.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS titles (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		creator VARCHAR(255) NOT NULL,
		category VARCHAR(100) NOT NULL,
		published_on DATE NOT NULL,
		shelf_location VARCHAR(50) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS copies (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title_id BIGINT NOT NULL,
		barcode VARCHAR(50) NOT NULL UNIQUE,
		status VARCHAR(20) NOT NULL,
		version INT NOT NULL DEFAULT 0,
		INDEX idx_copies_title_status (title_id, status),
		FOREIGN KEY (title_id) REFERENCES titles(id)
	)`,
	`CREATE TABLE IF NOT EXISTS borrowers (
		id BIGINT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(120) NOT NULL,
		active BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		borrower_id BIGINT NOT NULL,
		copy_id BIGINT NOT NULL,
		title_id BIGINT NOT NULL,
		issued_at DATETIME(6) NOT NULL,
		due_at DATETIME(6) NOT NULL,
		returned_at DATETIME(6) NULL,
		fine_cents BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL,
		last_event VARCHAR(20) NOT NULL,
		renewals INT NOT NULL DEFAULT 0,
		open_copy_id BIGINT AS (IF(returned_at IS NULL, copy_id, NULL)) STORED UNIQUE,
		INDEX idx_loans_borrower (borrower_id, returned_at),
		INDEX idx_loans_due (returned_at, due_at),
		FOREIGN KEY (borrower_id) REFERENCES borrowers(id),
		FOREIGN KEY (copy_id) REFERENCES copies(id),
		FOREIGN KEY (title_id) REFERENCES titles(id)
	)`,
	`CREATE TABLE IF NOT EXISTS loan_events (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		loan_id BIGINT NOT NULL,
		kind VARCHAR(20) NOT NULL,
		occurred_at DATETIME(6) NOT NULL,
		due_at DATETIME(6) NOT NULL,
		fine_cents BIGINT NOT NULL DEFAULT 0,
		INDEX idx_loan_events_loan (loan_id),
		FOREIGN KEY (loan_id) REFERENCES loans(id)
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		borrower_id BIGINT NOT NULL,
		title_id BIGINT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		notified_at DATETIME(6) NULL,
		status VARCHAR(20) NOT NULL,
		active_key VARCHAR(64) AS (IF(status = 'active', CONCAT(borrower_id, ':', title_id), NULL)) STORED UNIQUE,
		INDEX idx_reservations_queue (title_id, status, created_at, id),
		FOREIGN KEY (borrower_id) REFERENCES borrowers(id),
		FOREIGN KEY (title_id) REFERENCES titles(id)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS titles (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		creator TEXT NOT NULL,
		category TEXT NOT NULL,
		published_on DATE NOT NULL,
		shelf_location TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS copies (
		id BIGSERIAL PRIMARY KEY,
		title_id BIGINT NOT NULL REFERENCES titles(id),
		barcode TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL,
		version INT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_copies_title_status ON copies (title_id, status)`,
	`CREATE TABLE IF NOT EXISTS borrowers (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		active BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id BIGSERIAL PRIMARY KEY,
		borrower_id BIGINT NOT NULL REFERENCES borrowers(id),
		copy_id BIGINT NOT NULL REFERENCES copies(id),
		title_id BIGINT NOT NULL REFERENCES titles(id),
		issued_at TIMESTAMPTZ NOT NULL,
		due_at TIMESTAMPTZ NOT NULL,
		returned_at TIMESTAMPTZ NULL,
		fine_cents BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		last_event TEXT NOT NULL,
		renewals INT NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_loans_open_copy ON loans (copy_id) WHERE returned_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_loans_borrower ON loans (borrower_id, returned_at)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_overdue ON loans (due_at) WHERE returned_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS loan_events (
		id BIGSERIAL PRIMARY KEY,
		loan_id BIGINT NOT NULL REFERENCES loans(id),
		kind TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		due_at TIMESTAMPTZ NOT NULL,
		fine_cents BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loan_events_loan ON loan_events (loan_id)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGSERIAL PRIMARY KEY,
		borrower_id BIGINT NOT NULL REFERENCES borrowers(id),
		title_id BIGINT NOT NULL REFERENCES titles(id),
		created_at TIMESTAMPTZ NOT NULL,
		notified_at TIMESTAMPTZ NULL,
		status TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_reservations_active ON reservations (borrower_id, title_id) WHERE status = 'active'`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_queue ON reservations (title_id, status, created_at, id)`,
}

// Migrate creates the lending tables if they do not exist.
func (a *SQLAdapter) Migrate(ctx context.Context) error {
	schema := mysqlSchema
	if a.postgres {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
