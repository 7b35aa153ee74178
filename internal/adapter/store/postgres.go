package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/port"
)

// PostgresStore is the primary store for leads, shortlists and audit logs.
type PostgresStore struct {
	db           *sql.DB
	shortlistTTL time.Duration
}

// NewPostgresStore opens a connection, pings it and ensures the schema exists.
// A zero shortlistTTL keeps shortlists forever.
func NewPostgresStore(ctx context.Context, databaseURL string, shortlistTTL time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{db: db, shortlistTTL: shortlistTTL}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables if they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS leads (
			id          UUID PRIMARY KEY,
			name        TEXT NOT NULL,
			contact     TEXT NOT NULL,
			interest    TEXT NOT NULL,
			email       TEXT NOT NULL DEFAULT '',
			phone       TEXT NOT NULL DEFAULT '',
			message     TEXT NOT NULL DEFAULT '',
			property_id TEXT NOT NULL DEFAULT '',
			source      TEXT NOT NULL DEFAULT 'primary',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS shortlists (
			share_id     TEXT PRIMARY KEY,
			property_ids TEXT[] NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id          BIGSERIAL PRIMARY KEY,
			user_id     TEXT NOT NULL,
			action      TEXT NOT NULL,
			resource    TEXT NOT NULL,
			resource_id TEXT NOT NULL DEFAULT '',
			details     JSONB,
			ip          TEXT NOT NULL DEFAULT '',
			user_agent  TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs (action, created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// --- Leads ---

// SaveLead inserts a lead.
func (s *PostgresStore) SaveLead(ctx context.Context, l *domain.Lead) error {
	query := `INSERT INTO leads (id, name, contact, interest, email, phone, message, property_id, source, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.db.ExecContext(ctx, query,
		l.ID, l.Name, l.Contact, l.Interest, l.Email, l.Phone, l.Message, l.PropertyID, l.Source, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// ListLeads returns the most recent leads first.
func (s *PostgresStore) ListLeads(ctx context.Context, limit int) ([]domain.Lead, error) {
	query := `SELECT id, name, contact, interest, email, phone, message, property_id, source, created_at
	          FROM leads ORDER BY created_at DESC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := []domain.Lead{}
	for rows.Next() {
		var l domain.Lead
		if err := rows.Scan(
			&l.ID, &l.Name, &l.Contact, &l.Interest, &l.Email, &l.Phone,
			&l.Message, &l.PropertyID, &l.Source, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// --- Shortlists ---

// SaveShortlist inserts or replaces a shortlist by share id.
func (s *PostgresStore) SaveShortlist(ctx context.Context, sl *domain.Shortlist) error {
	query := `INSERT INTO shortlists (share_id, property_ids, created_at)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (share_id) DO UPDATE SET
	              property_ids = EXCLUDED.property_ids,
	              created_at = EXCLUDED.created_at`
	if _, err := s.db.ExecContext(ctx, query, sl.ShareID, pq.Array(sl.PropertyIDs), sl.CreatedAt); err != nil {
		return fmt.Errorf("upsert shortlist: %w", err)
	}
	return nil
}

// GetShortlist returns port.ErrShortlistNotFound for unknown or expired ids.
func (s *PostgresStore) GetShortlist(ctx context.Context, shareID string) (*domain.Shortlist, error) {
	query := `SELECT share_id, property_ids, created_at FROM shortlists WHERE share_id = $1`

	var sl domain.Shortlist
	err := s.db.QueryRowContext(ctx, query, shareID).Scan(&sl.ShareID, pq.Array(&sl.PropertyIDs), &sl.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrShortlistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shortlist: %w", err)
	}
	if expired(sl.CreatedAt, s.shortlistTTL) {
		return nil, port.ErrShortlistNotFound
	}
	return &sl, nil
}

// PurgeExpired deletes shortlists older than the TTL.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s.shortlistTTL <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM shortlists WHERE created_at < $1`, time.Now().Add(-s.shortlistTTL))
	if err != nil {
		return 0, fmt.Errorf("purge shortlists: %w", err)
	}
	return res.RowsAffected()
}

// --- Audit Logs ---

// WriteAudit implements middleware.AuditWriter.
func (s *PostgresStore) WriteAudit(entry domain.AuditLog) error {
	query := `INSERT INTO audit_logs (user_id, action, resource, resource_id, details, ip, user_agent)
	          VALUES ($1, $2, $3, $4, NULLIF($5, '')::jsonb, $6, $7)`
	_, err := s.db.ExecContext(context.Background(), query,
		entry.UserID, entry.Action, entry.Resource, entry.ResourceID, entry.Details, entry.IP, entry.UserAgent,
	)
	return err
}

// ListAuditLogs returns recent audit logs, optionally filtered by action.
func (s *PostgresStore) ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error) {
	query := `SELECT id::text, user_id, action, resource, resource_id, COALESCE(details::text, ''), ip, user_agent, created_at
	          FROM audit_logs`
	args := []any{}
	argIdx := 1

	if action != "" {
		query += fmt.Sprintf(" WHERE action = $%d", argIdx)
		args = append(args, action)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.AuditLog{}
	for rows.Next() {
		var l domain.AuditLog
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.Action, &l.Resource, &l.ResourceID,
			&l.Details, &l.IP, &l.UserAgent, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func expired(createdAt time.Time, ttl time.Duration) bool {
	return ttl > 0 && time.Since(createdAt) > ttl
}
