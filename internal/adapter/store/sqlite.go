package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/port"
)

// SQLiteStore is the file-backed fallback for leads, shortlists and audit logs.
type SQLiteStore struct {
	db           *sqlx.DB
	shortlistTTL time.Duration
}

// NewSQLiteStore opens (creating if needed) the database file at path.
// ":memory:" opens a private in-memory database.
func NewSQLiteStore(path string, shortlistTTL time.Duration) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	// sqlite allows one writer; in-memory databases are per connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, shortlistTTL: shortlistTTL}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS leads (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			contact TEXT NOT NULL,
			interest TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			property_id TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT 'fallback',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS shortlists (
			share_id TEXT PRIMARY KEY,
			property_ids TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			action TEXT NOT NULL,
			resource TEXT NOT NULL,
			resource_id TEXT NOT NULL DEFAULT '',
			details TEXT NOT NULL DEFAULT '',
			ip TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_shortlists_created_at ON shortlists(created_at)`,
	}
	for _, stmt := range tables {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	return nil
}

// SaveLead inserts a lead.
func (s *SQLiteStore) SaveLead(ctx context.Context, l *domain.Lead) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO leads (id, name, contact, interest, email, phone, message, property_id, source, created_at)
		 VALUES (:id, :name, :contact, :interest, :email, :phone, :message, :property_id, :source, :created_at)`, l)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// ListLeads returns the most recent leads first.
func (s *SQLiteStore) ListLeads(ctx context.Context, limit int) ([]domain.Lead, error) {
	leads := []domain.Lead{}
	err := s.db.SelectContext(ctx, &leads,
		`SELECT id, name, contact, interest, email, phone, message, property_id, source, created_at
		 FROM leads ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

type shortlistRow struct {
	ShareID     string    `db:"share_id"`
	PropertyIDs string    `db:"property_ids"`
	CreatedAt   time.Time `db:"created_at"`
}

// SaveShortlist inserts or replaces a shortlist by share id.
func (s *SQLiteStore) SaveShortlist(ctx context.Context, sl *domain.Shortlist) error {
	ids, err := json.Marshal(sl.PropertyIDs)
	if err != nil {
		return fmt.Errorf("encode shortlist: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO shortlists (share_id, property_ids, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(share_id) DO UPDATE SET property_ids = excluded.property_ids, created_at = excluded.created_at`,
		sl.ShareID, string(ids), sl.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert shortlist: %w", err)
	}
	return nil
}

// GetShortlist returns port.ErrShortlistNotFound for unknown or expired ids.
func (s *SQLiteStore) GetShortlist(ctx context.Context, shareID string) (*domain.Shortlist, error) {
	var row shortlistRow
	err := s.db.GetContext(ctx, &row,
		`SELECT share_id, property_ids, created_at FROM shortlists WHERE share_id = ?`, shareID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrShortlistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shortlist: %w", err)
	}
	if expired(row.CreatedAt, s.shortlistTTL) {
		return nil, port.ErrShortlistNotFound
	}

	sl := &domain.Shortlist{ShareID: row.ShareID, CreatedAt: row.CreatedAt}
	if err := json.Unmarshal([]byte(row.PropertyIDs), &sl.PropertyIDs); err != nil {
		return nil, fmt.Errorf("decode shortlist %s: %w", shareID, err)
	}
	return sl, nil
}

// PurgeExpired deletes shortlists older than the TTL.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s.shortlistTTL <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM shortlists WHERE created_at < ?`, time.Now().UTC().Add(-s.shortlistTTL))
	if err != nil {
		return 0, fmt.Errorf("purge shortlists: %w", err)
	}
	return res.RowsAffected()
}

// WriteAudit implements middleware.AuditWriter.
func (s *SQLiteStore) WriteAudit(entry domain.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO audit_logs (user_id, action, resource, resource_id, details, ip, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.Action, entry.Resource, entry.ResourceID, entry.Details, entry.IP, entry.UserAgent, entry.CreatedAt)
	return err
}

// ListAuditLogs returns recent audit logs, optionally filtered by action.
func (s *SQLiteStore) ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error) {
	query := `SELECT CAST(id AS TEXT) AS id, user_id, action, resource, resource_id, details, ip, user_agent, created_at FROM audit_logs`
	args := []any{}
	if action != "" {
		query += " WHERE action = ?"
		args = append(args, action)
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	logs := []domain.AuditLog{}
	if err := s.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
