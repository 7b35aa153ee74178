package domain

import "time"

// AuditLog records a request or administrative action.
type AuditLog struct {
	ID         string    `json:"id"          db:"id"`
	UserID     string    `json:"user_id"     db:"user_id"`
	Action     string    `json:"action"      db:"action"`
	Resource   string    `json:"resource"    db:"resource"`
	ResourceID string    `json:"resource_id" db:"resource_id"`
	Details    string    `json:"details"     db:"details"` // JSON blob
	IP         string    `json:"ip"          db:"ip"`
	UserAgent  string    `json:"user_agent"  db:"user_agent"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}

// Audit action constants.
const (
	AuditActionHTTPRequest     = "http_request"
	AuditActionSearch          = "search"
	AuditActionLeadCaptured    = "lead_captured"
	AuditActionShortlistShared = "shortlist_shared"
	AuditActionRefresh         = "listings_refresh"
	AuditActionMCPCall         = "mcp_call"
)
