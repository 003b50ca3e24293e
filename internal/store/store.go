// Package store persists wizard sessions and the export documents produced
// from them.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/narrative-cli/internal/model"
	"github.com/sells-group/narrative-cli/internal/session"
)

// ErrNotFound is returned when a session or export does not exist.
var ErrNotFound = eris.New("not found")

// SessionFilter specifies criteria for listing sessions.
type SessionFilter struct {
	Step   session.Step `json:"step,omitempty"`
	Brand  string       `json:"brand,omitempty"`
	Limit  int          `json:"limit,omitempty"`
	Offset int          `json:"offset,omitempty"`
}

// SessionSummary is one row of a session listing.
type SessionSummary struct {
	ID        string       `json:"id"`
	BrandName string       `json:"brand_name"`
	Step      session.Step `json:"step"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ExportRecord is a stored hand-off document.
type ExportRecord struct {
	ID        string               `json:"id"`
	SessionID string               `json:"session_id"`
	BrandName string               `json:"brand_name"`
	Document  model.PipelineExport `json:"document"`
	CreatedAt time.Time            `json:"created_at"`
}

// Store defines the persistence interface for sessions.
type Store interface {
	// Sessions. The provider credential is never persisted.
	SaveSession(ctx context.Context, s *session.Session) error
	GetSession(ctx context.Context, id string) (*session.Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]SessionSummary, error)
	DeleteSession(ctx context.Context, id string) error

	// Exports
	SaveExport(ctx context.Context, sessionID string, exp model.PipelineExport) (*ExportRecord, error)
	ListExports(ctx context.Context, sessionID string) ([]ExportRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

func decodeSession(data []byte) (*session.Session, error) {
	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal session")
	}
	return &s, nil
}
