// internal/identity/identity.go
package identity

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Record associates a table with the display name used there and the
// participant identifier the server assigned for it. Records live for the
// duration of a session; an explicit disconnect removes them.
type Record struct {
	TableID string `json:"table_id"`
	Name    string `json:"name"`
	PID     string `json:"pid"`
}

// Store persists identity records keyed by table id, so connections to
// different tables never collide.
type Store interface {
	Get(ctx context.Context, tableID string) (*Record, error)
	Put(ctx context.Context, rec Record) error
	Delete(ctx context.Context, tableID string) error
}

// Resolver decides whether a join request should ask the server to reuse a
// previously assigned participant identifier.
type Resolver struct {
	store  Store
	logger *logrus.Logger
}

// NewResolver builds a Resolver over the given store.
func NewResolver(store Store, logger *logrus.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the participant id to present on join, or "" to request a
// fresh one. Reuse is requested only when no auth token is involved and the
// stored record for this table carries exactly the same display name; a name
// change means a different participant.
func (r *Resolver) Resolve(ctx context.Context, tableID, displayName string, hasToken bool) string {
	if hasToken {
		return ""
	}
	rec, err := r.store.Get(ctx, tableID)
	if err != nil {
		r.logger.Warnf("identity lookup failed for table %s: %v", tableID, err)
		return ""
	}
	if rec == nil || rec.Name != displayName {
		return ""
	}
	return rec.PID
}

// Remember persists the server-assigned identifier for this table and name.
func (r *Resolver) Remember(ctx context.Context, tableID, displayName, pid string) {
	err := r.store.Put(ctx, Record{TableID: tableID, Name: displayName, PID: pid})
	if err != nil {
		r.logger.Warnf("failed to persist identity for table %s: %v", tableID, err)
	}
}

// Forget removes the table's record so the next join gets a fresh identity.
func (r *Resolver) Forget(ctx context.Context, tableID string) {
	if err := r.store.Delete(ctx, tableID); err != nil {
		r.logger.Warnf("failed to clear identity for table %s: %v", tableID, err)
	}
}
