package security

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAccessDenied is the sentinel for ownership denials
var ErrAccessDenied = errors.New("access denied")

// ResourceType identifies the kind of resource being accessed
type ResourceType string

const (
	ResourceCompany ResourceType = "company"
	ResourceProduct ResourceType = "product"
)

// Action identifies what operation is being performed
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// ResourcePermission describes an ownership check on a specific record
type ResourcePermission struct {
	ResourceType ResourceType
	ResourceID   string
	OwnerID      string // company id (products) or user id (companies) that owns the record
	Action       Action
}

// Authorizer enforces single-owner access: only the owning identity may
// mutate a record. Reads of public listings never pass through here.
type Authorizer struct {
	logger *slog.Logger
}

func NewAuthorizer(logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{logger: logger}
}

// ValidateResourceAccess fails closed whenever the acting identity is not
// the owner. The denial is logged; the returned message is safe to show.
func (a *Authorizer) ValidateResourceAccess(actorID string, perm ResourcePermission) error {
	if actorID == "" || perm.OwnerID == "" || perm.OwnerID != actorID {
		a.logger.Warn("resource access denied",
			slog.String("actor_id", actorID),
			slog.String("resource_id", perm.ResourceID),
			slog.String("resource_type", string(perm.ResourceType)),
			slog.String("action", string(perm.Action)),
		)
		return fmt.Errorf("%w: you do not own this %s", ErrAccessDenied, perm.ResourceType)
	}
	return nil
}
