// Package store persists call records and transcripts and resolves
// tenant agent configuration. Every write the media path triggers is
// fire-and-forget: failures are logged and absorbed, never surfaced as
// call failures.
package store

import (
	"context"

	"github.com/netlinkvoice/connectai/pkg/bridge/agent"
)

// Store is the bridge's narrow persistence contract.
type Store interface {
	// ActiveAgentForDomain resolves the tenant's active agent config.
	// A nil config with nil error means the tenant has no agent row and
	// callers should fall back to defaults.
	ActiveAgentForDomain(ctx context.Context, domain string) (*agent.Config, error)

	// CreateInteraction opens (or re-opens, idempotently) the call
	// record keyed by the external correlation id.
	CreateInteraction(ctx context.Context, externalID, tenantDomain string, agentID int64, callerIdentifier string) error

	// EndInteraction stamps the call record closed with an outcome.
	EndInteraction(ctx context.Context, externalID, outcome string) error

	// InsertMessage appends one transcript entry to the call record.
	InsertMessage(ctx context.Context, externalID, role, text string) error
}
