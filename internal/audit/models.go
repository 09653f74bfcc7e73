// Package audit captures who changed what during reconciliation. Events are
// written to a transactional outbox alongside the mutation and relayed to
// Kafka by a background worker; Kafka is the source of truth downstream.
package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         string
	Action     string
	EntityID   string
	SnapshotID string
	Actor      string
	RequestID  string
	Timestamp  time.Time
	Details    map[string]any
}

// Actions emitted by the reconciliation flow.
const (
	ActionSnapshotRecorded    = "registry.snapshot.recorded"
	ActionProposalApplied     = "registry.proposal.applied"
	ActionAffiliationsUnknown = "registry.affiliations.unknown"
	ActionEntityEnriched      = "registry.entity.enriched"
)
