package config

import "time"

// RefTypeLead is the reference document type the CRM currently runs
// delayed-flag reconciliation for.
const RefTypeLead = "Lead"

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Reference types that participate in delayed-flag reconciliation
	ReconciledRefTypes map[string]bool

	// Reference types whose documents expose the delayed mirror attribute
	DelayedMirrorRefTypes map[string]bool

	// Batch limits
	DelayedMapBatchLimit int
	SweepBatchLimit      int

	// Snippet constraints
	LastCommentMaxLength int

	// Sweep timing
	SweepInterval time.Duration
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		ReconciledRefTypes: map[string]bool{
			RefTypeLead: true,
		},
		DelayedMirrorRefTypes: map[string]bool{
			RefTypeLead: true,
		},

		DelayedMapBatchLimit: 200,
		SweepBatchLimit:      200,

		LastCommentMaxLength: 140,

		SweepInterval: time.Minute,
	}
}

// SupportsReconciliation reports whether the reference type participates
// in delayed-flag reconciliation
func (c *DomainConfig) SupportsReconciliation(refType string) bool {
	return c.ReconciledRefTypes[refType]
}

// SupportsDelayedMirror reports whether documents of the reference type
// carry their own delayed attribute
func (c *DomainConfig) SupportsDelayedMirror(refType string) bool {
	return c.DelayedMirrorRefTypes[refType]
}
