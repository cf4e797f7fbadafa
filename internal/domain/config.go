package domain

// Batch timeout bounds: 1 hour to 30 days
const (
	MinBatchTimeoutSeconds uint64 = 3600
	MaxBatchTimeoutSeconds uint64 = 2592000
)

// EngineConfig is the global configuration of the settlement engine.
// Only governance may mutate it; the pause flag gates every mutating
// operation on vaults and schedules.
type EngineConfig struct {
	Governance          Address // admin authority
	ExecutionAuthority  Address // the only caller allowed to execute claims
	AllowedAsset        Address // the single fungible asset vaults accept
	Paused              bool    // emergency halt flag
	MaxRecipients       uint16  // upper bound on recipients per schedule
	BatchTimeoutSeconds uint64  // declared cycle timeout; surfaced by reporting, not enforced by claims
}

// Validate ensures the config adheres to domain rules
func (c *EngineConfig) Validate() error {
	if c.MaxRecipients == 0 {
		return ErrInvalidMaxRecipients
	}
	if c.MaxRecipients > MaxScheduleRecipients {
		return ErrInvalidMaxRecipients
	}
	if c.Governance.IsZero() || c.ExecutionAuthority.IsZero() {
		return ErrInvalidAuthority
	}
	if c.AllowedAsset.IsZero() {
		return ErrInvalidAsset
	}
	if c.BatchTimeoutSeconds < MinBatchTimeoutSeconds || c.BatchTimeoutSeconds > MaxBatchTimeoutSeconds {
		return ErrInvalidBatchTimeout
	}
	return nil
}
