package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the mutating operation an audit record describes
type EventType string

const (
	EventConfigInitialized   EventType = "CONFIG_INITIALIZED"
	EventAuthorityRotated    EventType = "AUTHORITY_ROTATED"
	EventEnginePaused        EventType = "ENGINE_PAUSED"
	EventEngineUnpaused      EventType = "ENGINE_UNPAUSED"
	EventVaultInitialized    EventType = "VAULT_INITIALIZED"
	EventVaultDeposited      EventType = "VAULT_DEPOSITED"
	EventVaultWithdrawn      EventType = "VAULT_WITHDRAWN"
	EventScheduleCreated     EventType = "SCHEDULE_CREATED"
	EventSchedulePaused      EventType = "SCHEDULE_PAUSED"
	EventScheduleResumed     EventType = "SCHEDULE_RESUMED"
	EventScheduleCancelled   EventType = "SCHEDULE_CANCELLED"
	EventCycleAdvanced       EventType = "CYCLE_ADVANCED"
	EventPaymentClaimed      EventType = "PAYMENT_CLAIMED"
	EventVaultDelegated      EventType = "VAULT_DELEGATED"
	EventVaultUndelegated    EventType = "VAULT_UNDELEGATED"
	EventScheduleDelegated   EventType = "SCHEDULE_DELEGATED"
	EventScheduleUndelegated EventType = "SCHEDULE_UNDELEGATED"
	EventStateCommitted      EventType = "STATE_COMMITTED"
)

// Event is one audit record, appended per successful mutating call.
// Records are written for off-protocol auditing and indexing and are
// never read back by the engine itself.
type Event struct {
	ID         uuid.UUID
	Type       EventType
	Actor      Address // caller identity
	VaultOwner Address // zero if not vault-scoped
	ScheduleID Hash32  // zero if not schedule-scoped
	Recipient  Address // zero unless a claim
	LeafIndex  uint16
	Amount     uint64
	Available  uint64 // resulting vault available balance
	Reserved   uint64 // resulting vault reserved balance
	PaidCount  uint16 // resulting schedule paid count
	OccurredAt time.Time
}

// NewEvent creates an audit record with a fresh identity
func NewEvent(eventType EventType, actor Address, occurredAt time.Time) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		Actor:      actor,
		OccurredAt: occurredAt,
	}
}
