package domain

// ExecutionVenue records which venue currently holds signing authority over a
// vault or schedule: the home ledger or the external low-latency venue.
// The venue is data, not a code path; claims and schedule mutations are valid
// under either venue.
type ExecutionVenue string

const (
	VenueHome      ExecutionVenue = "HOME"
	VenueDelegated ExecutionVenue = "DELEGATED"
)

// Delegate hands authority to the external venue
func (v *Vault) Delegate() error {
	if v.Venue == VenueDelegated {
		return ErrAlreadyDelegated
	}
	v.Venue = VenueDelegated
	return nil
}

// Undelegate returns authority to the home ledger
func (v *Vault) Undelegate() error {
	if v.Venue != VenueDelegated {
		return ErrNotDelegated
	}
	v.Venue = VenueHome
	return nil
}

// Delegate hands authority to the external venue.
// Only an active schedule may be delegated.
func (s *Schedule) Delegate() error {
	if s.Status != ScheduleStatusActive {
		return ErrScheduleNotActive
	}
	if s.Venue == VenueDelegated {
		return ErrAlreadyDelegated
	}
	s.Venue = VenueDelegated
	return nil
}

// Undelegate returns authority to the home ledger
func (s *Schedule) Undelegate() error {
	if s.Venue != VenueDelegated {
		return ErrNotDelegated
	}
	s.Venue = VenueHome
	return nil
}
