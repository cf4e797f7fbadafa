package domain

// Vault is the custodial escrow balance of one employer, partitioned into
// available (free) and reserved (committed to schedules) funds.
// Conservation invariant: Available + Reserved == balance of the custodial
// account, re-checked after every mutating operation.
type Vault struct {
	Owner            Address        // employer authority
	CustodialAccount Address        // token account holding the actual balance
	Asset            Address        // fungible asset this vault accepts, fixed at creation
	Available        uint64         // free funds
	Reserved         uint64         // funds committed to schedules
	Venue            ExecutionVenue // which execution venue currently holds authority
}

// NewVault creates a vault for an employer with zero balances.
// The custodial account address is derived from the owner identity.
func NewVault(owner, asset Address) *Vault {
	return &Vault{
		Owner:            owner,
		CustodialAccount: CustodialAccountAddress(owner),
		Asset:            asset,
		Venue:            VenueHome,
	}
}

// Authority returns the signing identity controlling the vault's custodial account
func (v *Vault) Authority() Address {
	return VaultAuthorityAddress(v.Owner)
}

// Credit adds deposited funds to the available partition
func (v *Vault) Credit(amount uint64) error {
	next, err := checkedAdd(v.Available, amount)
	if err != nil {
		return err
	}
	v.Available = next
	return nil
}

// Debit removes withdrawn funds from the available partition
func (v *Vault) Debit(amount uint64) error {
	next, err := checkedSub(v.Available, amount)
	if err != nil {
		return err
	}
	v.Available = next
	return nil
}

// Reserve moves funds from available to reserved when a schedule commits them
func (v *Vault) Reserve(amount uint64) error {
	available, err := checkedSub(v.Available, amount)
	if err != nil {
		return err
	}
	reserved, err := checkedAdd(v.Reserved, amount)
	if err != nil {
		return err
	}
	v.Available = available
	v.Reserved = reserved
	return nil
}

// Release returns unspent reserved funds to available when a schedule is cancelled
func (v *Vault) Release(amount uint64) error {
	reserved, err := checkedSub(v.Reserved, amount)
	if err != nil {
		return err
	}
	available, err := checkedAdd(v.Available, amount)
	if err != nil {
		return err
	}
	v.Reserved = reserved
	v.Available = available
	return nil
}

// Settle removes fully disbursed cycle funds from the reserved partition
func (v *Vault) Settle(amount uint64) error {
	next, err := checkedSub(v.Reserved, amount)
	if err != nil {
		return err
	}
	v.Reserved = next
	return nil
}

// CheckConservation asserts Available + Reserved == custodialBalance.
// A mismatch can only arise from a transfer outside this protocol's control
// and is a hard integrity fault, not a recoverable validation error.
func (v *Vault) CheckConservation(custodialBalance uint64) error {
	total, err := checkedAdd(v.Available, v.Reserved)
	if err != nil {
		return err
	}
	if total != custodialBalance {
		return ErrVaultMismatch
	}
	return nil
}

// checkedAdd returns a + b, or ErrInsufficientFunds on uint64 overflow
func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrInsufficientFunds
	}
	return sum, nil
}

// checkedSub returns a - b, or ErrInsufficientFunds on underflow
func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrInsufficientFunds
	}
	return a - b, nil
}
