package contracts

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// CircuitBreakerContract is the global kill switch. While engaged, every
// mutating operation on the registry and the batch ledger fails with
// ErrPaused before any other validation. Reads are unaffected.
type CircuitBreakerContract struct {
	contractapi.Contract
}

// Pause engages the breaker. Admin only.
func (c *CircuitBreakerContract) Pause(ctx contractapi.TransactionContextInterface) error {
	caller, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	state, err := loadBreaker(ctx)
	if err != nil {
		return err
	}
	if state.Paused {
		return ErrAlreadyPaused
	}

	state.Paused = true
	state.ChangedBy = caller
	state.ChangedAt = ledgerNow()
	if err := putJSON(ctx, breakerKey, state); err != nil {
		return err
	}
	return emitEvent(ctx, "LedgerPaused", PauseEvent{By: caller})
}

// Unpause releases the breaker. Admin only.
func (c *CircuitBreakerContract) Unpause(ctx contractapi.TransactionContextInterface) error {
	caller, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	state, err := loadBreaker(ctx)
	if err != nil {
		return err
	}
	if !state.Paused {
		return ErrAlreadyUnpaused
	}

	state.Paused = false
	state.ChangedBy = caller
	state.ChangedAt = ledgerNow()
	if err := putJSON(ctx, breakerKey, state); err != nil {
		return err
	}
	return emitEvent(ctx, "LedgerUnpaused", PauseEvent{By: caller})
}

// Paused reports the breaker state.
func (c *CircuitBreakerContract) Paused(ctx contractapi.TransactionContextInterface) (bool, error) {
	state, err := loadBreaker(ctx)
	if err != nil {
		return false, err
	}
	return state.Paused, nil
}
