package contracts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// World-state key layout. Every record is a JSON document under a prefixed
// key; range scans use the prefix..prefix+"~" convention.
const (
	entityKeyPrefix = "entity_"
	adminKeyPrefix  = "admin_"
	batchKeyPrefix  = "batch_"
	entityIndexKey  = "registry_index"
	breakerKey      = "circuit_breaker"
)

func entityKey(wallet string) string { return entityKeyPrefix + wallet }
func adminKey(wallet string) string  { return adminKeyPrefix + wallet }
func batchKey(batchID string) string { return batchKeyPrefix + batchID }

// callerID returns the client identity string acting as the caller's wallet.
func callerID(ctx contractapi.TransactionContextInterface) (string, error) {
	id, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %v", err)
	}
	return id, nil
}

func ledgerNow() int64 {
	return time.Now().Unix()
}

func putJSON(ctx contractapi.TransactionContextInterface, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %v", key, err)
	}
	return ctx.GetStub().PutState(key, data)
}

func emitEvent(ctx contractapi.TransactionContextInterface, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %v", name, err)
	}
	return ctx.GetStub().SetEvent(name, data)
}

// getEntity loads a registered entity or fails with ErrNotRegistered.
func getEntity(ctx contractapi.TransactionContextInterface, wallet string) (*Entity, error) {
	data, err := ctx.GetStub().GetState(entityKey(wallet))
	if err != nil {
		return nil, fmt.Errorf("failed to read entity: %v", err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, wallet)
	}
	var entity Entity
	if err := json.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity %s: %v", wallet, err)
	}
	return &entity, nil
}

func entityExists(ctx contractapi.TransactionContextInterface, wallet string) (bool, error) {
	data, err := ctx.GetStub().GetState(entityKey(wallet))
	if err != nil {
		return false, fmt.Errorf("failed to read entity: %v", err)
	}
	return data != nil, nil
}

// getBatch loads a batch or fails with ErrNotFound.
func getBatch(ctx contractapi.TransactionContextInterface, batchID string) (*Batch, error) {
	data, err := ctx.GetStub().GetState(batchKey(batchID))
	if err != nil {
		return nil, fmt.Errorf("failed to read batch: %v", err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, batchID)
	}
	var batch Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch %s: %v", batchID, err)
	}
	return &batch, nil
}

func batchExists(ctx contractapi.TransactionContextInterface, batchID string) (bool, error) {
	data, err := ctx.GetStub().GetState(batchKey(batchID))
	if err != nil {
		return false, fmt.Errorf("failed to read batch: %v", err)
	}
	return data != nil, nil
}

// isAdmin reports whether a wallet holds the orthogonal ADMIN role.
func isAdmin(ctx contractapi.TransactionContextInterface, wallet string) (bool, error) {
	data, err := ctx.GetStub().GetState(adminKey(wallet))
	if err != nil {
		return false, fmt.Errorf("failed to read admin grant: %v", err)
	}
	return data != nil, nil
}

// hasActiveRole reports whether a wallet currently holds the given role.
// ADMIN is checked against the grant markers, supply roles against the
// entity's declared type and active flag.
func hasActiveRole(ctx contractapi.TransactionContextInterface, role Role, wallet string) (bool, error) {
	if role == RoleAdmin {
		return isAdmin(ctx, wallet)
	}
	data, err := ctx.GetStub().GetState(entityKey(wallet))
	if err != nil {
		return false, fmt.Errorf("failed to read entity: %v", err)
	}
	if data == nil {
		return false, nil
	}
	var entity Entity
	if err := json.Unmarshal(data, &entity); err != nil {
		return false, fmt.Errorf("failed to unmarshal entity %s: %v", wallet, err)
	}
	return entity.RoleActive && entity.EntityType == role, nil
}

// requireNotPaused is the first check of every mutating operation.
func requireNotPaused(ctx contractapi.TransactionContextInterface) error {
	state, err := loadBreaker(ctx)
	if err != nil {
		return err
	}
	if state.Paused {
		return ErrPaused
	}
	return nil
}

// requireAdmin resolves the caller and asserts the ADMIN role.
func requireAdmin(ctx contractapi.TransactionContextInterface) (string, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	admin, err := isAdmin(ctx, caller)
	if err != nil {
		return "", err
	}
	if !admin {
		return "", fmt.Errorf("%w: caller must have admin role", ErrUnauthorized)
	}
	return caller, nil
}

func loadBreaker(ctx contractapi.TransactionContextInterface) (*breakerState, error) {
	data, err := ctx.GetStub().GetState(breakerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read circuit breaker: %v", err)
	}
	state := &breakerState{}
	if data == nil {
		return state, nil
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal circuit breaker: %v", err)
	}
	return state, nil
}

func loadEntityIndex(ctx contractapi.TransactionContextInterface) (*entityIndex, error) {
	data, err := ctx.GetStub().GetState(entityIndexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read entity index: %v", err)
	}
	index := &entityIndex{}
	if data == nil {
		return index, nil
	}
	if err := json.Unmarshal(data, index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity index: %v", err)
	}
	return index, nil
}
