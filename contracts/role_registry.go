package contracts

import (
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// RoleRegistryContract manages the entity registry and role assignments.
// Every other contract authorizes callers against the state it maintains.
type RoleRegistryContract struct {
	contractapi.Contract
}

// InitLedger bootstraps a fresh ledger by granting the calling identity the
// ADMIN role. It can only succeed once; later admins are added via GrantRole.
func (r *RoleRegistryContract) InitLedger(ctx contractapi.TransactionContextInterface) error {
	caller, err := callerID(ctx)
	if err != nil {
		return err
	}

	iter, err := ctx.GetStub().GetStateByRange(adminKeyPrefix, adminKeyPrefix+"~")
	if err != nil {
		return fmt.Errorf("failed to query admin grants: %v", err)
	}
	defer iter.Close()
	if iter.HasNext() {
		return ErrAlreadyInitialized
	}

	grant := AdminGrant{
		Wallet:    caller,
		GrantedBy: "SYSTEM",
		GrantedAt: ledgerNow(),
	}
	if err := putJSON(ctx, adminKey(caller), grant); err != nil {
		return err
	}

	return emitEvent(ctx, "RoleAssigned", RoleAssignedEvent{Wallet: caller, Role: RoleAdmin})
}

// RegisterUserWithRole creates an entity profile and activates its supply
// role in one step. Admin only. The profile's name and type are immutable
// afterwards; re-registration of the same wallet is rejected.
func (r *RoleRegistryContract) RegisterUserWithRole(ctx contractapi.TransactionContextInterface,
	wallet string, roleID string, name string) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	caller, err := requireAdmin(ctx)
	if err != nil {
		return err
	}

	if wallet == "" {
		return fmt.Errorf("%w: cannot register zero address", ErrZeroAddress)
	}
	exists, err := entityExists(ctx, wallet)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, wallet)
	}
	role, ok := ParseRole(roleID)
	if !ok || !supplyRoles[role] {
		return fmt.Errorf("%w: %s", ErrInvalidRole, roleID)
	}
	if name == "" {
		return fmt.Errorf("%w: entity name", ErrEmptyName)
	}

	entity := Entity{
		Wallet:       wallet,
		Name:         name,
		EntityType:   role,
		RoleActive:   true,
		Registered:   true,
		RegisteredAt: ledgerNow(),
		RegisteredBy: caller,
	}
	if err := putJSON(ctx, entityKey(wallet), entity); err != nil {
		return err
	}

	index, err := loadEntityIndex(ctx)
	if err != nil {
		return err
	}
	index.Wallets = append(index.Wallets, wallet)
	if err := putJSON(ctx, entityIndexKey, index); err != nil {
		return err
	}

	if err := emitEvent(ctx, "RoleAssigned", RoleAssignedEvent{Wallet: wallet, Role: role}); err != nil {
		return err
	}
	return emitEvent(ctx, "EntityRegistered", EntityRegisteredEvent{
		Wallet:     wallet,
		Name:       name,
		EntityType: role,
	})
}

// GrantRole re-activates a revoked supply role, or grants the orthogonal
// ADMIN role. Admin only. The supply role must match the entity's declared
// type; the profile itself is never altered.
func (r *RoleRegistryContract) GrantRole(ctx contractapi.TransactionContextInterface,
	roleID string, wallet string) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	caller, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	role, ok := ParseRole(roleID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidRole, roleID)
	}
	if wallet == "" {
		return fmt.Errorf("%w: cannot grant role to zero address", ErrZeroAddress)
	}

	if role == RoleAdmin {
		already, err := isAdmin(ctx, wallet)
		if err != nil {
			return err
		}
		if already {
			return fmt.Errorf("%w: %s is already admin", ErrAlreadyActive, wallet)
		}
		grant := AdminGrant{Wallet: wallet, GrantedBy: caller, GrantedAt: ledgerNow()}
		if err := putJSON(ctx, adminKey(wallet), grant); err != nil {
			return err
		}
		return emitEvent(ctx, "RoleAssigned", RoleAssignedEvent{Wallet: wallet, Role: RoleAdmin})
	}

	entity, err := getEntity(ctx, wallet)
	if err != nil {
		return err
	}
	if entity.EntityType != role {
		return fmt.Errorf("%w: %s is registered as %s", ErrRoleMismatch, wallet, entity.EntityType)
	}
	if entity.RoleActive {
		return fmt.Errorf("%w: %s already holds %s", ErrAlreadyActive, wallet, role)
	}

	entity.RoleActive = true
	if err := putJSON(ctx, entityKey(wallet), entity); err != nil {
		return err
	}
	return emitEvent(ctx, "RoleAssigned", RoleAssignedEvent{Wallet: wallet, Role: role})
}

// RevokeRole deactivates a role without deleting the entity profile. Admins
// cannot revoke their own admin grant.
func (r *RoleRegistryContract) RevokeRole(ctx contractapi.TransactionContextInterface,
	roleID string, wallet string) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	caller, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	role, ok := ParseRole(roleID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidRole, roleID)
	}

	if role == RoleAdmin {
		if wallet == caller {
			return fmt.Errorf("%w: cannot revoke own admin role", ErrUnauthorized)
		}
		held, err := isAdmin(ctx, wallet)
		if err != nil {
			return err
		}
		if !held {
			return fmt.Errorf("%w: %s is not admin", ErrNotActive, wallet)
		}
		if err := ctx.GetStub().DelState(adminKey(wallet)); err != nil {
			return fmt.Errorf("failed to delete admin grant: %v", err)
		}
		return emitEvent(ctx, "RoleRevoked", RoleRevokedEvent{Wallet: wallet, Role: RoleAdmin})
	}

	entity, err := getEntity(ctx, wallet)
	if err != nil {
		return err
	}
	if !entity.RoleActive || entity.EntityType != role {
		return fmt.Errorf("%w: %s does not hold %s", ErrNotActive, wallet, role)
	}

	entity.RoleActive = false
	if err := putJSON(ctx, entityKey(wallet), entity); err != nil {
		return err
	}
	return emitEvent(ctx, "RoleRevoked", RoleRevokedEvent{Wallet: wallet, Role: role})
}

// HasRole reports whether the wallet currently holds the given role.
func (r *RoleRegistryContract) HasRole(ctx contractapi.TransactionContextInterface,
	roleID string, wallet string) (bool, error) {

	role, ok := ParseRole(roleID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrInvalidRole, roleID)
	}
	return hasActiveRole(ctx, role, wallet)
}

// GetEntity retrieves a registered entity profile.
func (r *RoleRegistryContract) GetEntity(ctx contractapi.TransactionContextInterface,
	wallet string) (*Entity, error) {
	return getEntity(ctx, wallet)
}

// IsEntityRegistered reports whether the wallet has an entity profile.
func (r *RoleRegistryContract) IsEntityRegistered(ctx contractapi.TransactionContextInterface,
	wallet string) (bool, error) {
	return entityExists(ctx, wallet)
}

// GetAllEntities returns every registered wallet in registration order.
func (r *RoleRegistryContract) GetAllEntities(ctx contractapi.TransactionContextInterface) ([]string, error) {
	index, err := loadEntityIndex(ctx)
	if err != nil {
		return nil, err
	}
	return index.Wallets, nil
}
