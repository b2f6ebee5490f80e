package contracts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLedgerBootstrapsAdmin(t *testing.T) {
	l := newTestLedger(t)

	isAdmin, err := l.registry.HasRole(l.as(strangerWallet), string(RoleAdmin), adminWallet)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	// A second bootstrap attempt must not mint another admin.
	err = l.registry.InitLedger(l.as(strangerWallet))
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestRegisterUserWithRole(t *testing.T) {
	l := newTestLedger(t)

	err := l.registry.RegisterUserWithRole(l.as(adminWallet), producerWallet, string(RoleProducer), "PT. New Producer")
	require.NoError(t, err)

	entity, err := l.registry.GetEntity(l.as(strangerWallet), producerWallet)
	require.NoError(t, err)
	assert.Equal(t, "PT. New Producer", entity.Name)
	assert.Equal(t, RoleProducer, entity.EntityType)
	assert.True(t, entity.Registered)
	assert.True(t, entity.RoleActive)
	assert.Equal(t, adminWallet, entity.RegisteredBy)

	hasRole, err := l.registry.HasRole(l.as(strangerWallet), string(RoleProducer), producerWallet)
	require.NoError(t, err)
	assert.True(t, hasRole)

	registered, err := l.registry.IsEntityRegistered(l.as(strangerWallet), producerWallet)
	require.NoError(t, err)
	assert.True(t, registered)

	var assigned RoleAssignedEvent
	require.NoError(t, json.Unmarshal(l.stub.events["RoleAssigned"], &assigned))
	assert.Equal(t, producerWallet, assigned.Wallet)
	assert.Equal(t, RoleProducer, assigned.Role)

	var registeredEvt EntityRegisteredEvent
	require.NoError(t, json.Unmarshal(l.stub.events["EntityRegistered"], &registeredEvt))
	assert.Equal(t, "PT. New Producer", registeredEvt.Name)
	assert.Equal(t, RoleProducer, registeredEvt.EntityType)
}

func TestRegisterUserWithRoleFailures(t *testing.T) {
	l := newTestLedger(t)
	admin := l.as(adminWallet)
	require.NoError(t, l.registry.RegisterUserWithRole(admin, producerWallet, string(RoleProducer), "Producer ABC"))

	tests := []struct {
		name   string
		caller string
		wallet string
		role   string
		entity string
		want   error
	}{
		{"non-admin caller", strangerWallet, "wallet-new", string(RoleProducer), "X", ErrUnauthorized},
		{"already registered", adminWallet, producerWallet, string(RoleProducer), "X", ErrAlreadyRegistered},
		{"admin is not a supply role", adminWallet, "wallet-new", string(RoleAdmin), "X", ErrInvalidRole},
		{"unknown role", adminWallet, "wallet-new", "SHAMAN", "X", ErrInvalidRole},
		{"empty name", adminWallet, "wallet-new", string(RolePharmacy), "", ErrEmptyName},
		{"zero address", adminWallet, "", string(RolePharmacy), "X", ErrZeroAddress},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := l.registry.RegisterUserWithRole(l.as(tc.caller), tc.wallet, tc.role, tc.entity)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRevokeAndRegrantRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	l.registerDefaults()
	admin := l.as(adminWallet)

	require.NoError(t, l.registry.RevokeRole(admin, string(RoleDistributor), distributorWallet))

	hasRole, err := l.registry.HasRole(l.as(strangerWallet), string(RoleDistributor), distributorWallet)
	require.NoError(t, err)
	assert.False(t, hasRole)

	// Revocation deactivates the role but never deletes the profile.
	registered, err := l.registry.IsEntityRegistered(l.as(strangerWallet), distributorWallet)
	require.NoError(t, err)
	assert.True(t, registered)

	err = l.registry.RevokeRole(admin, string(RoleDistributor), distributorWallet)
	assert.ErrorIs(t, err, ErrNotActive)

	require.NoError(t, l.registry.GrantRole(admin, string(RoleDistributor), distributorWallet))
	hasRole, err = l.registry.HasRole(l.as(strangerWallet), string(RoleDistributor), distributorWallet)
	require.NoError(t, err)
	assert.True(t, hasRole)

	err = l.registry.GrantRole(admin, string(RoleDistributor), distributorWallet)
	assert.ErrorIs(t, err, ErrAlreadyActive)
}

func TestGrantRoleGuards(t *testing.T) {
	l := newTestLedger(t)
	l.registerDefaults()
	admin := l.as(adminWallet)

	err := l.registry.GrantRole(l.as(strangerWallet), string(RoleProducer), producerWallet)
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = l.registry.GrantRole(admin, string(RoleProducer), strangerWallet)
	assert.ErrorIs(t, err, ErrNotRegistered)

	// The profile's declared type is immutable; a different role cannot be
	// granted to the same wallet.
	require.NoError(t, l.registry.RevokeRole(admin, string(RoleProducer), producerWallet))
	err = l.registry.GrantRole(admin, string(RolePharmacy), producerWallet)
	assert.ErrorIs(t, err, ErrRoleMismatch)
}

func TestAdminGrantAndRevoke(t *testing.T) {
	l := newTestLedger(t)
	admin := l.as(adminWallet)

	require.NoError(t, l.registry.GrantRole(admin, string(RoleAdmin), strangerWallet))

	isAdmin, err := l.registry.HasRole(l.as(producerWallet), string(RoleAdmin), strangerWallet)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	err = l.registry.GrantRole(admin, string(RoleAdmin), strangerWallet)
	assert.ErrorIs(t, err, ErrAlreadyActive)

	// The new admin can perform admin operations.
	require.NoError(t, l.registry.RegisterUserWithRole(l.as(strangerWallet), producerWallet, string(RoleProducer), "Producer ABC"))

	// Self-revocation is rejected, revoking another admin works.
	err = l.registry.RevokeRole(admin, string(RoleAdmin), adminWallet)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, l.registry.RevokeRole(admin, string(RoleAdmin), strangerWallet))
	isAdmin, err = l.registry.HasRole(l.as(producerWallet), string(RoleAdmin), strangerWallet)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	err = l.registry.RevokeRole(admin, string(RoleAdmin), strangerWallet)
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestGetAllEntitiesInsertionOrder(t *testing.T) {
	l := newTestLedger(t)
	admin := l.as(adminWallet)

	// Registration order deliberately disagrees with lexical order.
	require.NoError(t, l.registry.RegisterUserWithRole(admin, pharmacyWallet, string(RolePharmacy), "Pharmacy 123"))
	require.NoError(t, l.registry.RegisterUserWithRole(admin, producerWallet, string(RoleProducer), "Producer ABC"))
	require.NoError(t, l.registry.RegisterUserWithRole(admin, distributorWallet, string(RoleDistributor), "Distributor XYZ"))

	entities, err := l.registry.GetAllEntities(l.as(strangerWallet))
	require.NoError(t, err)
	assert.Equal(t, []string{pharmacyWallet, producerWallet, distributorWallet}, entities)
}

func TestGetEntityNotRegistered(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.registry.GetEntity(l.as(strangerWallet), "wallet-ghost")
	assert.ErrorIs(t, err, ErrNotRegistered)

	_, err = l.registry.HasRole(l.as(strangerWallet), "SHAMAN", producerWallet)
	assert.ErrorIs(t, err, ErrInvalidRole)

	hasRole, err := l.registry.HasRole(l.as(strangerWallet), string(RoleProducer), "wallet-ghost")
	require.NoError(t, err)
	assert.False(t, hasRole)
}
