package contracts

// Role is an authorization tag gating ledger operations. ADMIN is orthogonal
// to the three supply-chain roles: a wallet holds at most one supply role,
// and may additionally hold ADMIN.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleProducer    Role = "PRODUCER"
	RoleDistributor Role = "DISTRIBUTOR"
	RolePharmacy    Role = "PHARMACY"
)

// supplyRoles are the roles an entity can be registered under.
var supplyRoles = map[Role]bool{
	RoleProducer:    true,
	RoleDistributor: true,
	RolePharmacy:    true,
}

// ParseRole maps a role identifier from the call surface to the closed enum.
func ParseRole(role string) (Role, bool) {
	switch Role(role) {
	case RoleAdmin, RoleProducer, RoleDistributor, RolePharmacy:
		return Role(role), true
	}
	return "", false
}

// StatusRecalled takes display precedence over the positional status while
// the recall overlay is set.
const StatusRecalled = "RECALLED"

// Custody progress points on the fixed 4-point scale.
const (
	ProgressCreated    = uint64(25)
	ProgressInTransit  = uint64(50)
	ProgressAtPharmacy = uint64(100)
)

// Entity is a registered participant bound to one wallet identity. Name and
// EntityType are immutable after registration; Registered never reverts to
// false. Deactivation happens through RoleActive, not deletion.
type Entity struct {
	Wallet       string `json:"wallet"`
	Name         string `json:"name"`
	EntityType   Role   `json:"entityType"`
	RoleActive   bool   `json:"roleActive"`
	Registered   bool   `json:"registered"`
	RegisteredAt int64  `json:"registeredAt"`
	RegisteredBy string `json:"registeredBy"`
}

// AdminGrant marks a wallet as holding the orthogonal ADMIN role.
type AdminGrant struct {
	Wallet    string `json:"wallet"`
	GrantedBy string `json:"grantedBy"`
	GrantedAt int64  `json:"grantedAt"`
}

// TransferRecord is one hop in a batch's custody chain. TxRef is patched in
// by a second call once the external correlation reference is known.
type TransferRecord struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Timestamp int64  `json:"timestamp"`
	TxRef     string `json:"txRef,omitempty"`
}

// Batch is a tracked lot of medicine. The ownership history and transfer
// records are embedded so that every transition commits under a single
// PutState. Invariants maintained by the contract:
//
//	CurrentOwner == last(OwnershipHistory)
//	len(TransferRecords) == len(OwnershipHistory) - 1
//	IsRecalled == true  => RecallReason != ""
//	IsRecalled == false => RecallReason == ""
type Batch struct {
	BatchID             string           `json:"batchId"`
	ProductName         string           `json:"productName"`
	TotalUnits          uint64           `json:"totalUnits"`
	UnitValue           uint64           `json:"unitValue"`
	StorageRequirements string           `json:"storageRequirements"`
	ExpiryDate          int64            `json:"expiryDate"`
	CreatedAt           int64            `json:"createdAt"`
	CurrentOwner        string           `json:"currentOwner"`
	IsOpened            bool             `json:"isOpened"`
	OpenedAt            int64            `json:"openedAt,omitempty"`
	IsRecalled          bool             `json:"isRecalled"`
	RecallReason        string           `json:"recallReason"`
	Exists              bool             `json:"exists"`
	Progress            uint64           `json:"progress"`
	ProductionTxRef     string           `json:"productionTxRef,omitempty"`
	OwnershipHistory    []string         `json:"ownershipHistory"`
	TransferRecords     []TransferRecord `json:"transferRecords"`
}

// breakerState is the global circuit-breaker singleton.
type breakerState struct {
	Paused    bool   `json:"paused"`
	ChangedBy string `json:"changedBy"`
	ChangedAt int64  `json:"changedAt"`
}

// entityIndex preserves registration order for GetAllEntities.
type entityIndex struct {
	Wallets []string `json:"wallets"`
}

// Event payloads, emitted through the stub on every successful mutation.

type EntityRegisteredEvent struct {
	Wallet     string `json:"wallet"`
	Name       string `json:"name"`
	EntityType Role   `json:"entityType"`
}

type RoleAssignedEvent struct {
	Wallet string `json:"wallet"`
	Role   Role   `json:"role"`
}

type RoleRevokedEvent struct {
	Wallet string `json:"wallet"`
	Role   Role   `json:"role"`
}

type BatchCreatedEvent struct {
	BatchID     string `json:"batchId"`
	ProductName string `json:"productName"`
	TotalUnits  uint64 `json:"totalUnits"`
	Owner       string `json:"owner"`
}

type BatchTransferredEvent struct {
	BatchID   string `json:"batchId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Timestamp int64  `json:"timestamp"`
}

type BatchOpenedEvent struct {
	BatchID string `json:"batchId"`
	Owner   string `json:"owner"`
}

type BatchRecalledEvent struct {
	BatchID string `json:"batchId"`
	Reason  string `json:"reason"`
}

type RecallClearedEvent struct {
	BatchID string `json:"batchId"`
}

type PauseEvent struct {
	By string `json:"by"`
}
