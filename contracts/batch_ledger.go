package contracts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// BatchLedgerContract owns the batch lifecycle state machine, the per-batch
// audit trail and the recall overlay. Check order on every mutator: paused,
// existence, ownership/role, field validation, then a single PutState and an
// event. A caller that is both unauthorized and sending invalid data always
// sees the authorization failure.
type BatchLedgerContract struct {
	contractapi.Contract
}

// CreateBatch mints a new batch under the calling producer's custody.
func (s *BatchLedgerContract) CreateBatch(ctx contractapi.TransactionContextInterface,
	batchID string, productName string, totalUnits uint64, unitValue uint64,
	storageRequirements string, expiryDate int64) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	producer, err := hasActiveRole(ctx, RoleProducer, caller)
	if err != nil {
		return err
	}
	if !producer {
		return fmt.Errorf("%w: only producer can create batches", ErrUnauthorized)
	}

	if batchID == "" {
		return fmt.Errorf("%w: batch ID", ErrEmptyName)
	}
	exists, err := batchExists(ctx, batchID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, batchID)
	}
	if productName == "" {
		return fmt.Errorf("%w: medicine name cannot be empty", ErrEmptyName)
	}
	if totalUnits == 0 {
		return ErrZeroQuantity
	}
	if unitValue == 0 {
		return ErrZeroValue
	}
	if storageRequirements == "" {
		return ErrEmptyStorage
	}
	now := ledgerNow()
	if expiryDate <= now {
		return fmt.Errorf("%w: %d", ErrInvalidExpiry, expiryDate)
	}

	batch := Batch{
		BatchID:             batchID,
		ProductName:         productName,
		TotalUnits:          totalUnits,
		UnitValue:           unitValue,
		StorageRequirements: storageRequirements,
		ExpiryDate:          expiryDate,
		CreatedAt:           now,
		CurrentOwner:        caller,
		Exists:              true,
		Progress:            ProgressCreated,
		RecallReason:        "",
		OwnershipHistory:    []string{caller},
		TransferRecords:     []TransferRecord{},
	}
	if err := putJSON(ctx, batchKey(batchID), batch); err != nil {
		return err
	}

	return emitEvent(ctx, "BatchCreated", BatchCreatedEvent{
		BatchID:     batchID,
		ProductName: productName,
		TotalUnits:  totalUnits,
		Owner:       caller,
	})
}

// TransferBatch moves custody to a recipient holding an active DISTRIBUTOR or
// PHARMACY role. The ledger does not force strict role progression: two
// distributor hops in a row are legal.
func (s *BatchLedgerContract) TransferBatch(ctx contractapi.TransactionContextInterface,
	batchID string, to string) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	batch, err := getBatch(ctx, batchID)
	if err != nil {
		return err
	}
	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	if batch.CurrentOwner != caller {
		return fmt.Errorf("%w: only current batch owner can transfer", ErrUnauthorized)
	}
	if batch.IsOpened {
		return fmt.Errorf("%w: cannot transfer an opened batch", ErrForbidden)
	}
	if to == "" {
		return fmt.Errorf("%w: cannot transfer to zero address", ErrZeroAddress)
	}
	recipientRole, ok, err := activeSupplyRole(ctx, to)
	if err != nil {
		return err
	}
	if !ok || (recipientRole != RoleDistributor && recipientRole != RolePharmacy) {
		return fmt.Errorf("%w: %s", ErrInvalidRecipient, to)
	}

	now := ledgerNow()
	batch.TransferRecords = append(batch.TransferRecords, TransferRecord{
		From:      caller,
		To:        to,
		Timestamp: now,
	})
	batch.OwnershipHistory = append(batch.OwnershipHistory, to)
	batch.CurrentOwner = to
	// Progress never decreases, even on a backward hop.
	if p := progressForRole(recipientRole); p > batch.Progress {
		batch.Progress = p
	}
	if err := putJSON(ctx, batchKey(batchID), batch); err != nil {
		return err
	}

	return emitEvent(ctx, "BatchTransferred", BatchTransferredEvent{
		BatchID:   batchID,
		From:      caller,
		To:        to,
		Timestamp: now,
	})
}

// OpenBatch marks the batch consumed. One-way latch: once opened the batch
// can never be transferred or opened again.
func (s *BatchLedgerContract) OpenBatch(ctx contractapi.TransactionContextInterface,
	batchID string) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	batch, err := getBatch(ctx, batchID)
	if err != nil {
		return err
	}
	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	if batch.CurrentOwner != caller {
		return fmt.Errorf("%w: only current batch owner can open", ErrUnauthorized)
	}
	pharmacy, err := hasActiveRole(ctx, RolePharmacy, caller)
	if err != nil {
		return err
	}
	if !pharmacy {
		return fmt.Errorf("%w: only pharmacy can open a batch", ErrUnauthorized)
	}
	if batch.IsOpened {
		return fmt.Errorf("%w: batch is already opened", ErrForbidden)
	}
	if batch.IsRecalled {
		return fmt.Errorf("%w: cannot open a recalled batch", ErrForbidden)
	}

	batch.IsOpened = true
	batch.OpenedAt = ledgerNow()
	batch.Progress = ProgressAtPharmacy
	if err := putJSON(ctx, batchKey(batchID), batch); err != nil {
		return err
	}

	return emitEvent(ctx, "BatchOpened", BatchOpenedEvent{BatchID: batchID, Owner: caller})
}

// InitiateRecall sets the recall overlay. Works on opened batches too;
// recalling twice overwrites the reason.
func (s *BatchLedgerContract) InitiateRecall(ctx contractapi.TransactionContextInterface,
	batchID string, reason string) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	batch, err := getBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if reason == "" {
		return ErrEmptyReason
	}

	batch.IsRecalled = true
	batch.RecallReason = reason
	if err := putJSON(ctx, batchKey(batchID), batch); err != nil {
		return err
	}

	return emitEvent(ctx, "BatchRecalled", BatchRecalledEvent{BatchID: batchID, Reason: reason})
}

// ClearRecall lifts the recall overlay; the positional custody state resumes.
func (s *BatchLedgerContract) ClearRecall(ctx contractapi.TransactionContextInterface,
	batchID string) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	batch, err := getBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if !batch.IsRecalled {
		return fmt.Errorf("%w: %s", ErrNotRecalled, batchID)
	}

	batch.IsRecalled = false
	batch.RecallReason = ""
	if err := putJSON(ctx, batchKey(batchID), batch); err != nil {
		return err
	}

	return emitEvent(ctx, "RecallCleared", RecallClearedEvent{BatchID: batchID})
}

// UpdateProductionTxRef attaches the external correlation reference to the
// creation record. Last writer wins; callers retry on transient failure.
func (s *BatchLedgerContract) UpdateProductionTxRef(ctx contractapi.TransactionContextInterface,
	batchID string, ref string) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	batch, err := getBatch(ctx, batchID)
	if err != nil {
		return err
	}
	batch.ProductionTxRef = ref
	return putJSON(ctx, batchKey(batchID), batch)
}

// UpdateTransferTxRef attaches the external correlation reference to the
// transfer record at the given index.
func (s *BatchLedgerContract) UpdateTransferTxRef(ctx contractapi.TransactionContextInterface,
	batchID string, index int, ref string) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	batch, err := getBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(batch.TransferRecords) {
		return fmt.Errorf("%w: transfer record %d of batch %s", ErrNotFound, index, batchID)
	}
	batch.TransferRecords[index].TxRef = ref
	return putJSON(ctx, batchKey(batchID), batch)
}

// GetBatch retrieves a batch by ID.
func (s *BatchLedgerContract) GetBatch(ctx contractapi.TransactionContextInterface,
	batchID string) (*Batch, error) {
	return getBatch(ctx, batchID)
}

// BatchExists reports whether a batch ID is taken.
func (s *BatchLedgerContract) BatchExists(ctx contractapi.TransactionContextInterface,
	batchID string) (bool, error) {
	return batchExists(ctx, batchID)
}

// GetBatchStatus reports RECALLED while the overlay is set, otherwise the
// positional status derived from the current owner's declared type. The
// positional state is preserved under recall and resumes once cleared.
func (s *BatchLedgerContract) GetBatchStatus(ctx contractapi.TransactionContextInterface,
	batchID string) (string, error) {

	batch, err := getBatch(ctx, batchID)
	if err != nil {
		return "", err
	}
	if batch.IsRecalled {
		return StatusRecalled, nil
	}
	owner, err := getEntity(ctx, batch.CurrentOwner)
	if err != nil {
		return "", err
	}
	return string(owner.EntityType), nil
}

// GetBatchProgress returns the stored 4-point progress. It is monotonic over
// the batch's lifetime and unaffected by recalls.
func (s *BatchLedgerContract) GetBatchProgress(ctx contractapi.TransactionContextInterface,
	batchID string) (uint64, error) {

	batch, err := getBatch(ctx, batchID)
	if err != nil {
		return 0, err
	}
	return batch.Progress, nil
}

// GetBatchHistory returns the ownership history, creator first.
func (s *BatchLedgerContract) GetBatchHistory(ctx contractapi.TransactionContextInterface,
	batchID string) ([]string, error) {

	batch, err := getBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return batch.OwnershipHistory, nil
}

// GetTransferRecords returns the custody transfer trail in order.
func (s *BatchLedgerContract) GetTransferRecords(ctx contractapi.TransactionContextInterface,
	batchID string) ([]TransferRecord, error) {

	batch, err := getBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return batch.TransferRecords, nil
}

// IsBatchExpired reports whether the batch is past its expiry date.
func (s *BatchLedgerContract) IsBatchExpired(ctx contractapi.TransactionContextInterface,
	batchID string) (bool, error) {

	batch, err := getBatch(ctx, batchID)
	if err != nil {
		return false, err
	}
	return ledgerNow() > batch.ExpiryDate, nil
}

// GetTimeToExpiry returns the seconds remaining before expiry, zero if the
// batch has already expired.
func (s *BatchLedgerContract) GetTimeToExpiry(ctx contractapi.TransactionContextInterface,
	batchID string) (int64, error) {

	batch, err := getBatch(ctx, batchID)
	if err != nil {
		return 0, err
	}
	remaining := batch.ExpiryDate - ledgerNow()
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// IsBatchAtPharmacy reports whether the batch currently sits with a pharmacy.
func (s *BatchLedgerContract) IsBatchAtPharmacy(ctx contractapi.TransactionContextInterface,
	batchID string) (bool, error) {

	batch, err := getBatch(ctx, batchID)
	if err != nil {
		return false, err
	}
	owner, err := getEntity(ctx, batch.CurrentOwner)
	if err != nil {
		return false, err
	}
	return owner.EntityType == RolePharmacy, nil
}

// IsBatchAtFinalDestination reports whether the batch has reached the end of
// the custody chain.
func (s *BatchLedgerContract) IsBatchAtFinalDestination(ctx contractapi.TransactionContextInterface,
	batchID string) (bool, error) {

	batch, err := getBatch(ctx, batchID)
	if err != nil {
		return false, err
	}
	if batch.IsOpened {
		return true, nil
	}
	owner, err := getEntity(ctx, batch.CurrentOwner)
	if err != nil {
		return false, err
	}
	return owner.EntityType == RolePharmacy, nil
}

// GetBatchesByAddress returns the IDs of every batch currently owned by the
// wallet.
func (s *BatchLedgerContract) GetBatchesByAddress(ctx contractapi.TransactionContextInterface,
	wallet string) ([]string, error) {

	var ids []string
	err := s.forEachBatch(ctx, func(batch *Batch) {
		if batch.CurrentOwner == wallet {
			ids = append(ids, batch.BatchID)
		}
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetAllBatches returns every batch on the ledger.
func (s *BatchLedgerContract) GetAllBatches(ctx contractapi.TransactionContextInterface) ([]*Batch, error) {
	var batches []*Batch
	err := s.forEachBatch(ctx, func(batch *Batch) {
		batches = append(batches, batch)
	})
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (s *BatchLedgerContract) forEachBatch(ctx contractapi.TransactionContextInterface,
	visit func(*Batch)) error {

	iter, err := ctx.GetStub().GetStateByRange(batchKeyPrefix, batchKeyPrefix+"~")
	if err != nil {
		return fmt.Errorf("failed to query batches: %v", err)
	}
	defer iter.Close()

	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return err
		}
		if !strings.HasPrefix(kv.Key, batchKeyPrefix) {
			continue
		}
		var batch Batch
		if err := json.Unmarshal(kv.Value, &batch); err != nil {
			return fmt.Errorf("failed to unmarshal batch at %s: %v", kv.Key, err)
		}
		visit(&batch)
	}
	return nil
}

// activeSupplyRole returns the wallet's active supply role, if any.
func activeSupplyRole(ctx contractapi.TransactionContextInterface, wallet string) (Role, bool, error) {
	data, err := ctx.GetStub().GetState(entityKey(wallet))
	if err != nil {
		return "", false, fmt.Errorf("failed to read entity: %v", err)
	}
	if data == nil {
		return "", false, nil
	}
	var entity Entity
	if err := json.Unmarshal(data, &entity); err != nil {
		return "", false, fmt.Errorf("failed to unmarshal entity %s: %v", wallet, err)
	}
	if !entity.RoleActive {
		return "", false, nil
	}
	return entity.EntityType, true, nil
}

func progressForRole(role Role) uint64 {
	switch role {
	case RoleDistributor:
		return ProgressInTransit
	case RolePharmacy:
		return ProgressAtPharmacy
	default:
		return ProgressCreated
	}
}
