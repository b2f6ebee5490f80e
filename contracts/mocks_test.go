package contracts

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/stretchr/testify/require"
)

// mockStub backs the contracts with an in-memory world state. Only the stub
// methods the contracts touch are implemented; everything else panics through
// the embedded nil interface, which is exactly what we want in tests.
type mockStub struct {
	shim.ChaincodeStubInterface
	state  map[string][]byte
	events map[string][]byte
}

func newMockStub() *mockStub {
	return &mockStub{
		state:  make(map[string][]byte),
		events: make(map[string][]byte),
	}
}

func (s *mockStub) GetState(key string) ([]byte, error) {
	return s.state[key], nil
}

func (s *mockStub) PutState(key string, value []byte) error {
	s.state[key] = value
	return nil
}

func (s *mockStub) DelState(key string) error {
	delete(s.state, key)
	return nil
}

func (s *mockStub) SetEvent(name string, payload []byte) error {
	s.events[name] = payload
	return nil
}

func (s *mockStub) GetStateByRange(startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	var keys []string
	for k := range s.state {
		if k >= startKey && (endKey == "" || k < endKey) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	kvs := make([]*queryresult.KV, 0, len(keys))
	for _, k := range keys {
		kvs = append(kvs, &queryresult.KV{Key: k, Value: s.state[k]})
	}
	return &mockIterator{kvs: kvs}, nil
}

type mockIterator struct {
	kvs []*queryresult.KV
	pos int
}

func (it *mockIterator) HasNext() bool {
	return it.pos < len(it.kvs)
}

func (it *mockIterator) Next() (*queryresult.KV, error) {
	if !it.HasNext() {
		return nil, errors.New("no more items in iterator")
	}
	kv := it.kvs[it.pos]
	it.pos++
	return kv, nil
}

func (it *mockIterator) Close() error {
	return nil
}

type mockIdentity struct {
	cid.ClientIdentity
	id string
}

func (c *mockIdentity) GetID() (string, error) {
	return c.id, nil
}

type mockContext struct {
	stub     *mockStub
	identity *mockIdentity
}

func (c *mockContext) GetStub() shim.ChaincodeStubInterface {
	return c.stub
}

func (c *mockContext) GetClientIdentity() cid.ClientIdentity {
	return c.identity
}

// Well-known test wallets.
const (
	adminWallet       = "wallet-admin"
	producerWallet    = "wallet-producer"
	distributorWallet = "wallet-distributor"
	pharmacyWallet    = "wallet-pharmacy"
	strangerWallet    = "wallet-stranger"
)

// testLedger bundles the three contracts over one shared stub, the way they
// are composed in main.go.
type testLedger struct {
	t        *testing.T
	stub     *mockStub
	registry *RoleRegistryContract
	batches  *BatchLedgerContract
	breaker  *CircuitBreakerContract
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	l := &testLedger{
		t:        t,
		stub:     newMockStub(),
		registry: &RoleRegistryContract{},
		batches:  &BatchLedgerContract{},
		breaker:  &CircuitBreakerContract{},
	}
	require.NoError(t, l.registry.InitLedger(l.as(adminWallet)))
	return l
}

// as builds a transaction context for the given caller wallet.
func (l *testLedger) as(wallet string) *mockContext {
	return &mockContext{stub: l.stub, identity: &mockIdentity{id: wallet}}
}

// registerDefaults seeds one entity per supply role.
func (l *testLedger) registerDefaults() {
	l.t.Helper()
	admin := l.as(adminWallet)
	require.NoError(l.t, l.registry.RegisterUserWithRole(admin, producerWallet, string(RoleProducer), "Producer ABC"))
	require.NoError(l.t, l.registry.RegisterUserWithRole(admin, distributorWallet, string(RoleDistributor), "Distributor XYZ"))
	require.NoError(l.t, l.registry.RegisterUserWithRole(admin, pharmacyWallet, string(RolePharmacy), "Pharmacy 123"))
}

func futureExpiry() int64 {
	return time.Now().Add(365 * 24 * time.Hour).Unix()
}

// createBatch mints a batch with sane defaults as the producer.
func (l *testLedger) createBatch(batchID string) {
	l.t.Helper()
	err := l.batches.CreateBatch(l.as(producerWallet), batchID,
		"Paracetamol 500mg", 100, 5000, "Cool Storage", futureExpiry())
	require.NoError(l.t, err)
}
