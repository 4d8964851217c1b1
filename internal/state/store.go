package state

import (
	"github.com/jamnode/jamcore/internal/hostcall"
	"github.com/jamnode/jamcore/internal/oracle"
)

// ServiceStore adapts one service account within a State to
// hostcall.Store, the view a PVM invocation's ECALLI handlers see. It is
// constructed fresh per invocation by the transfer processor (§4.5,
// §4.11); accumulation uses its own staged store in internal/chain/accumulate.
//
// Grounded on pkg/core/state/state_object.go's per-account storage-trie
// accessor shape, narrowed to the single-service view the host-call ABI
// exposes.
type ServiceStore struct {
	State   *State
	Service ServiceId
	Slot    uint32
}

var _ hostcall.Store = (*ServiceStore)(nil)

func (s *ServiceStore) account() *Account {
	return s.State.Services[s.Service]
}

// Read implements hostcall.Store.
func (s *ServiceStore) Read(key []byte) ([]byte, bool) {
	acc := s.account()
	if acc == nil {
		return nil, false
	}
	var k [31]byte
	copy(k[:], key)
	storeKey := StorageKey(s.Service, k)
	v, ok := acc.Storage[storeKey]
	return v, ok
}

// Write implements hostcall.Store. A write that would drop the account's
// balance below its threshold is rejected (§4.5: "Balance threshold must
// remain satisfied, else returns FULL and rolls back").
func (s *ServiceStore) Write(key, value []byte) bool {
	acc := s.account()
	if acc == nil {
		return false
	}
	var k [31]byte
	copy(k[:], key)
	storeKey := StorageKey(s.Service, k)

	before := append([]byte(nil), acc.Storage[storeKey]...)
	hadBefore := acc.Storage[storeKey] != nil
	if len(value) == 0 {
		delete(acc.Storage, storeKey)
	} else {
		acc.Storage[storeKey] = append([]byte(nil), value...)
	}
	if acc.Balance < acc.ThresholdBalance() {
		if hadBefore {
			acc.Storage[storeKey] = before
		} else {
			delete(acc.Storage, storeKey)
		}
		return false
	}
	return true
}

// Lookup implements hostcall.Store.
func (s *ServiceStore) Lookup(hash [32]byte) ([]byte, bool) {
	acc := s.account()
	if acc == nil {
		return nil, false
	}
	v, ok := acc.Preimages[oracle.Hash(hash)]
	return v, ok
}

// HistoricalLookup implements hostcall.Store: a preimage belonging to
// another service, valid as of the invoking timeslot — i.e. the lookup
// history for (hash, len) must contain an entry at or before s.Slot.
func (s *ServiceStore) HistoricalLookup(service uint64, hash [32]byte) ([]byte, bool) {
	acc := s.State.Services[ServiceId(service)]
	if acc == nil {
		return nil, false
	}
	v, ok := acc.Preimages[oracle.Hash(hash)]
	if !ok {
		return nil, false
	}
	lk := lookupKey{Hash: oracle.Hash(hash), Len: uint32(len(v))}
	history, ok := acc.Lookup[lk]
	if !ok {
		return nil, false
	}
	for _, t := range history {
		if t <= s.Slot {
			return v, true
		}
	}
	return nil, false
}

// Info implements hostcall.Store. serviceID == ^uint64(0) means "this
// service" (§4.5).
func (s *ServiceStore) Info(serviceID uint64) (uint64, bool) {
	target := s.Service
	if serviceID != ^uint64(0) {
		target = ServiceId(serviceID)
	}
	acc := s.State.Services[target]
	if acc == nil {
		return 0, false
	}
	return acc.Balance, true
}
