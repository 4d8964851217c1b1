package state

import (
	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/oracle"
)

// State is the JAM global state (§3): a product of every named substate
// field, mutated only by the STF orchestrator on block import.
//
// Grounded on pkg/consensus/beacon_state.go's aggregate-state-as-struct
// shape, generalized from the Ethereum beacon chain's fields to JAM's.
type State struct {
	Time uint32

	Entropy EntropyPool

	RecentHistory *RecentHistory

	Safrole *SafroleState

	Disputes *DisputesRecords

	Availability Availability

	AuthPools  AuthPools
	AuthQueues AuthQueues

	PrevValidators Validators
	CurrValidators Validators
	NextValidators Validators

	Statistics *Statistics

	Services map[ServiceId]*Account

	ReadyQueue           ReadyQueue
	AccumulationHistory  AccumulationHistory

	Privileges *Privileges

	RecentAccOutputs map[ServiceId]oracle.Hash
}

// New returns a zero-valued state shaped for cfg (correctly sized
// per-core/per-validator/per-epoch-slot arrays), ready for genesis
// population.
func New(cfg *config.Config) *State {
	s := &State{
		RecentHistory:  &RecentHistory{},
		Safrole:        &SafroleState{},
		Disputes:       &DisputesRecords{},
		Availability:   make(Availability, cfg.Cores),
		AuthPools:      make(AuthPools, cfg.Cores),
		AuthQueues:     make(AuthQueues, cfg.Cores),
		Statistics: &Statistics{
			Current:  make([]ValidatorStats, cfg.Validators),
			Previous: make([]ValidatorStats, cfg.Validators),
			Services: make(map[ServiceId]ServiceStats),
		},
		Services:            make(map[ServiceId]*Account),
		ReadyQueue:           make(ReadyQueue, cfg.EpochLength),
		AccumulationHistory:  make(AccumulationHistory, cfg.EpochLength),
		Privileges:           &Privileges{},
		RecentAccOutputs:     make(map[ServiceId]oracle.Hash),
	}
	for c := range s.AuthQueues {
		s.AuthQueues[c] = make([]oracle.Hash, cfg.AuthQueueLen)
	}
	return s
}

// Clone returns a deep copy of the entire state, used by the STF
// orchestrator to compute a posterior state without mutating σ on a failed
// block (§4.12: "any step's error is fatal for the block; σ is unchanged").
func (s *State) Clone() *State {
	out := &State{
		Time:                s.Time,
		Entropy:             s.Entropy,
		RecentHistory:       s.RecentHistory.Clone(),
		Safrole:             s.Safrole.Clone(),
		Disputes:            s.Disputes.Clone(),
		Availability:        s.Availability.Clone(),
		AuthPools:           s.AuthPools.Clone(),
		AuthQueues:          s.AuthQueues.Clone(),
		PrevValidators:      s.PrevValidators.Clone(),
		CurrValidators:      s.CurrValidators.Clone(),
		NextValidators:      s.NextValidators.Clone(),
		Statistics:          s.Statistics.Clone(),
		Services:            make(map[ServiceId]*Account, len(s.Services)),
		ReadyQueue:          s.ReadyQueue.Clone(),
		AccumulationHistory: s.AccumulationHistory.Clone(),
		Privileges:          s.Privileges.Clone(),
		RecentAccOutputs:    make(map[ServiceId]oracle.Hash, len(s.RecentAccOutputs)),
	}
	for id, acc := range s.Services {
		out.Services[id] = acc.Clone()
	}
	for id, h := range s.RecentAccOutputs {
		out.RecentAccOutputs[id] = h
	}
	return out
}
