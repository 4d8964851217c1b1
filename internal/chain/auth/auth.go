// Package auth advances the per-core authorizer pools from their backing
// queues each block (§3 auth_pools/auth_queues, §4.8 "exactly one
// authorizer in auth_pools[core] must equal authorizer_hash; it is consumed
// and shifted left").
//
// Grounded on pkg/consensus/attestation_pool.go's bounded ring-buffer
// refill shape, generalized from attestations to authorizer hashes.
package auth

import (
	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/oracle"
)

// Advance appends, for every core, the queue entry indexed by the new
// slot modulo the queue length onto that core's pool, trimming the oldest
// entry once the pool exceeds AuthPoolMax (§3 invariant: auth_pool[c].len()
// ≤ 8).
func Advance(cfg *config.Config, pools [][]oracle.Hash, queues [][]oracle.Hash, slot uint32) [][]oracle.Hash {
	out := make([][]oracle.Hash, cfg.Cores)
	for c := uint32(0); c < cfg.Cores; c++ {
		pool := append([]oracle.Hash(nil), pools[c]...)
		queue := queues[c]
		if len(queue) > 0 {
			next := queue[slot%uint32(len(queue))]
			pool = append(pool, next)
		}
		if uint32(len(pool)) > cfg.AuthPoolMax {
			pool = pool[uint32(len(pool))-cfg.AuthPoolMax:]
		}
		out[c] = pool
	}
	return out
}

// Consume removes the authorizer at index idx from core's pool, shifting
// subsequent entries left (§4.8: "it is consumed (removed) and shifted
// left").
func Consume(pools [][]oracle.Hash, core uint16, idx int) {
	pool := pools[core]
	if idx < 0 || idx >= len(pool) {
		return
	}
	pools[core] = append(pool[:idx], pool[idx+1:]...)
}

// IndexOf returns the index of hash within core's pool, or -1 if absent.
func IndexOf(pools [][]oracle.Hash, core uint16, hash oracle.Hash) int {
	for i, h := range pools[core] {
		if h == hash {
			return i
		}
	}
	return -1
}
