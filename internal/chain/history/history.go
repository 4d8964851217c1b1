// Package history updates recent_history with the just-processed block's
// summary and MMR-appends its accumulation root (§4.12 step 9, §4.2 MMR).
//
// Grounded on pkg/consensus/fork_choice_store.go's bounded recent-blocks
// ring buffer, generalized with the MMR the teacher does not carry.
package history

import (
	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
	"github.com/jamnode/jamcore/internal/trie"
)

// Append records (headerHash, accResult, reportedWP) onto h and
// MMR-appends accResult using Keccak-256 (§4.2), trimming the deque to
// cfg.RecentHistorySize entries. The new entry's StateRoot is left zero:
// the posterior state root is only known once the whole block has been
// serialized and merklized (§4.12 step 10), so the orchestrator backfills
// it via BackfillRoot after computing Root(posterior).
func Append(cfg *config.Config, h *state.RecentHistory, headerHash, accResult oracle.Hash, reportedWP []oracle.Hash) {
	h.Push(state.BlockInfo{
		HeaderHash: headerHash,
		AccResult:  accResult,
		ReportedWP: reportedWP,
	}, int(cfg.RecentHistorySize))

	mmr := &trie.MMR{Peaks: h.MMR}
	mmr.Append(accResult)
	h.MMR = mmr.Peaks
}

// BackfillRoot sets the most recently pushed entry's StateRoot, called
// once the orchestrator has computed the posterior state's Merkle root
// (§4.12 step 10).
func BackfillRoot(h *state.RecentHistory, root oracle.Hash) {
	if len(h.Entries) == 0 {
		return
	}
	h.Entries[len(h.Entries)-1].StateRoot = root
}
