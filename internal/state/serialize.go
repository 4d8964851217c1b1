package state

import (
	"sort"

	"github.com/jamnode/jamcore/internal/codec"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/trie"
)

// Serialize flattens the global state into the 31-byte-keyed dictionary
// §4.10 describes, ready for merklization. Whole-field entries use their
// fixed discriminant key; per-service entries (info, storage, preimage,
// lookup) are scattered across the key space by interleaveServiceKey /
// ServiceInfoKey.
func Serialize(s *State) []trie.KV {
	var out []trie.KV
	put := func(k [31]byte, v []byte) {
		if len(v) == 0 {
			return
		}
		out = append(out, trie.KV{Key: trie.Key(k), Value: v})
	}

	put(WholeFieldKey(DiscTime), encodeU32(s.Time))
	put(WholeFieldKey(DiscEntropy), encodeEntropy(s.Entropy))
	put(WholeFieldKey(DiscRecentHistory), encodeRecentHistory(s.RecentHistory))
	put(WholeFieldKey(DiscSafrole), encodeSafrole(s.Safrole))
	put(WholeFieldKey(DiscDisputes), encodeDisputes(s.Disputes))
	put(WholeFieldKey(DiscAvailability), encodeAvailability(s.Availability))
	put(WholeFieldKey(DiscAuthPools), encodeHashSlices(s.AuthPools))
	put(WholeFieldKey(DiscAuthQueue), encodeHashSlices(s.AuthQueues))
	put(WholeFieldKey(DiscNextValidators), encodeValidators(s.NextValidators))
	put(WholeFieldKey(DiscCurrValidators), encodeValidators(s.CurrValidators))
	put(WholeFieldKey(DiscPrevValidators), encodeValidators(s.PrevValidators))
	put(WholeFieldKey(DiscPrivileges), encodePrivileges(s.Privileges))
	put(WholeFieldKey(DiscStatistics), encodeStatistics(s.Statistics))
	put(WholeFieldKey(DiscReadyQueue), encodeReadyQueue(s.ReadyQueue))
	put(WholeFieldKey(DiscAccumulationHistory), encodeHashSlices(s.AccumulationHistory))
	put(WholeFieldKey(DiscRecentAccOutputs), encodeRecentAccOutputs(s.RecentAccOutputs))

	serviceIDs := make([]ServiceId, 0, len(s.Services))
	for id := range s.Services {
		serviceIDs = append(serviceIDs, id)
	}
	sort.Slice(serviceIDs, func(i, j int) bool { return serviceIDs[i] < serviceIDs[j] })

	for _, id := range serviceIDs {
		acc := s.Services[id]
		put(ServiceInfoKey(id), acc.EncodeValue())

		storageKeys := make([][31]byte, 0, len(acc.Storage))
		for k := range acc.Storage {
			storageKeys = append(storageKeys, k)
		}
		sort.Slice(storageKeys, func(i, j int) bool { return lessBytes(storageKeys[i][:], storageKeys[j][:]) })
		for _, k := range storageKeys {
			put(StorageKey(id, k), acc.Storage[k])
		}

		preimageHashes := make([]oracle.Hash, 0, len(acc.Preimages))
		for h := range acc.Preimages {
			preimageHashes = append(preimageHashes, h)
		}
		sort.Slice(preimageHashes, func(i, j int) bool { return lessBytes(preimageHashes[i][:], preimageHashes[j][:]) })
		for _, h := range preimageHashes {
			put(PreimageStateKey(id, h), acc.Preimages[h])
		}

		lookupKeys := make([]lookupKey, 0, len(acc.Lookup))
		for k := range acc.Lookup {
			lookupKeys = append(lookupKeys, k)
		}
		sort.Slice(lookupKeys, func(i, j int) bool {
			if lookupKeys[i].Len != lookupKeys[j].Len {
				return lookupKeys[i].Len < lookupKeys[j].Len
			}
			return lessBytes(lookupKeys[i].Hash[:], lookupKeys[j].Hash[:])
		})
		for _, k := range lookupKeys {
			put(LookupStateKey(id, k.Hash, k.Len), encodeU32Slice(acc.Lookup[k]))
		}
	}

	sort.Slice(out, func(i, j int) bool { return lessBytes(out[i].Key[:], out[j].Key[:]) })
	return out
}

// Root computes the Merkle root of the serialized state (§4.10: "the
// merklized root is merkle(serialize(state), 0)").
func Root(s *State) oracle.Hash {
	t := trie.BuildFrom(Serialize(s))
	return t.Root()
}

func lessBytes(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func encodeU32(v uint32) []byte {
	w := codec.NewWriter(4)
	w.PutU32(v)
	return w.Bytes()
}

func encodeU32Slice(vs []uint32) []byte {
	w := codec.NewWriter(4 + 4*len(vs))
	codec.EncodeSeq(w, vs, func(w *codec.Writer, v uint32) { w.PutU32(v) })
	return w.Bytes()
}

func encodeEntropy(e EntropyPool) []byte {
	w := codec.NewWriter(128)
	for _, h := range e {
		w.PutRaw(h[:])
	}
	return w.Bytes()
}

func encodeRecentHistory(h *RecentHistory) []byte {
	w := codec.NewWriter(512)
	codec.EncodeSeq(w, h.Entries, func(w *codec.Writer, e BlockInfo) {
		w.PutRaw(e.HeaderHash[:])
		w.PutRaw(e.AccResult[:])
		w.PutRaw(e.StateRoot[:])
		codec.EncodeSeq(w, e.ReportedWP, func(w *codec.Writer, wp oracle.Hash) { w.PutRaw(wp[:]) })
	})
	codec.EncodeSeq(w, h.MMR, func(w *codec.Writer, p *oracle.Hash) {
		codec.EncodeOption(w, p, func(w *codec.Writer, v oracle.Hash) { w.PutRaw(v[:]) })
	})
	return w.Bytes()
}

func encodeSafrole(s *SafroleState) []byte {
	w := codec.NewWriter(256)
	s.PendingValidators.Encode(w)
	codec.EncodeSeq(w, s.TicketAccumulator, func(w *codec.Writer, t TicketEntry) {
		w.PutRaw(t.ID[:])
		w.PutU8(t.Attempt)
	})
	codec.EncodeSeq(w, s.SealTickets, func(w *codec.Writer, t TicketBody) {
		w.PutRaw(t.ID[:])
		w.PutU8(t.Attempt)
	})
	codec.EncodeSeq(w, s.SealFallback, func(w *codec.Writer, k oracle.BandersnatchPublicKey) { w.PutRaw(k[:]) })
	w.PutBool(s.UsesFallback)
	w.PutRaw(s.RingCommitment[:])
	return w.Bytes()
}

func encodeDisputes(d *DisputesRecords) []byte {
	w := codec.NewWriter(256)
	codec.EncodeSeq(w, d.Good, func(w *codec.Writer, h oracle.Hash) { w.PutRaw(h[:]) })
	codec.EncodeSeq(w, d.Bad, func(w *codec.Writer, h oracle.Hash) { w.PutRaw(h[:]) })
	codec.EncodeSeq(w, d.Wonky, func(w *codec.Writer, h oracle.Hash) { w.PutRaw(h[:]) })
	codec.EncodeSeq(w, d.Offenders, func(w *codec.Writer, k oracle.Ed25519PublicKey) { w.PutRaw(k[:]) })
	return w.Bytes()
}

func encodeAvailability(a Availability) []byte {
	w := codec.NewWriter(256)
	codec.EncodeSeq(w, a, func(w *codec.Writer, c CoreAssignment) {
		codec.EncodeOption(w, c.Report, func(w *codec.Writer, r WorkReport) {
			r.Encode(w)
			w.PutU32(c.TimeoutSlot)
		})
	})
	return w.Bytes()
}

func encodeHashSlices(hs [][]oracle.Hash) []byte {
	w := codec.NewWriter(256)
	codec.EncodeSeq(w, hs, func(w *codec.Writer, s []oracle.Hash) {
		codec.EncodeSeq(w, s, func(w *codec.Writer, h oracle.Hash) { w.PutRaw(h[:]) })
	})
	return w.Bytes()
}

func encodeValidators(vs Validators) []byte {
	w := codec.NewWriter(len(vs) * 340)
	vs.Encode(w)
	return w.Bytes()
}

func encodePrivileges(p *Privileges) []byte {
	w := codec.NewWriter(32)
	w.PutU32(uint32(p.Manager))
	w.PutU32(uint32(p.Delegator))
	w.PutU32(uint32(p.Assigner))
	codec.EncodeSeq(w, p.AlwaysAccumulate, func(w *codec.Writer, id ServiceId) { w.PutU32(uint32(id)) })
	return w.Bytes()
}

func encodeStatistics(s *Statistics) []byte {
	w := codec.NewWriter(256)
	encodeValidatorStats := func(w *codec.Writer, v ValidatorStats) {
		w.PutU32(v.Blocks)
		w.PutU32(v.Tickets)
		w.PutU32(v.Preimages)
		w.PutU64(v.PreimagesSize)
		w.PutU32(v.Guarantees)
		w.PutU32(v.Assurances)
	}
	codec.EncodeSeq(w, s.Current, encodeValidatorStats)
	codec.EncodeSeq(w, s.Previous, encodeValidatorStats)

	ids := make([]ServiceId, 0, len(s.Services))
	for id := range s.Services {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	codec.EncodeSeq(w, ids, func(w *codec.Writer, id ServiceId) {
		st := s.Services[id]
		w.PutU32(uint32(id))
		w.PutU32(st.AccumulateCount)
		w.PutU64(st.AccumulateGas)
		w.PutU32(st.TransferCount)
		w.PutU64(st.TransferGas)
	})
	return w.Bytes()
}

func encodeReadyQueue(q ReadyQueue) []byte {
	w := codec.NewWriter(256)
	codec.EncodeSeq(w, q, func(w *codec.Writer, slot []ReadyItem) {
		codec.EncodeSeq(w, slot, func(w *codec.Writer, it ReadyItem) {
			it.Report.Encode(w)
			codec.EncodeSeq(w, it.Dependencies, func(w *codec.Writer, h oracle.Hash) { w.PutRaw(h[:]) })
		})
	})
	return w.Bytes()
}

func encodeRecentAccOutputs(m map[ServiceId]oracle.Hash) []byte {
	ids := make([]ServiceId, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	w := codec.NewWriter(len(ids) * 36)
	codec.EncodeSeq(w, ids, func(w *codec.Writer, id ServiceId) {
		w.PutU32(uint32(id))
		h := m[id]
		w.PutRaw(h[:])
	})
	return w.Bytes()
}
