// Package preimage processes the preimages extrinsic (§4.9): for each
// solicited (hash, length) entry, stores the provided blob and records the
// providing timeslot in the requesting service's lookup history.
//
// Grounded on pkg/core/state/state_object.go's preimage/storage map
// mutation shape.
package preimage

import (
	"errors"

	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
)

// Errors (§4.9, §7).
var (
	ErrPreimageUnneeded           = errors.New("preimage: already held or never solicited")
	ErrPreimagesNotSortedOrUnique = errors.New("preimage: entries not sorted/unique by (service, blob)")
	ErrRequesterNotFound          = errors.New("preimage: service does not exist")
)

// Output is the Ok/Err union for preimage processing (§7).
type Output struct {
	Err error
}

// Process validates and applies the block's preimage extrinsic (§4.9).
// Returns, per service, the count and total bytes provided — fed into the
// statistics processor (§4.12 step 8).
func Process(services map[state.ServiceId]*state.Account, items []state.PreimageItem, postTau uint32) (map[state.ServiceId]int, map[state.ServiceId]uint64, Output) {
	for i := 1; i < len(items); i++ {
		if !lessItem(items[i-1], items[i]) {
			return nil, nil, Output{Err: ErrPreimagesNotSortedOrUnique}
		}
	}

	counts := make(map[state.ServiceId]int)
	sizes := make(map[state.ServiceId]uint64)

	for _, item := range items {
		acc, ok := services[item.Service]
		if !ok {
			return nil, nil, Output{Err: ErrRequesterNotFound}
		}
		h := oracle.Blake2b256(item.Blob)
		length := uint32(len(item.Blob))
		if !acc.HasSolicited(h, length) || acc.HasPreimage(h) {
			return nil, nil, Output{Err: ErrPreimageUnneeded}
		}
		acc.Preimages[h] = append([]byte(nil), item.Blob...)
		acc.RecordProvision(h, length, postTau)

		counts[item.Service]++
		sizes[item.Service] += uint64(length)
	}

	return counts, sizes, Output{}
}

func lessItem(a, b state.PreimageItem) bool {
	if a.Service != b.Service {
		return a.Service < b.Service
	}
	return lessBytes(a.Blob, b.Blob)
}

func lessBytes(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
