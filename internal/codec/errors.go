package codec

import "errors"

// Sentinel decode errors (§7 Codec errors). Every entity's Decode method
// returns one of these (possibly wrapped with fmt.Errorf("%w: ...")) on
// malformed input, never a generic error.
var (
	// ErrNotEnoughData is returned when the input is truncated.
	ErrNotEnoughData = errors.New("codec: not enough data")

	// ErrInvalidData is returned on a malformed prefix, an out-of-range
	// discriminant, or an unknown tagged-union tag.
	ErrInvalidData = errors.New("codec: invalid data")

	// ErrTrailingData is returned by top-level DecodeExact when bytes
	// remain after decoding a single value (§8 property 1).
	ErrTrailingData = errors.New("codec: trailing data")
)
