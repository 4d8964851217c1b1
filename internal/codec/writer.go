package codec

// Writer accumulates a canonical byte encoding. Every domain entity's
// Encode method takes a *Writer and appends to it; there is no backtracking,
// matching the append-only style of pkg/rlp's encoder and pkg/ssz's
// Marshal* helpers in the teacher pack.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer with the given capacity hint.
func NewWriter(capHint int) *Writer {
	return &Writer{buf: make([]byte, 0, capHint)}
}

// Bytes returns the accumulated encoding.
func (w *Writer) Bytes() []byte { return w.buf }

// PutRaw appends raw bytes with no length prefix (used for fixed arrays).
func (w *Writer) PutRaw(b []byte) { w.buf = append(w.buf, b...) }

// PutU8 appends a single byte.
func (w *Writer) PutU8(v uint8) { w.buf = append(w.buf, v) }

// PutU16 appends a little-endian u16.
func (w *Writer) PutU16(v uint16) {
	w.buf = append(w.buf, byte(v), byte(v>>8))
}

// PutU32 appends a little-endian u32.
func (w *Writer) PutU32(v uint32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// PutU64 appends a little-endian u64.
func (w *Writer) PutU64(v uint64) {
	for i := 0; i < 8; i++ {
		w.buf = append(w.buf, byte(v>>uint(8*i)))
	}
}

// PutI32 appends a little-endian two's-complement i32.
func (w *Writer) PutI32(v int32) { w.PutU32(uint32(v)) }

// PutI64 appends a little-endian two's-complement i64.
func (w *Writer) PutI64(v int64) { w.PutU64(uint64(v)) }

// PutUnsigned appends the §4.1 variable-length natural-number encoding.
func (w *Writer) PutUnsigned(x uint64) { w.buf = append(w.buf, EncodeUnsigned(x)...) }

// PutBlob appends a length-prefixed byte blob: encode_unsigned(len) || bytes.
func (w *Writer) PutBlob(b []byte) {
	w.PutUnsigned(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// PutBool appends a tag byte: 0 for false, 1 for true.
func (w *Writer) PutBool(v bool) {
	if v {
		w.PutU8(1)
	} else {
		w.PutU8(0)
	}
}
