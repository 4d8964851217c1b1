package codec

// Reader is a cursor over an encoded byte slice, mirroring the cursor-based
// decode style of pkg/rlp's byteStream (read-and-advance, typed sentinel
// errors on truncation or malformed prefixes).
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps b for sequential decoding.
func NewReader(b []byte) *Reader { return &Reader{buf: b} }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Done reports whether the reader has consumed the whole input.
func (r *Reader) Done() bool { return r.pos >= len(r.buf) }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return ErrNotEnoughData
	}
	return nil
}

// RawBytes reads n raw bytes with no length prefix (for fixed arrays).
func (r *Reader) RawBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// U8 reads a single byte.
func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// U16 reads a little-endian u16.
func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := uint16(r.buf[r.pos]) | uint16(r.buf[r.pos+1])<<8
	r.pos += 2
	return v, nil
}

// U32 reads a little-endian u32.
func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := uint32(r.buf[r.pos]) | uint32(r.buf[r.pos+1])<<8 |
		uint32(r.buf[r.pos+2])<<16 | uint32(r.buf[r.pos+3])<<24
	r.pos += 4
	return v, nil
}

// U64 reads a little-endian u64.
func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(r.buf[r.pos+i]) << uint(8*i)
	}
	r.pos += 8
	return v, nil
}

// I32 reads a little-endian two's-complement i32.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// I64 reads a little-endian two's-complement i64.
func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

// Unsigned reads the §4.1 variable-length natural-number encoding.
func (r *Reader) Unsigned() (uint64, error) {
	x, n, err := DecodeUnsigned(r.buf[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += n
	return x, nil
}

// Blob reads a length-prefixed byte blob.
func (r *Reader) Blob() ([]byte, error) {
	n, err := r.Unsigned()
	if err != nil {
		return nil, err
	}
	return r.RawBytes(int(n))
}

// Bool reads a tag byte as a boolean; any value other than 0/1 is invalid.
func (r *Reader) Bool() (bool, error) {
	v, err := r.U8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidData
	}
}
