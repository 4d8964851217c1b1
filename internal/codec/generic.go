package codec

// EncodeSeq writes encode_unsigned(len(items)) followed by each item's
// encoding via enc, matching the Vec<T> rule of §4.1/§6.
func EncodeSeq[T any](w *Writer, items []T, enc func(*Writer, T)) {
	w.PutUnsigned(uint64(len(items)))
	for _, it := range items {
		enc(w, it)
	}
}

// DecodeSeq reads a Vec<T> written by EncodeSeq.
func DecodeSeq[T any](r *Reader, dec func(*Reader) (T, error)) ([]T, error) {
	n, err := r.Unsigned()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := dec(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// EncodeOption writes a tag byte (0=None,1=Some) followed by the value's
// encoding when present.
func EncodeOption[T any](w *Writer, v *T, enc func(*Writer, T)) {
	if v == nil {
		w.PutU8(0)
		return
	}
	w.PutU8(1)
	enc(w, *v)
}

// DecodeOption reads an Option<T> written by EncodeOption.
func DecodeOption[T any](r *Reader, dec func(*Reader) (T, error)) (*T, error) {
	tag, err := r.U8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		v, err := dec(r)
		if err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, ErrInvalidData
	}
}

// DecodeExact decodes a single top-level value with dec and requires the
// whole input to be consumed (§8 property 1: no trailing bytes).
func DecodeExact[T any](b []byte, dec func(*Reader) (T, error)) (T, error) {
	r := NewReader(b)
	v, err := dec(r)
	if err != nil {
		var zero T
		return zero, err
	}
	if !r.Done() {
		var zero T
		return zero, ErrTrailingData
	}
	return v, nil
}
