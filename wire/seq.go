package wire

// WriteSeq writes a count-prefixed sequence, encoding each element with put.
func WriteSeq[T any](w *Writer, vs []T, put func(*Writer, T)) {
	w.WriteLen(len(vs))
	for _, v := range vs {
		put(w, v)
	}
}

// ReadSeq reads a count-prefixed sequence, decoding each element with get.
// The count is untrusted, so capacity is bounded by the bytes left.
func ReadSeq[T any](r *Reader, get func(*Reader) (T, error)) ([]T, error) {
	start := r.off
	n, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	vs := make([]T, 0, min(n, r.Remaining()))
	for i := 0; i < n; i++ {
		v, err := get(r)
		if err != nil {
			r.off = start
			return nil, err
		}
		vs = append(vs, v)
	}
	return vs, nil
}
