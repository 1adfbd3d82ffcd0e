package util

// Ptr is for optional config and record fields built from literals.
func Ptr[T any](v T) *T { return &v }

// Deref reads an optional field, treating nil as the zero value.
func Deref[T any](p *T) (v T) {
	if p == nil {
		return v
	}
	return *p
}

// Coalesce picks the first value that is set. Request fields fall back to
// record fields and then to configured defaults this way.
func Coalesce[T comparable](values ...T) (v T) {
	for i := range values {
		if values[i] != v {
			return values[i]
		}
	}
	return v
}
