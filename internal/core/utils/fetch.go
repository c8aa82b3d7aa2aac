package utils

// SafeFetch dereferences v, or returns fallback when v is nil. Config
// sections are pointer fields, so hooks read them through this.
func SafeFetch[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
