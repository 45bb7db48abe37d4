package pointer

func FromAny[T any](v T) *T {
	return &v
}

func ToString(p *string) string {
	if p == nil {
		return ""
	}

	return *p
}

// FromString returns nil for the empty string.
func FromString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
