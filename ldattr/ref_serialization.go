package ldattr

// MarshalText encodes the Ref as its original path string. This allows Ref fields to be
// serialized by encoding/json as JSON strings.
func (a Ref) MarshalText() ([]byte, error) {
	return []byte(a.rawPath), nil
}

// UnmarshalText parses a Ref from a path string. An empty string produces an undefined
// (zero value) Ref rather than an invalid one, since optional references are represented
// as empty strings in flag data.
func (a *Ref) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = Ref{}
		return nil
	}
	*a = NewRef(string(data))
	return nil
}
