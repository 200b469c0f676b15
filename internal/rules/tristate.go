package rules

// TriState is the outcome of a single condition at one bar.
type TriState int8

const (
	// Unavailable means a referenced value does not exist yet at this bar.
	Unavailable TriState = iota
	False
	True
)

func (t TriState) String() string {
	switch t {
	case True:
		return "TRUE"
	case False:
		return "FALSE"
	default:
		return "UNAVAILABLE"
	}
}

// FromBool converts a resolved comparison.
func FromBool(b bool) TriState {
	if b {
		return True
	}
	return False
}
