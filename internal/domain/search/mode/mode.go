package mode

// Mode is the entry point a search was issued through.
type Mode string

// Search mode constants.
const (
	// Standard parses the query box text as typed.
	Standard  Mode = "standard"
	IDPattern Mode = "id_pattern"
	Range     Mode = "range"
	Wildcard  Mode = "wildcard"
	// Progressive delivers ranked results in batches through a callback.
	Progressive Mode = "progressive"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	switch m {
	case Standard, IDPattern, Range, Wildcard, Progressive:
		return true
	}
	return false
}
