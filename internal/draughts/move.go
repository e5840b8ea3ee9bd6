package draughts

// Move - one complete move of a single piece. Path records every
// intermediate landing square of a multi-jump; Captures records every
// enemy square vacated, in jump order. A move with no captures is a
// simple slide.
type Move struct {
	From     Square   `json:"from"`
	To       Square   `json:"to"`
	Path     []Square `json:"path,omitempty"`
	Captures []Square `json:"captures,omitempty"`
}

func (that Move) IsCapture() bool {
	return len(that.Captures) > 0
}

// SameEndpoints - reports whether the other move starts and ends on the
// same squares. Submitted moves are matched against generated ones by
// endpoints first.
func (that Move) SameEndpoints(other Move) bool {
	return that.From == other.From && that.To == other.To
}

// SamePath - reports whether the other move visits the same intermediate
// landings in the same order. Used to pick among equal-length capture
// chains sharing endpoints.
func (that Move) SamePath(other Move) bool {
	if len(that.Path) != len(other.Path) {
		return false
	}
	for i := range that.Path {
		if that.Path[i] != other.Path[i] {
			return false
		}
	}

	return true
}
