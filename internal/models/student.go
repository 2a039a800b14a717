package models

// BoardingType describes how a student is catered for during the school day.
type BoardingType string

const (
	BoardingFull     BoardingType = "BOARDING"
	BoardingHalf     BoardingType = "HALF_BOARD"
	BoardingTwoShift BoardingType = "TWO_SHIFT"
)

// BoardingTypes lists every boarding type in reporting order.
var BoardingTypes = []BoardingType{BoardingFull, BoardingHalf, BoardingTwoShift}

// Valid reports whether the boarding type is known.
func (b BoardingType) Valid() bool {
	switch b {
	case BoardingFull, BoardingHalf, BoardingTwoShift:
		return true
	}
	return false
}

// Student represents a learner registered in the institution.
type Student struct {
	ID           string       `json:"id" yaml:"id"`
	Name         string       `json:"name" yaml:"name"`
	Class        string       `json:"class" yaml:"class"`
	BoardingType BoardingType `json:"boarding_type" yaml:"boarding_type"`
	Gender       string       `json:"gender" yaml:"gender"`
}
