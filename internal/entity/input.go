package entity

// Input is the sampled state of one client's controls for a single tick.
// Field-by-field equality (rather than reflect.DeepEqual) mirrors the
// source's explicit operator== and is what the input-packet run-length
// codec relies on to detect repeated ticks cheaply.
type Input struct {
	Left  bool
	Right bool
	Up    bool
	Down  bool
	Push  bool
	Pull  bool
}

// Equal reports field-by-field equality.
func (in Input) Equal(other Input) bool { return in == other }

// NotEqual is the negation of Equal.
func (in Input) NotEqual(other Input) bool { return in != other }
