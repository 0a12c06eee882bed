package entities

// Direction identifies which way a stream session moves bytes.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// InputState is the state of a guest-side input stream session.
type InputState int

const (
	InputIdle InputState = iota
	InputAwaitingData
	InputDone
	InputFailed
	InputAborted
)

func (s InputState) String() string {
	switch s {
	case InputIdle:
		return "idle"
	case InputAwaitingData:
		return "awaiting_data"
	case InputDone:
		return "done"
	case InputFailed:
		return "failed"
	case InputAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s InputState) Terminal() bool {
	return s == InputDone || s == InputFailed || s == InputAborted
}

// OutputState is the state of a guest-side output stream session.
type OutputState int

const (
	OutputIdle OutputState = iota
	OutputPathPending
	OutputPathConfirmed
	OutputWriting
	OutputAwaitingAck
	OutputClosed
	OutputAborted
)

func (s OutputState) String() string {
	switch s {
	case OutputIdle:
		return "idle"
	case OutputPathPending:
		return "path_pending"
	case OutputPathConfirmed:
		return "path_confirmed"
	case OutputWriting:
		return "writing"
	case OutputAwaitingAck:
		return "awaiting_ack"
	case OutputClosed:
		return "closed"
	case OutputAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session has been torn down.
func (s OutputState) Terminal() bool {
	return s == OutputClosed || s == OutputAborted
}
