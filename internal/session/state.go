package session

// Event is a typed transport event driving the lifecycle state machine.
type Event interface{ isEvent() }

// EventPairingCode carries a fresh pairing challenge from the transport.
type EventPairingCode struct {
	Code string
}

// EventOpened fires when the connection is fully established.
type EventOpened struct{}

// EventClosed fires when the connection drops. LoggedOut marks the terminal
// close reason; anything else is a transient disconnect.
type EventClosed struct {
	LoggedOut bool
}

func (EventPairingCode) isEvent() {}
func (EventOpened) isEvent()      {}
func (EventClosed) isEvent()      {}

// Effects are the side effects a transition asks its caller to perform.
// The transition itself is pure so every edge is testable without a live
// transport.
type Effects struct {
	StorePairingCode  bool // stash the challenge on the session
	ClearPairingCode  bool
	PersistCreds      bool // best-effort credential save
	ScheduleReconnect bool // re-enter Starting after the reconnect delay
	InvalidateCreds   bool // durable credential state is dead, do not reuse
}

// Transition computes the next status and effects for (status, event).
// Unknown combinations keep the current status with no effects.
func Transition(status Status, ev Event) (Status, Effects) {
	switch e := ev.(type) {
	case EventPairingCode:
		switch status {
		case StatusStarting, StatusAwaitingPairing, StatusDisconnected:
			return StatusAwaitingPairing, Effects{StorePairingCode: true}
		}

	case EventOpened:
		switch status {
		case StatusStarting, StatusAwaitingPairing, StatusDisconnected:
			return StatusConnected, Effects{ClearPairingCode: true, PersistCreds: true}
		}

	case EventClosed:
		if status == StatusLoggedOut {
			break
		}
		if e.LoggedOut {
			return StatusLoggedOut, Effects{ClearPairingCode: true, InvalidateCreds: true}
		}
		return StatusDisconnected, Effects{ScheduleReconnect: true}
	}

	return status, Effects{}
}
