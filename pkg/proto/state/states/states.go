package states

// State is the protocol phase a connection is in.
// Every state has its own independent packet id space.
type State int

const (
	// HandshakeState is the initial state of a connection. The handshake intent
	// decides whether the next state is StatusState or LoginState.
	HandshakeState State = 0

	// StatusState answers a server list ping and closes afterwards.
	StatusState State = 1

	// LoginState authenticates the player.
	LoginState State = 2

	// PlayState is the game state of a connection. The server may move the
	// connection back to ConfigState on 1.20.2 and higher.
	PlayState State = 3

	// ConfigState sits between login and play since 1.20.2.
	ConfigState State = 4
)

// States lists all states in connection order.
var States = []State{HandshakeState, StatusState, LoginState, ConfigState, PlayState}

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case HandshakeState:
		return "Handshake"
	case StatusState:
		return "Status"
	case ConfigState:
		return "Config"
	case LoginState:
		return "Login"
	case PlayState:
		return "Play"
	}
	return "UnknownState"
}
