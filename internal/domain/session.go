package domain

// ConnState is the lifecycle state of a trading session.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnected
	StateAuthenticated
	StateFailed // handshake rejected; terminal for this session instance
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}
