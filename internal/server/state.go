package server

// State is a bootstrap phase of Server.
type State uint32

const (
	StateInit State = iota
	StateCertEvaluated
	StateTLSBound
	StateTLSSkipped
	StatePlainBound
	StateServing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateCertEvaluated:
		return "cert evaluated"
	case StateTLSBound:
		return "tls bound"
	case StateTLSSkipped:
		return "tls skipped"
	case StatePlainBound:
		return "plaintext bound"
	case StateServing:
		return "serving"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
