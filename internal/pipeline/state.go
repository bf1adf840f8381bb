package pipeline

// State 流程所处的步骤。
type State string

const (
	StateIdle          State = "idle"
	StateTunnelUp      State = "tunnel_up"
	StateDNSSynced     State = "dns_synced"
	StateDNSSkipped    State = "dns_skipped"
	StateNotified      State = "notified"
	StateNotifySkipped State = "notify_skipped"
	StateReady         State = "ready"
	StateAborted       State = "aborted"
)

// Terminal s 是否为终止状态，之后不再转换。
func (s State) Terminal() bool {
	return s == StateReady || s == StateAborted
}

var transitions = map[State][]State{
	StateIdle:          {StateTunnelUp, StateAborted},
	StateTunnelUp:      {StateDNSSynced, StateDNSSkipped, StateAborted},
	StateDNSSynced:     {StateNotified, StateNotifySkipped},
	StateDNSSkipped:    {StateNotified, StateNotifySkipped},
	StateNotified:      {StateReady},
	StateNotifySkipped: {StateReady},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
