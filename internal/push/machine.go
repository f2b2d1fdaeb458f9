package push

import (
	"time"

	"notify_client/internal/model"
)

// Machine is the pure reconnection state: where the channel is and how many
// consecutive closures have been retried.
type Machine struct {
	State      model.ConnectionState
	RetryCount int
}

func (m Machine) Dialing() Machine {
	m.State = model.Connecting
	return m
}

func (m Machine) Connected() Machine {
	m.State = model.Connected
	m.RetryCount = 0
	return m
}

// Closed records a closure. While the counter is below maxRetries it is
// incremented and the returned delay is base × RetryCount; otherwise
// exhausted is true and nothing should be scheduled.
func (m Machine) Closed(maxRetries int, base time.Duration) (next Machine, delay time.Duration, exhausted bool) {
	m.State = model.Disconnected
	if m.RetryCount >= maxRetries {
		return m, 0, true
	}
	m.RetryCount++
	return m, base * time.Duration(m.RetryCount), false
}

func (m Machine) Reset() Machine {
	return Machine{State: model.Disconnected}
}
