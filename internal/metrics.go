package internal

import "sync/atomic"

// Metrics collects process-lifetime counters surfaced at /metrics.
type Metrics struct {
	signups      atomic.Uint64
	logins       atomic.Uint64
	roomsCreated atomic.Uint64
	proxyReqs    atomic.Uint64
	proxyBytes   atomic.Uint64
	activeConns  atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncSignup() {
	m.signups.Add(1)
}

func (m *Metrics) IncLogin() {
	m.logins.Add(1)
}

func (m *Metrics) IncRoomCreated() {
	m.roomsCreated.Add(1)
}

// AddProxied records one proxied media request and the bytes it relayed.
func (m *Metrics) AddProxied(bytes int64) {
	m.proxyReqs.Add(1)
	if bytes > 0 {
		m.proxyBytes.Add(uint64(bytes))
	}
}

func (m *Metrics) IncConn() {
	m.activeConns.Add(1)
}

func (m *Metrics) DecConn() {
	m.activeConns.Add(-1)
}
