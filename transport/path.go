package transport

import "sync/atomic"

// Path is a concrete route to a peer: a remote endpoint as seen from one
// local socket. It is safe for concurrent use.
type Path struct {
	endpoint       Endpoint
	localSocket    int64
	localInterface int64

	lastSend    atomic.Int64
	lastReceive atomic.Int64
}

// NewPath creates a path to endpoint over a local socket and interface.
func NewPath(endpoint Endpoint, localSocket, localInterface int64) *Path {
	return &Path{
		endpoint:       endpoint,
		localSocket:    localSocket,
		localInterface: localInterface,
	}
}

func (p *Path) Endpoint() Endpoint { return p.endpoint }
func (p *Path) LocalSocket() int64 { return p.localSocket }
func (p *Path) LocalInterface() int64 { return p.localInterface }
func (p *Path) LastSend() int64 { return p.lastSend.Load() }
func (p *Path) LastReceive() int64 { return p.lastReceive.Load() }
func (p *Path) LogSend(ticks int64) { p.lastSend.Store(ticks) }
func (p *Path) LogReceive(ticks int64) { p.lastReceive.Store(ticks) }
