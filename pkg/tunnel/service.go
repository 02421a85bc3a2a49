// Package tunnel computes live peer and target configuration for sites,
// coordinates hole-punch initiation with clients, and signals
// termination/errors to connected sessions.
package tunnel

import (
	"time"

	"burrow/pkg/model"
	"burrow/pkg/relay"
	"burrow/pkg/store"
	"burrow/pkg/ws"
)

// Registry is the connection-registry surface the core consumes. Sends
// are best effort and silently no-op for disconnected sessions.
type Registry interface {
	SendToClient(sessionID string, msg ws.Message)
}

// ExitNodeDirectory resolves exit nodes; backed by the store or by consul
// discovery.
type ExitNodeDirectory interface {
	ExitNode(id uint) (model.ExitNode, bool, error)
}

// Recorder receives journal events. May be nil.
type Recorder interface {
	Record(kind, detail string)
}

// DefaultRelayBasePort is the port clients use to reach a relay's
// client-facing listener, offset from the relay's own wg port.
const DefaultRelayBasePort = 21820

// Service is the tunnel control-plane core.
type Service struct {
	store     store.Store
	registry  Registry
	exitNodes ExitNodeDirectory
	relay     relay.Notifier
	sync      Synchronizer

	// Journal, when set, receives an event per config serve, terminate
	// send and relay failure.
	Journal Recorder
	// RelayBasePort overrides DefaultRelayBasePort.
	RelayBasePort int
	// Now is a test hook for staleness evaluation.
	Now func() time.Time
}

func NewService(st store.Store, registry Registry, exitNodes ExitNodeDirectory, notifier relay.Notifier, sync Synchronizer) *Service {
	return &Service{
		store:         st,
		registry:      registry,
		exitNodes:     exitNodes,
		relay:         notifier,
		sync:          sync,
		RelayBasePort: DefaultRelayBasePort,
		Now:           time.Now,
	}
}

func (s *Service) record(kind, detail string) {
	if s.Journal != nil {
		s.Journal.Record(kind, detail)
	}
}
