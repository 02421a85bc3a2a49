package tunnel

import (
	"context"
	"errors"
	"sync"
	"time"

	"burrow/pkg/model"
	"burrow/pkg/relay"
	"burrow/pkg/store"
	"burrow/pkg/ws"
)

var errTest = errors.New("induced failure")

type sentMessage struct {
	SessionID string
	Msg       ws.Message
}

type fakeRegistry struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeRegistry) SendToClient(sessionID string, msg ws.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{SessionID: sessionID, Msg: msg})
}

func (f *fakeRegistry) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeRegistry) byType(msgType string) []sentMessage {
	var out []sentMessage
	for _, m := range f.messages() {
		if m.Msg.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

type notifyCall struct {
	Node model.ExitNode
	Req  relay.Request
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
	done  chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{done: make(chan struct{}, 16)}
}

func (f *fakeNotifier) SendToExitNode(_ context.Context, node model.ExitNode, req relay.Request) error {
	f.mu.Lock()
	f.calls = append(f.calls, notifyCall{Node: node, Req: req})
	f.mu.Unlock()
	f.done <- struct{}{}
	return f.err
}

// wait blocks until one notification arrived or the timeout passed.
func (f *fakeNotifier) wait(timeout time.Duration) bool {
	select {
	case <-f.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (f *fakeNotifier) all() []notifyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notifyCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type syncCall struct {
	ClientID  uint
	Peer      *PeerParams
	Handshake *HandshakeParams
}

type fakeSync struct {
	mu      sync.Mutex
	calls   []syncCall
	failFor map[uint]bool
}

func (f *fakeSync) UpsertPeer(_ context.Context, clientID uint, p PeerParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, syncCall{ClientID: clientID, Peer: &p})
	if f.failFor[clientID] {
		return context.DeadlineExceeded
	}
	return nil
}

func (f *fakeSync) InitiateHandshake(_ context.Context, clientID uint, p HandshakeParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, syncCall{ClientID: clientID, Handshake: &p})
	if f.failFor[clientID] {
		return context.DeadlineExceeded
	}
	return nil
}

func (f *fakeSync) snapshot() []syncCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]syncCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeSync) upsertsFor(clientID uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.ClientID == clientID && c.Peer != nil {
			n++
		}
	}
	return n
}

type storeDirectory struct{ st store.Store }

func (d storeDirectory) ExitNode(id uint) (model.ExitNode, bool, error) {
	return d.st.GetExitNode(id)
}

type testEnv struct {
	store    *store.MemoryStore
	registry *fakeRegistry
	notifier *fakeNotifier
	sync     *fakeSync
	svc      *Service
}

func newTestEnv(now time.Time) *testEnv {
	st := store.NewMemoryStore()
	reg := &fakeRegistry{}
	not := newFakeNotifier()
	snc := &fakeSync{failFor: map[uint]bool{}}
	svc := NewService(st, reg, storeDirectory{st}, not, snc)
	svc.Now = func() time.Time { return now }
	return &testEnv{store: st, registry: reg, notifier: not, sync: snc, svc: svc}
}
