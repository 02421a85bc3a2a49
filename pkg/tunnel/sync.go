package tunnel

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"burrow/pkg/store"
	"burrow/pkg/ws"
)

// PeerParams describes the peer definition pushed to a client's session.
type PeerParams struct {
	SiteID        uint   `json:"siteId"`
	Endpoint      string `json:"endpoint"`
	RelayEndpoint string `json:"relayEndpoint"`
	PublicKey     string `json:"publicKey"`
	ServerIP      string `json:"serverIP"`
	ServerPort    int    `json:"serverPort"`
}

// HandshakeParams describes a hole-punch initiation for a client<->site
// pair.
type HandshakeParams struct {
	SiteID            uint   `json:"siteId"`
	ExitNodePublicKey string `json:"exitNodePublicKey"`
	ExitNodeEndpoint  string `json:"exitNodeEndpoint"`
}

// Synchronizer pushes peer state to client sessions. Both operations are
// idempotent and safe to call on every config-request cycle; a client
// without an active session is a no-op.
type Synchronizer interface {
	UpsertPeer(ctx context.Context, clientID uint, p PeerParams) error
	InitiateHandshake(ctx context.Context, clientID uint, p HandshakeParams) error
}

// handshakeWindow suppresses repeated hole-punch triggers for the same
// session/site pair; config requests arrive every few seconds and a punch
// already in flight must not be restarted.
const handshakeWindow = 10 * time.Second

// HubSynchronizer is the Synchronizer backed by the connection registry.
type HubSynchronizer struct {
	store    store.Store
	registry Registry
	now      func() time.Time

	mu         sync.Mutex
	lastUpsert map[string]PeerParams // sessionID/siteID -> last pushed params
	handshakes map[string]time.Time  // sessionID/siteID -> last initiation
}

func NewHubSynchronizer(st store.Store, registry Registry) *HubSynchronizer {
	return &HubSynchronizer{
		store:      st,
		registry:   registry,
		now:        time.Now,
		lastUpsert: map[string]PeerParams{},
		handshakes: map[string]time.Time{},
	}
}

func (h *HubSynchronizer) UpsertPeer(_ context.Context, clientID uint, p PeerParams) error {
	sess, ok, err := h.store.GetOlmSessionByClient(clientID)
	if err != nil {
		return err
	}
	if !ok {
		log.Printf("peer upsert: client %d has no active session", clientID)
		return nil
	}
	key := fmt.Sprintf("%s/%d", sess.SessionID, p.SiteID)
	h.mu.Lock()
	if last, seen := h.lastUpsert[key]; seen && last == p {
		h.mu.Unlock()
		return nil
	}
	h.lastUpsert[key] = p
	h.mu.Unlock()
	h.registry.SendToClient(sess.SessionID, ws.Message{Type: MsgPeerUpdate, Data: p})
	return nil
}

func (h *HubSynchronizer) InitiateHandshake(_ context.Context, clientID uint, p HandshakeParams) error {
	sess, ok, err := h.store.GetOlmSessionByClient(clientID)
	if err != nil {
		return err
	}
	if !ok {
		log.Printf("handshake: client %d has no active session", clientID)
		return nil
	}
	key := fmt.Sprintf("%s/%d", sess.SessionID, p.SiteID)
	now := h.now()
	h.mu.Lock()
	if last, seen := h.handshakes[key]; seen && now.Sub(last) < handshakeWindow {
		h.mu.Unlock()
		return nil
	}
	h.handshakes[key] = now
	h.mu.Unlock()
	h.registry.SendToClient(sess.SessionID, ws.Message{Type: MsgHolePunch, Data: p})
	return nil
}
