package ws

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"burrow/pkg/auth"
	"burrow/pkg/model"
)

// SessionStore records which session id currently belongs to which site or
// client. The hub is the only writer.
type SessionStore interface {
	SaveNewtSession(model.NewtSession) error
	DeleteNewtSession(sessionID string) error
	SaveOlmSession(model.OlmSession) error
	DeleteOlmSession(sessionID string) error
}

type agentConn struct {
	sess Session
	mu   sync.Mutex // gorilla allows one concurrent writer
	c    *websocket.Conn
}

// Hub maintains agent connections keyed by session id and dispatches
// inbound messages by type.
type Hub struct {
	upgrader websocket.Upgrader
	sessions SessionStore

	mu       sync.RWMutex
	conns    map[string]*agentConn
	handlers map[string]Handler
}

func NewHub(sessions SessionStore) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: sessions,
		conns:    map[string]*agentConn{},
		handlers: map[string]Handler{},
	}
}

// Handle registers the handler for a message type. Registration happens at
// startup, before the hub accepts connections.
func (h *Hub) Handle(msgType string, fn Handler) {
	h.handlers[msgType] = fn
}

// HandleAgentWS upgrades an agent connection. The bearer token carries the
// agent kind (newt/olm) and entity id; the session id is minted here.
func (h *Hub) HandleAgentWS(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ParseAgent(bearerToken(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	sess := Session{
		ID:   fmt.Sprintf("%s-%d-%d", claims.Kind, claims.EntityID, time.Now().UnixNano()),
		Kind: claims.Kind,
	}
	switch claims.Kind {
	case KindNewt:
		sess.SiteID = claims.EntityID
	case KindOlm:
		sess.ClientID = claims.EntityID
	default:
		http.Error(w, "unknown agent kind", http.StatusBadRequest)
		return
	}
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed kind=%s id=%d err=%v", claims.Kind, claims.EntityID, err)
		return
	}
	ac := &agentConn{sess: sess, c: c}
	h.mu.Lock()
	h.conns[sess.ID] = ac
	h.mu.Unlock()
	if err := h.recordSession(sess); err != nil {
		log.Printf("session record failed %s: %v", sess.ID, err)
	}
	log.Printf("agent ws connected: %s", sess.ID)
	go h.readLoop(ac)
}

func (h *Hub) recordSession(sess Session) error {
	if h.sessions == nil {
		return nil
	}
	now := time.Now()
	if sess.Kind == KindNewt {
		return h.sessions.SaveNewtSession(model.NewtSession{SessionID: sess.ID, SiteID: sess.SiteID, ConnectedAt: now})
	}
	return h.sessions.SaveOlmSession(model.OlmSession{SessionID: sess.ID, ClientID: sess.ClientID, ConnectedAt: now})
}

func (h *Hub) dropSession(sess Session) {
	if h.sessions == nil {
		return
	}
	var err error
	if sess.Kind == KindNewt {
		err = h.sessions.DeleteNewtSession(sess.ID)
	} else {
		err = h.sessions.DeleteOlmSession(sess.ID)
	}
	if err != nil {
		log.Printf("session delete failed %s: %v", sess.ID, err)
	}
}

// SendToClient sends a message to a session if connected. Best effort: an
// unknown or disconnected session is a logged no-op.
func (h *Hub) SendToClient(sessionID string, msg Message) {
	h.mu.RLock()
	ac := h.conns[sessionID]
	h.mu.RUnlock()
	if ac == nil {
		log.Printf("ws send skipped; session %s not connected", sessionID)
		return
	}
	ac.mu.Lock()
	err := ac.c.WriteJSON(msg)
	ac.mu.Unlock()
	if err != nil {
		log.Printf("ws send to %s failed: %v", sessionID, err)
	}
}

// Connected reports whether a session currently has a live connection.
func (h *Hub) Connected(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[sessionID] != nil
}

func (h *Hub) readLoop(ac *agentConn) {
	defer func() {
		_ = ac.c.Close()
		h.mu.Lock()
		if h.conns[ac.sess.ID] == ac {
			delete(h.conns, ac.sess.ID)
		}
		h.mu.Unlock()
		h.dropSession(ac.sess)
		log.Printf("agent ws disconnected: %s", ac.sess.ID)
	}()
	for {
		var msg inbound
		if err := ac.c.ReadJSON(&msg); err != nil {
			return
		}
		fn := h.handlers[msg.Type]
		if fn == nil {
			log.Printf("ws recv from %s unhandled type=%s", ac.sess.ID, msg.Type)
			continue
		}
		go fn(ac.sess, msg.Data)
	}
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	// agents may also pass the token as a query param when header
	// injection is awkward (e.g. browser-based olm)
	return r.URL.Query().Get("token")
}
