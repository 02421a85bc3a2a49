package tunnel

import (
	"fmt"
	"log"

	"burrow/pkg/codes"
	"burrow/pkg/ws"
)

// SendTerminateClient signals a client's live session to terminate with
// the given reason. When sessionID is empty the session row is resolved
// from the client id; a missing row is an error, because termination is
// only requested by administrative actions and the absence of a session
// record is unexpected. Delivery itself is fire-and-forget.
func (s *Service) SendTerminateClient(clientID uint, reason codes.Reason, sessionID string) error {
	if sessionID == "" {
		sess, ok, err := s.store.GetOlmSessionByClient(clientID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no session registered for client %d", clientID)
		}
		sessionID = sess.SessionID
	}
	s.registry.SendToClient(sessionID, ws.Message{Type: MsgTerminate, Data: reason})
	s.record("terminate_sent", fmt.Sprintf("client=%d session=%s code=%s", clientID, sessionID, reason.Code))
	return nil
}

// SendOlmError reports an error to a specific session. Fire-and-forget.
func (s *Service) SendOlmError(reason codes.Reason, sessionID string) {
	log.Printf("olm error to %s: %s", sessionID, reason.Code)
	s.registry.SendToClient(sessionID, ws.Message{Type: MsgError, Data: reason})
}
