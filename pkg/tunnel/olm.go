package tunnel

import (
	"encoding/json"
	"log"

	"burrow/pkg/codes"
	"burrow/pkg/ws"
)

// HandleOlmGetConfig serves a client device's view of its configuration:
// its own address and one peer per site it may route through. Unusable
// clients get an explicit error message rather than a silent drop, since
// an olm cannot self-heal a blocked or unapproved state by polling.
func (s *Service) HandleOlmGetConfig(sess ws.Session, _ json.RawMessage) {
	if sess.ClientID == 0 {
		log.Printf("olm get-config: session %s has no associated client", sess.ID)
		return
	}
	client, ok, err := s.store.GetClient(sess.ClientID)
	if err != nil || !ok {
		log.Printf("olm get-config: client %d not found (err=%v)", sess.ClientID, err)
		return
	}
	switch {
	case client.Blocked:
		s.SendOlmError(codes.ClientBlocked, sess.ID)
		return
	case !client.Approved:
		s.SendOlmError(codes.ClientNotApproved, sess.ID)
		return
	}
	if !client.Usable() {
		log.Printf("olm get-config: client %d missing public key or subnet", client.ID)
		return
	}
	ipAddress, err := HostAddress(client.Subnet)
	if err != nil {
		log.Printf("olm get-config: client %d subnet %q unusable: %v", client.ID, client.Subnet, err)
		return
	}

	sites, err := s.store.ListSitesForClient(client.ID)
	if err != nil {
		log.Printf("olm get-config: client %d site listing failed: %v", client.ID, err)
		return
	}
	peers := make([]Peer, 0, len(sites))
	for _, cs := range sites {
		site := cs.Site
		if site.PublicKey == "" || site.Subnet == "" {
			log.Printf("olm get-config: skipping site %d for client %d (not yet reachable)", site.ID, client.ID)
			continue
		}
		endpoint := site.Endpoint
		if cs.IsRelayed {
			endpoint = ""
		}
		peers = append(peers, Peer{
			PublicKey:  site.PublicKey,
			AllowedIPs: []string{site.Subnet},
			Endpoint:   endpoint,
		})
	}
	s.registry.SendToClient(sess.ID, ws.Message{
		Type: MsgOlmReceiveConfig,
		Data: OlmConfigResponse{IPAddress: ipAddress, Peers: peers},
	})
}
