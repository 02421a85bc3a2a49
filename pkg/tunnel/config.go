package tunnel

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"burrow/pkg/model"
	"burrow/pkg/relay"
	"burrow/pkg/ws"
)

// holePunchWindow bounds how old a site's last hole punch may be before
// its endpoint is considered a dead network path.
const holePunchWindow = 5 * time.Second

// HandleGetConfig serves a newt's config request. Every missing
// precondition drops the request silently: newts poll, so a dropped
// request self-heals on the next cycle.
func (s *Service) HandleGetConfig(sess ws.Session, data json.RawMessage) {
	if sess.SiteID == 0 {
		log.Printf("get-config: session %s has no associated site", sess.ID)
		return
	}
	var req GetConfigRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("get-config: site %d sent malformed payload: %v", sess.SiteID, err)
		return
	}
	if req.PublicKey == "" || req.Port <= 0 {
		log.Printf("get-config: site %d sent incomplete payload (publicKey=%q port=%d)", sess.SiteID, req.PublicKey, req.Port)
		return
	}
	if _, err := wgtypes.ParseKey(req.PublicKey); err != nil {
		log.Printf("get-config: site %d sent invalid public key: %v", sess.SiteID, err)
		return
	}

	site, ok, err := s.store.GetSite(sess.SiteID)
	if err != nil || !ok {
		log.Printf("get-config: site %d not found (err=%v)", sess.SiteID, err)
		return
	}
	if site.Endpoint == "" {
		log.Printf("get-config: site %d has no endpoint yet; hole punch incomplete", site.ID)
		return
	}
	if !site.HolePunchedSince(s.Now(), holePunchWindow) {
		log.Printf("get-config: site %d hole punch is stale (last=%d)", site.ID, site.LastHolePunch)
		return
	}

	oldPort := site.ListenPort
	oldSubnet := site.Subnet
	updated, ok, err := s.store.UpdateSiteKey(site.ID, req.PublicKey, req.Port)
	if err != nil || !ok {
		log.Printf("get-config: site %d key update failed (found=%v err=%v)", site.ID, ok, err)
		return
	}

	// Best effort: reprogram the relay from the old destination to the
	// new one. Never awaited for the response; failures are logged and
	// the next poll cycle converges.
	if site.ExitNodeID != nil && oldSubnet != "" && oldPort != 0 {
		go s.notifyExitNode(*site.ExitNodeID, oldSubnet, oldPort, updated)
	}

	peers, proxyTargets := s.BuildClientConfig(updated)
	ipAddress, err := HostAddress(updated.Address)
	if err != nil {
		log.Printf("get-config: site %d has unusable internal address %q: %v", updated.ID, updated.Address, err)
		return
	}
	s.registry.SendToClient(sess.ID, ws.Message{
		Type: MsgReceiveConfig,
		Data: ConfigResponse{IPAddress: ipAddress, Peers: peers, Targets: proxyTargets},
	})
	s.record("config_served", fmt.Sprintf("site=%d peers=%d targets=%d", updated.ID, len(peers), len(proxyTargets)))
}

// HandleGetTargets serves the raw tcp/udp target programming for the
// requesting newt's site.
func (s *Service) HandleGetTargets(sess ws.Session, _ json.RawMessage) {
	if sess.SiteID == 0 {
		log.Printf("get-targets: session %s has no associated site", sess.ID)
		return
	}
	cfg, err := s.BuildTargetConfig(sess.SiteID)
	if err != nil {
		log.Printf("get-targets: site %d build failed: %v", sess.SiteID, err)
		return
	}
	s.registry.SendToClient(sess.ID, ws.Message{Type: MsgReceiveTargets, Data: cfg})
}

func (s *Service) notifyExitNode(exitNodeID uint, oldSubnet string, oldPort int, site model.Site) {
	node, ok, err := s.exitNodes.ExitNode(exitNodeID)
	if err != nil || !ok {
		log.Printf("relay notify: exit node %d unavailable (err=%v)", exitNodeID, err)
		return
	}
	oldIP, err := HostAddress(oldSubnet)
	if err != nil {
		log.Printf("relay notify: site %d old subnet %q unusable: %v", site.ID, oldSubnet, err)
		return
	}
	newIP, err := HostAddress(site.Subnet)
	if err != nil {
		log.Printf("relay notify: site %d subnet %q unusable: %v", site.ID, site.Subnet, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), relay.SideCallTimeout)
	defer cancel()
	err = s.relay.SendToExitNode(ctx, node, relay.Request{
		RemoteType: "exit-node",
		LocalPath:  "/update-destination",
		Method:     http.MethodPost,
		Data: relay.DestinationUpdate{
			OldDestination: relay.Destination{DestinationIP: oldIP, DestinationPort: oldPort},
			NewDestination: relay.Destination{DestinationIP: newIP, DestinationPort: site.ListenPort},
		},
	})
	if err != nil {
		log.Printf("relay notify: exit node %d update failed for site %d: %v", exitNodeID, site.ID, err)
		s.record("relay_notify_failed", fmt.Sprintf("site=%d exitNode=%d err=%v", site.ID, exitNodeID, err))
	}
}
