package tunnel

import (
	"testing"
	"time"

	"burrow/pkg/model"
)

func TestBuildClientConfigSkipsUnusableClients(t *testing.T) {
	now := time.Now()
	env := newTestEnv(now)
	site, _ := seedSite(t, env, now)

	good, _ := env.store.SaveClient(model.Client{PublicKey: testKey(t), Subnet: "100.64.0.5/24"})
	noKey, _ := env.store.SaveClient(model.Client{Subnet: "100.64.0.6/24"})
	noSubnet, _ := env.store.SaveClient(model.Client{PublicKey: testKey(t)})
	for _, id := range []uint{good.ID, noKey.ID, noSubnet.ID} {
		_ = env.store.SaveClientSite(model.ClientSite{ClientID: id, SiteID: site.ID, Endpoint: "1.2.3.4:51820"})
	}

	peers, _ := env.svc.BuildClientConfig(site)

	if len(peers) != 1 {
		t.Fatalf("expected 1 peer, got %d", len(peers))
	}
	if peers[0].PublicKey != good.PublicKey {
		t.Errorf("wrong client in peer list: %q", peers[0].PublicKey)
	}
	if n := env.sync.upsertsFor(noKey.ID) + env.sync.upsertsFor(noSubnet.ID); n != 0 {
		t.Errorf("peer sync attempted for unusable clients %d times", n)
	}
	if env.sync.upsertsFor(good.ID) != 1 {
		t.Errorf("peer sync not attempted for usable client")
	}
}

func TestBuildClientConfigUnreachableSiteYieldsNoPeers(t *testing.T) {
	now := time.Now()
	env := newTestEnv(now)
	site, _ := seedSite(t, env, now)
	client, _ := env.store.SaveClient(model.Client{PublicKey: testKey(t), Subnet: "100.64.0.5/24"})
	_ = env.store.SaveClientSite(model.ClientSite{ClientID: client.ID, SiteID: site.ID})

	tests := []struct {
		name   string
		mutate func(*model.Site)
	}{
		{"no public key", func(s *model.Site) { s.PublicKey = "" }},
		{"no endpoint", func(s *model.Site) { s.Endpoint = "" }},
		{"no exit node", func(s *model.Site) { s.ExitNodeID = nil }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := site
			tc.mutate(&s)
			peers, targets := env.svc.BuildClientConfig(s)
			if len(peers) != 0 || len(targets) != 0 {
				t.Errorf("got %d peers %d targets, want none", len(peers), len(targets))
			}
		})
	}
}

func TestBuildClientConfigSyncFailureIsIsolated(t *testing.T) {
	now := time.Now()
	env := newTestEnv(now)
	site, _ := seedSite(t, env, now)

	a, _ := env.store.SaveClient(model.Client{PublicKey: testKey(t), Subnet: "100.64.0.5/24"})
	b, _ := env.store.SaveClient(model.Client{PublicKey: testKey(t), Subnet: "100.64.0.6/24"})
	_ = env.store.SaveClientSite(model.ClientSite{ClientID: a.ID, SiteID: site.ID})
	_ = env.store.SaveClientSite(model.ClientSite{ClientID: b.ID, SiteID: site.ID})
	env.sync.failFor[a.ID] = true

	peers, _ := env.svc.BuildClientConfig(site)

	if len(peers) != 2 {
		t.Fatalf("failing sync removed a peer: got %d peers", len(peers))
	}
	if env.sync.upsertsFor(b.ID) != 1 {
		t.Errorf("other client's sync did not run")
	}
}

func TestBuildClientConfigPushesSiteParams(t *testing.T) {
	now := time.Now()
	env := newTestEnv(now)
	site, node := seedSite(t, env, now)
	client, _ := env.store.SaveClient(model.Client{PublicKey: testKey(t), Subnet: "100.64.0.5/24"})
	_ = env.store.SaveClientSite(model.ClientSite{ClientID: client.ID, SiteID: site.ID})

	env.svc.BuildClientConfig(site)

	var peer *PeerParams
	var hs *HandshakeParams
	for _, c := range env.sync.snapshot() {
		if c.ClientID == client.ID {
			if c.Peer != nil {
				peer = c.Peer
			}
			if c.Handshake != nil {
				hs = c.Handshake
			}
		}
	}
	if peer == nil || hs == nil {
		t.Fatal("expected both an upsert and a handshake for the client")
	}
	if peer.SiteID != site.ID || peer.Endpoint != site.Endpoint || peer.PublicKey != site.PublicKey {
		t.Errorf("peer params = %+v", peer)
	}
	if peer.ServerIP != "10.0.0.1" || peer.ServerPort != site.ListenPort {
		t.Errorf("server addressing = %s:%d, want 10.0.0.1:%d", peer.ServerIP, peer.ServerPort, site.ListenPort)
	}
	if peer.RelayEndpoint != "9.9.9.9:21820" {
		t.Errorf("relay endpoint = %q, want 9.9.9.9:21820", peer.RelayEndpoint)
	}
	if hs.ExitNodePublicKey != node.PublicKey || hs.ExitNodeEndpoint != "9.9.9.9:51820" {
		t.Errorf("handshake params = %+v", hs)
	}
}

func TestBuildResourceTargets(t *testing.T) {
	now := time.Now()
	env := newTestEnv(now)
	site, _ := seedSite(t, env, now)

	authorized, _ := env.store.SaveClient(model.Client{PublicKey: testKey(t), Subnet: "100.64.0.5/24"})
	other, _ := env.store.SaveClient(model.Client{PublicKey: testKey(t), Subnet: "100.64.0.6/24"})
	_ = env.store.SaveClientSite(model.ClientSite{ClientID: authorized.ID, SiteID: site.ID})
	_ = env.store.SaveClientSite(model.ClientSite{ClientID: other.ID, SiteID: site.ID})

	enabled, _ := env.store.SaveSiteResource(model.SiteResource{
		SiteID: site.ID, Mode: model.ResourceModeHost, Protocol: "tcp",
		Enabled: true, HostAddress: "192.168.1.10", ListenPort: 8443,
	})
	disabled, _ := env.store.SaveSiteResource(model.SiteResource{
		SiteID: site.ID, Mode: model.ResourceModeHost, Protocol: "tcp",
		Enabled: false, HostAddress: "192.168.1.11", ListenPort: 8444,
	})
	_ = env.store.SaveClientResource(model.ClientResource{ClientID: authorized.ID, SiteResourceID: enabled.ID})
	_ = env.store.SaveClientResource(model.ClientResource{ClientID: authorized.ID, SiteResourceID: disabled.ID})

	_, targets := env.svc.BuildClientConfig(site)

	if len(targets) != 1 {
		t.Fatalf("expected 1 proxy target, got %d", len(targets))
	}
	tgt := targets[0]
	if tgt.ResourceID != enabled.ID {
		t.Errorf("target is for resource %d, want %d", tgt.ResourceID, enabled.ID)
	}
	if tgt.Destination != "192.168.1.10" || tgt.ListenPort != 8443 {
		t.Errorf("target = %+v", tgt)
	}
	// only the authorized client's subnet, not every site client
	if len(tgt.AllowedSubnets) != 1 || tgt.AllowedSubnets[0] != "100.64.0.5/32" {
		t.Errorf("allowedSubnets = %v, want [100.64.0.5/32]", tgt.AllowedSubnets)
	}
}
