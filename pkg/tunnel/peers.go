package tunnel

import (
	"context"
	"log"
	"net"
	"strconv"
	"sync"

	"burrow/pkg/model"
)

// BuildClientConfig computes the peer list and proxy targets for a site.
// It returns empty slices for a site missing its public key, endpoint or
// exit node: such a site is not yet reachable and no peers can be
// computed against it.
//
// For every usable associated client it also pushes an idempotent peer
// upsert and a handshake initiation; those run concurrently per client
// and a failure for one client never aborts the others.
func (s *Service) BuildClientConfig(site model.Site) ([]Peer, []ProxyTarget) {
	if site.PublicKey == "" || site.Endpoint == "" || site.ExitNodeID == nil {
		log.Printf("peer build: site %d not yet reachable (key/endpoint/exit node missing)", site.ID)
		return []Peer{}, []ProxyTarget{}
	}
	exitNode, ok, err := s.exitNodes.ExitNode(*site.ExitNodeID)
	if err != nil || !ok {
		log.Printf("peer build: site %d exit node %d unavailable: %v", site.ID, *site.ExitNodeID, err)
		return []Peer{}, []ProxyTarget{}
	}

	assocs, err := s.store.ListClientsForSite(site.ID)
	if err != nil {
		log.Printf("peer build: site %d client listing failed: %v", site.ID, err)
		return []Peer{}, []ProxyTarget{}
	}

	serverIP, err := HostAddress(site.Address)
	if err != nil {
		log.Printf("peer build: site %d has unusable address %q: %v", site.ID, site.Address, err)
		return []Peer{}, []ProxyTarget{}
	}
	relayEndpoint := net.JoinHostPort(exitNode.Endpoint, strconv.Itoa(s.RelayBasePort))

	peers := make([]Peer, 0, len(assocs))
	var wg sync.WaitGroup
	for _, sc := range assocs {
		client := sc.Client
		if !client.Usable() {
			log.Printf("peer build: skipping client %d (missing public key or subnet)", client.ID)
			continue
		}
		allowed, err := hostSlash32(client.Subnet)
		if err != nil {
			log.Printf("peer build: skipping client %d: %v", client.ID, err)
			continue
		}
		endpoint := sc.Endpoint
		if sc.IsRelayed {
			// empty endpoint signals "reach via relay, not directly"
			endpoint = ""
		}
		peers = append(peers, Peer{
			PublicKey:  client.PublicKey,
			AllowedIPs: []string{allowed},
			Endpoint:   endpoint,
		})

		wg.Add(1)
		go func(clientID uint) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("peer sync: client %d panicked: %v", clientID, r)
				}
			}()
			ctx := context.Background()
			if err := s.sync.UpsertPeer(ctx, clientID, PeerParams{
				SiteID:        site.ID,
				Endpoint:      site.Endpoint,
				RelayEndpoint: relayEndpoint,
				PublicKey:     site.PublicKey,
				ServerIP:      serverIP,
				ServerPort:    site.ListenPort,
			}); err != nil {
				log.Printf("peer sync: upsert for client %d failed: %v", clientID, err)
			}
			if err := s.sync.InitiateHandshake(ctx, clientID, HandshakeParams{
				SiteID:            site.ID,
				ExitNodePublicKey: exitNode.PublicKey,
				ExitNodeEndpoint:  net.JoinHostPort(exitNode.Endpoint, strconv.Itoa(exitNode.ListenPort)),
			}); err != nil {
				log.Printf("peer sync: handshake for client %d failed: %v", clientID, err)
			}
		}(client.ID)
	}
	wg.Wait()

	return peers, s.buildResourceTargets(site.ID)
}

// buildResourceTargets aggregates proxy targets for every enabled site
// resource, scoped to the clients authorized for each one.
func (s *Service) buildResourceTargets(siteID uint) []ProxyTarget {
	resources, err := s.store.ListSiteResources(siteID)
	if err != nil {
		log.Printf("target build: site %d resource listing failed: %v", siteID, err)
		return []ProxyTarget{}
	}
	targets := []ProxyTarget{}
	for _, r := range resources {
		if !r.Enabled {
			continue
		}
		clients, err := s.store.ListClientsForResource(r.ID)
		if err != nil {
			log.Printf("target build: resource %d client listing failed: %v", r.ID, err)
			continue
		}
		tuples := make([]ClientTuple, 0, len(clients))
		for _, c := range clients {
			if !c.Usable() {
				log.Printf("target build: skipping client %d on resource %d (missing public key or subnet)", c.ID, r.ID)
				continue
			}
			tuples = append(tuples, ClientTuple{ClientID: c.ID, PubKey: c.PublicKey, Subnet: c.Subnet})
		}
		targets = append(targets, GenerateProxyTargets(r, tuples)...)
	}
	return targets
}
