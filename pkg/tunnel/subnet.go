package tunnel

import (
	"fmt"
	"log"
	"net/netip"

	"burrow/pkg/model"
)

// HostAddress extracts the bare host address from a CIDR-form string.
// Plain addresses pass through unchanged.
func HostAddress(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty address")
	}
	if p, err := netip.ParsePrefix(s); err == nil {
		return p.Addr().String(), nil
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return "", fmt.Errorf("not an address or prefix: %q", s)
	}
	return a.String(), nil
}

// hostSlash32 is HostAddress plus a /32 suffix, the allowed-IPs form used
// for client peers.
func hostSlash32(subnet string) (string, error) {
	host, err := HostAddress(subnet)
	if err != nil {
		return "", err
	}
	return host + "/32", nil
}

// GenerateProxyTargets produces the proxy descriptors for one site
// resource given the exact set of authorized clients. A resource nobody
// is authorized for produces nothing.
func GenerateProxyTargets(resource model.SiteResource, clients []ClientTuple) []ProxyTarget {
	if len(clients) == 0 {
		return nil
	}
	allowed := make([]string, 0, len(clients))
	for _, c := range clients {
		s, err := hostSlash32(c.Subnet)
		if err != nil {
			log.Printf("proxy target: skipping client %d on resource %d: %v", c.ClientID, resource.ID, err)
			continue
		}
		allowed = append(allowed, s)
	}
	if len(allowed) == 0 {
		return nil
	}
	switch resource.Mode {
	case model.ResourceModeHost:
		if resource.HostAddress == "" || resource.ListenPort == 0 {
			log.Printf("proxy target: resource %d host mode missing address or port", resource.ID)
			return nil
		}
		return []ProxyTarget{{
			ResourceID:     resource.ID,
			Mode:           model.ResourceModeHost,
			Protocol:       resource.Protocol,
			ListenPort:     resource.ListenPort,
			Destination:    resource.HostAddress,
			AllowedSubnets: allowed,
		}}
	case model.ResourceModeCIDR:
		if _, err := netip.ParsePrefix(resource.CIDR); err != nil {
			log.Printf("proxy target: resource %d has invalid cidr %q: %v", resource.ID, resource.CIDR, err)
			return nil
		}
		return []ProxyTarget{{
			ResourceID:     resource.ID,
			Mode:           model.ResourceModeCIDR,
			Protocol:       resource.Protocol,
			CIDR:           resource.CIDR,
			AllowedSubnets: allowed,
		}}
	default:
		log.Printf("proxy target: resource %d has unknown mode %q", resource.ID, resource.Mode)
		return nil
	}
}
