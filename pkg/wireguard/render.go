package wireguard

import (
	"fmt"
	"strings"

	"burrow/pkg/tunnel"
)

// RenderConfig produces a wg-quick compatible config string from a
// received control-plane configuration. Peers with an empty endpoint are
// rendered without an Endpoint line; the relay path takes over for them.
func RenderConfig(iface string, cfg tunnel.ConfigResponse, privateKey string, listenPort int) string {
	if iface == "" {
		iface = "wg0"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# interface %s\n", iface)
	b.WriteString("[Interface]\n")
	if cfg.IPAddress != "" {
		fmt.Fprintf(&b, "Address = %s/32\n", cfg.IPAddress)
	}
	if listenPort > 0 {
		fmt.Fprintf(&b, "ListenPort = %d\n", listenPort)
	}
	if privateKey != "" {
		fmt.Fprintf(&b, "PrivateKey = %s\n", privateKey)
	}
	b.WriteString("\n")

	for _, p := range cfg.Peers {
		b.WriteString("[Peer]\n")
		fmt.Fprintf(&b, "PublicKey = %s\n", p.PublicKey)
		if p.Endpoint != "" {
			fmt.Fprintf(&b, "Endpoint = %s\n", p.Endpoint)
		}
		if len(p.AllowedIPs) > 0 {
			fmt.Fprintf(&b, "AllowedIPs = %s\n", strings.Join(p.AllowedIPs, ", "))
		}
		b.WriteString("PersistentKeepalive = 25\n\n")
	}
	return b.String()
}
