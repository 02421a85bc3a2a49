package tunnel

// Message types exchanged with agent sessions.
const (
	MsgGetConfig        = "wg/get-config"
	MsgReceiveConfig    = "wg/receive-config"
	MsgGetTargets       = "target/get-config"
	MsgReceiveTargets   = "target/receive-config"
	MsgOlmGetConfig     = "olm/wg/get-config"
	MsgOlmReceiveConfig = "olm/wg/receive-config"
	MsgPeerUpdate       = "olm/wg/peer/update"
	MsgHolePunch        = "olm/wg/holepunch"
	MsgTerminate        = "terminate"
	MsgError            = "error"
)

// GetConfigRequest is the payload a newt sends when asking for its
// current configuration.
type GetConfigRequest struct {
	PublicKey string `json:"publicKey"`
	Port      int    `json:"port"`
}

// Peer is one remote tunnel counterpart in a config response. An empty
// endpoint means "reach via relay, not directly".
type Peer struct {
	PublicKey  string   `json:"publicKey"`
	AllowedIPs []string `json:"allowedIps"`
	Endpoint   string   `json:"endpoint"`
}

// ProxyTarget programs the site's proxy for one resource, scoped to the
// subnets of the clients authorized for it.
type ProxyTarget struct {
	ResourceID     uint     `json:"resourceId"`
	Mode           string   `json:"mode"`
	Protocol       string   `json:"protocol"`
	ListenPort     int      `json:"listenPort,omitempty"`
	Destination    string   `json:"destination,omitempty"` // host mode
	CIDR           string   `json:"cidr,omitempty"`        // cidr mode
	AllowedSubnets []string `json:"allowedSubnets"`
}

// ConfigResponse is the full payload returned to a requesting newt.
type ConfigResponse struct {
	IPAddress string        `json:"ipAddress"`
	Peers     []Peer        `json:"peers"`
	Targets   []ProxyTarget `json:"targets"`
}

// TargetConfig is the raw tcp/udp target programming for a site, a
// separate consumer from the peer configuration. Entries are formatted
// internalPort:ip:port.
type TargetConfig struct {
	TCP          []string            `json:"tcp"`
	UDP          []string            `json:"udp"`
	HealthChecks []HealthCheckTarget `json:"healthChecks,omitempty"`
}

// HealthCheckTarget describes one functioning health check. Targets with
// incomplete check rows are excluded, not defaulted.
type HealthCheckTarget struct {
	TargetID           uint              `json:"targetId"`
	Path               string            `json:"path"`
	Scheme             string            `json:"scheme,omitempty"`
	Hostname           string            `json:"hostname"`
	Port               int               `json:"port"`
	IntervalSeconds    int               `json:"intervalSeconds"`
	TimeoutSeconds     int               `json:"timeoutSeconds,omitempty"`
	Method             string            `json:"method"`
	UnhealthyThreshold int               `json:"unhealthyThreshold,omitempty"`
	HealthyThreshold   int               `json:"healthyThreshold,omitempty"`
	Headers            map[string]string `json:"headers,omitempty"`
}

// OlmConfigResponse is the payload returned to a client device asking for
// its own configuration: its address plus the sites it may reach.
type OlmConfigResponse struct {
	IPAddress string `json:"ipAddress"`
	Peers     []Peer `json:"peers"`
}

// ClientTuple is what the proxy-target generator receives per authorized
// client.
type ClientTuple struct {
	ClientID uint
	PubKey   string
	Subnet   string
}
