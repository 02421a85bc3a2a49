package model

// SiteClient joins a client row with its per-site association flags from
// the ClientSite cache.
type SiteClient struct {
	Client    Client `json:"client"`
	IsRelayed bool   `json:"isRelayed"`
	Endpoint  string `json:"endpoint,omitempty"`
}

// ClientSiteView joins a site row with the client's association flags;
// the inverse direction of SiteClient.
type ClientSiteView struct {
	Site      Site `json:"site"`
	IsRelayed bool `json:"isRelayed"`
}

// TargetDetail joins a target with the owning resource's protocol and the
// optional health-check row.
type TargetDetail struct {
	Target      Target             `json:"target"`
	Protocol    string             `json:"protocol"`
	HealthCheck *TargetHealthCheck `json:"healthCheck,omitempty"`
}
