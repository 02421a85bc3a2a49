package model

import "time"

// SiteResource routing modes.
const (
	ResourceModeHost = "host" // route a single hostname/address through the site
	ResourceModeCIDR = "cidr" // route a whole CIDR block through the site
)

// SiteResource is a service exposed through a site, reachable by the
// clients authorized via ClientResource.
type SiteResource struct {
	ID          uint      `gorm:"primaryKey" json:"siteResourceId"`
	SiteID      uint      `gorm:"index" json:"siteId"`
	Name        string    `gorm:"size:128" json:"name"`
	Mode        string    `gorm:"size:8" json:"mode"` // host or cidr
	Protocol    string    `gorm:"size:8" json:"protocol"`
	Enabled     bool      `json:"enabled"`
	HostAddress string    `gorm:"size:128" json:"hostAddress,omitempty"` // host mode
	CIDR        string    `gorm:"size:64" json:"cidr,omitempty"`         // cidr mode
	ListenPort  int       `json:"listenPort,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Target is a concrete backend (ip:port) bound to a resource and a site.
// InternalPort is the port the site's proxy listens on for this target.
type Target struct {
	ID           uint   `gorm:"primaryKey" json:"targetId"`
	ResourceID   uint   `gorm:"index" json:"resourceId"`
	SiteID       uint   `gorm:"index" json:"siteId"`
	IP           string `gorm:"size:64" json:"ip"`
	Port         int    `json:"port"`
	InternalPort int    `json:"internalPort"`
	Enabled      bool   `json:"enabled"`
}

// TargetHealthCheck holds optional health checking for a target. Headers
// is JSON-encoded text, an array of {name,value} objects.
type TargetHealthCheck struct {
	TargetID           uint   `gorm:"primaryKey;autoIncrement:false" json:"targetId"`
	Path               string `gorm:"size:256" json:"path"`
	Scheme             string `gorm:"size:8" json:"scheme,omitempty"`
	Hostname           string `gorm:"size:128" json:"hostname"`
	Port               int    `json:"port"`
	IntervalSeconds    int    `json:"intervalSeconds"`
	TimeoutSeconds     int    `json:"timeoutSeconds,omitempty"`
	Method             string `gorm:"size:8" json:"method"`
	UnhealthyThreshold int    `json:"unhealthyThreshold,omitempty"`
	HealthyThreshold   int    `json:"healthyThreshold,omitempty"`
	Headers            string `json:"-"`
}
