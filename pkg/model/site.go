package model

import "time"

// Site is a tunnel endpoint (gateway) owned by an org. Endpoint and
// PublicKey are only trustworthy while LastHolePunch is recent; stale
// sites are treated as not yet reachable.
type Site struct {
	ID            uint      `gorm:"primaryKey" json:"siteId"`
	OrgID         string    `gorm:"index;size:64" json:"orgId"`
	Name          string    `gorm:"size:128" json:"name"`
	Type          string    `gorm:"size:16" json:"type"` // newt (agent) or manual
	PublicKey     string    `gorm:"size:64" json:"publicKey"`
	Endpoint      string    `gorm:"size:128" json:"endpoint,omitempty"` // host:port, empty until hole-punched
	ListenPort    int       `json:"listenPort,omitempty"`
	Address       string    `gorm:"size:64" json:"address"` // internal interface address, CIDR form
	Subnet        string    `gorm:"size:64" json:"subnet"`  // subnet routed through this site
	ExitNodeID    *uint     `gorm:"index" json:"exitNodeId,omitempty"`
	LastHolePunch int64     `json:"lastHolePunch,omitempty"` // unix seconds
	Online        bool      `json:"online"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// HolePunchedSince reports whether the site completed a hole punch within
// the given window, evaluated against now.
func (s Site) HolePunchedSince(now time.Time, window time.Duration) bool {
	if s.LastHolePunch == 0 {
		return false
	}
	return now.Unix()-s.LastHolePunch <= int64(window.Seconds())
}
