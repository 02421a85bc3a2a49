package model

import "time"

// Client is an end-user or machine device tunneling through one or more
// sites. A client without a public key or subnet is excluded from peer
// computation.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"clientId"`
	OrgID     string    `gorm:"index;size:64" json:"orgId"`
	Name      string    `gorm:"size:128" json:"name"`
	PublicKey string    `gorm:"size:64" json:"publicKey,omitempty"`
	Subnet    string    `gorm:"size:64" json:"subnet,omitempty"` // /32-bearing CIDR block
	Online    bool      `json:"online"`
	Blocked   bool      `json:"blocked"`
	Archived  bool      `json:"archived"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Usable reports whether the client can appear as a peer at all.
func (c Client) Usable() bool {
	return c.PublicKey != "" && c.Subnet != ""
}

// ClientSite is the materialized client<->site routing cache. The core
// reads it; rebuilding it belongs to whoever mutates memberships.
type ClientSite struct {
	ClientID  uint   `gorm:"primaryKey;autoIncrement:false" json:"clientId"`
	SiteID    uint   `gorm:"primaryKey;autoIncrement:false" json:"siteId"`
	IsRelayed bool   `json:"isRelayed"`
	Endpoint  string `gorm:"size:128" json:"endpoint,omitempty"` // client's punched endpoint as seen from the site
}

// ClientResource narrows ClientSite: which clients may reach a specific
// site resource.
type ClientResource struct {
	ClientID       uint `gorm:"primaryKey;autoIncrement:false" json:"clientId"`
	SiteResourceID uint `gorm:"primaryKey;autoIncrement:false" json:"siteResourceId"`
}
