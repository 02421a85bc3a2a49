package model

import "time"

// NewtSession maps a connected site agent session to its site.
type NewtSession struct {
	SessionID   string    `gorm:"primaryKey;size:64" json:"sessionId"`
	SiteID      uint      `gorm:"index" json:"siteId"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// OlmSession maps a connected client device session to its client.
type OlmSession struct {
	SessionID   string    `gorm:"primaryKey;size:64" json:"sessionId"`
	ClientID    uint      `gorm:"index" json:"clientId"`
	ConnectedAt time.Time `json:"connectedAt"`
}
