package model

import "time"

// ExitNode is a relay used when a client cannot reach a site's endpoint
// directly. ReachableAt is the relay's local HTTP API for destination
// reprogramming.
type ExitNode struct {
	ID          uint      `gorm:"primaryKey" json:"exitNodeId"`
	Name        string    `gorm:"size:128" json:"name"`
	Endpoint    string    `gorm:"size:128" json:"endpoint"` // ip or host the relay listens on
	ListenPort  int       `json:"listenPort"`
	PublicKey   string    `gorm:"size:64" json:"publicKey"`
	Address     string    `gorm:"size:64" json:"address"` // internal address, CIDR form
	ReachableAt string    `gorm:"size:256" json:"reachableAt,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
