package ws

import "encoding/json"

// Message is the envelope exchanged with agent sessions.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// inbound mirrors Message but defers payload decoding to the handler.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Session identifies a connected agent. Exactly one of SiteID/ClientID is
// set depending on Kind.
type Session struct {
	ID       string
	Kind     string // newt or olm
	SiteID   uint
	ClientID uint
}

const (
	KindNewt = "newt"
	KindOlm  = "olm"
)

// Handler consumes one inbound message from a session. Handlers decode
// Data themselves and reply (if at all) via the hub.
type Handler func(sess Session, data json.RawMessage)
