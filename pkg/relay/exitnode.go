// Package relay talks to exit-node processes over their local HTTP API.
// Everything here is best effort: callers log failures and move on, they
// never block a control-plane response on a relay round trip.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"burrow/pkg/model"
)

// SideCallTimeout bounds every relay round trip. A slow relay degrades to
// a logged failure, never a stalled config response.
const SideCallTimeout = 1500 * time.Millisecond

// Request describes one call to an exit node's local API.
type Request struct {
	RemoteType string      `json:"remoteType"`
	LocalPath  string      `json:"localPath"`
	Method     string      `json:"method"`
	Data       interface{} `json:"data"`
}

// Destination is one side of a proxy mapping on the relay.
type Destination struct {
	DestinationIP   string `json:"destinationIP"`
	DestinationPort int    `json:"destinationPort"`
}

// DestinationUpdate reprograms a relay mapping from an old destination to
// a new one after a site's subnet or listen port changed.
type DestinationUpdate struct {
	OldDestination Destination `json:"oldDestination"`
	NewDestination Destination `json:"newDestination"`
}

// Notifier is the outbound interface the tunnel core consumes.
type Notifier interface {
	SendToExitNode(ctx context.Context, node model.ExitNode, req Request) error
}

// Client is the HTTP Notifier implementation.
type Client struct {
	http *http.Client
}

func NewClient() *Client {
	return &Client{http: &http.Client{Timeout: SideCallTimeout}}
}

func (c *Client) SendToExitNode(ctx context.Context, node model.ExitNode, req Request) error {
	if node.ReachableAt == "" {
		return fmt.Errorf("exit node %d has no reachable address", node.ID)
	}
	body, err := json.Marshal(req.Data)
	if err != nil {
		return err
	}
	url := strings.TrimRight(node.ReachableAt, "/") + req.LocalPath
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("exit node %d returned status %d for %s", node.ID, resp.StatusCode, req.LocalPath)
	}
	return nil
}
