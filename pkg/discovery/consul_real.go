//go:build consul

package discovery

import (
	"fmt"
	"log"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"

	"burrow/pkg/model"
)

// ServiceName is the consul catalog service exit nodes register under.
const ServiceName = "burrow-exit-node"

// ConsulDirectory fills in relay reachability from the consul catalog,
// falling back to whatever the store recorded.
type ConsulDirectory struct {
	cli      *consulapi.Client
	fallback Directory
}

// NewConsulDirectory creates a consul-backed directory (requires build
// tag consul).
func NewConsulDirectory(addr string, fallback Directory) Directory {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	cli, err := consulapi.NewClient(cfg)
	if err != nil {
		log.Printf("consul client unavailable (addr=%s): %v; using store directory", addr, err)
		return fallback
	}
	return &ConsulDirectory{cli: cli, fallback: fallback}
}

func (d *ConsulDirectory) ExitNode(id uint) (model.ExitNode, bool, error) {
	node, ok, err := d.fallback.ExitNode(id)
	if err != nil || !ok {
		return node, ok, err
	}
	if node.ReachableAt != "" {
		return node, true, nil
	}
	services, _, err := d.cli.Catalog().Service(ServiceName, "", nil)
	if err != nil {
		log.Printf("consul exit-node lookup failed for %d: %v", id, err)
		return node, true, nil
	}
	want := strconv.FormatUint(uint64(id), 10)
	for _, svc := range services {
		if svc.ServiceMeta["exitNodeId"] != want {
			continue
		}
		addr := svc.ServiceAddress
		if addr == "" {
			addr = svc.Address
		}
		node.ReachableAt = fmt.Sprintf("http://%s:%d", addr, svc.ServicePort)
		break
	}
	return node, true, nil
}
