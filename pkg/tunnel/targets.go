package tunnel

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"burrow/pkg/model"
)

// headerPair is the stored encoding of one health-check header.
type headerPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BuildTargetConfig fetches every enabled target for a site and partitions
// them into tcp/udp programming strings plus health-check descriptors.
// Targets missing internalPort, ip or port are dropped from both lists;
// health checks missing any required field are dropped while their target
// still ships.
func (s *Service) BuildTargetConfig(siteID uint) (TargetConfig, error) {
	details, err := s.store.ListTargetsForSite(siteID)
	if err != nil {
		return TargetConfig{}, err
	}
	cfg := TargetConfig{TCP: []string{}, UDP: []string{}}
	for _, d := range details {
		t := d.Target
		if !t.Enabled {
			continue
		}
		if t.InternalPort == 0 || t.IP == "" || t.Port == 0 {
			log.Printf("target config: skipping target %d (missing internalPort/ip/port)", t.ID)
			continue
		}
		entry := fmt.Sprintf("%d:%s:%d", t.InternalPort, t.IP, t.Port)
		switch strings.ToLower(d.Protocol) {
		case "tcp":
			cfg.TCP = append(cfg.TCP, entry)
		case "udp":
			cfg.UDP = append(cfg.UDP, entry)
		default:
			log.Printf("target config: skipping target %d (unknown protocol %q)", t.ID, d.Protocol)
			continue
		}
		if hc := healthCheckFor(d); hc != nil {
			cfg.HealthChecks = append(cfg.HealthChecks, *hc)
		}
	}
	return cfg, nil
}

// healthCheckFor validates and flattens a target's health-check row.
// path, hostname, port, interval and method are required for a functioning
// check; a header blob that fails to decode counts as a missing field.
func healthCheckFor(d model.TargetDetail) *HealthCheckTarget {
	hc := d.HealthCheck
	if hc == nil {
		return nil
	}
	if hc.Path == "" || hc.Hostname == "" || hc.Port == 0 || hc.IntervalSeconds == 0 || hc.Method == "" {
		log.Printf("target config: skipping health check for target %d (missing required field)", d.Target.ID)
		return nil
	}
	headers, err := decodeHeaders(hc.Headers)
	if err != nil {
		log.Printf("target config: skipping health check for target %d (bad header blob: %v)", d.Target.ID, err)
		return nil
	}
	return &HealthCheckTarget{
		TargetID:           d.Target.ID,
		Path:               hc.Path,
		Scheme:             hc.Scheme,
		Hostname:           hc.Hostname,
		Port:               hc.Port,
		IntervalSeconds:    hc.IntervalSeconds,
		TimeoutSeconds:     hc.TimeoutSeconds,
		Method:             hc.Method,
		UnhealthyThreshold: hc.UnhealthyThreshold,
		HealthyThreshold:   hc.HealthyThreshold,
		Headers:            headers,
	}
}

// decodeHeaders flattens the stored array-of-{name,value} JSON text into
// a name->value mapping. Empty text means no headers.
func decodeHeaders(encoded string) (map[string]string, error) {
	if encoded == "" {
		return nil, nil
	}
	var pairs []headerPair
	if err := json.Unmarshal([]byte(encoded), &pairs); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.Name == "" {
			continue
		}
		out[p.Name] = p.Value
	}
	return out, nil
}
