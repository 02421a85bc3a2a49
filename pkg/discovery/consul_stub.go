//go:build !consul

package discovery

import (
	"log"
)

// NewConsulDirectory returns the fallback directory when the consul build
// tag is not enabled.
func NewConsulDirectory(addr string, fallback Directory) Directory {
	log.Printf("consul discovery requested (addr=%s) but consul build tag not enabled; using store directory", addr)
	return fallback
}
