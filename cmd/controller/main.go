package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"burrow/pkg/api"
	"burrow/pkg/db"
	"burrow/pkg/discovery"
	"burrow/pkg/journal"
	"burrow/pkg/relay"
	"burrow/pkg/store"
	"burrow/pkg/tunnel"
	"burrow/pkg/version"
	"burrow/pkg/ws"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	token := flag.String("token", "", "bootstrap auth token (optional)")
	storeType := flag.String("store", "mysql", "store backend: mysql|memory")
	journalPath := flag.String("journal", "/var/lib/burrow/journal.db", "event journal sqlite path")
	consul := flag.Bool("consul", false, "discover exit nodes via consul (requires build tag consul)")
	consulAddr := flag.String("consul-addr", "127.0.0.1:8500", "consul address (when --consul)")
	relayBasePort := flag.Int("relay-base-port", tunnel.DefaultRelayBasePort, "client-facing base port on relays")
	tlsCert := flag.String("tls-cert", "", "TLS cert path (enables HTTPS if set with --tls-key)")
	tlsKey := flag.String("tls-key", "", "TLS key path (enables HTTPS if set with --tls-cert)")
	tlsClientCA := flag.String("tls-client-ca", "", "CA bundle for mutual TLS (optional, requires --tls-cert)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	var st store.Store
	switch *storeType {
	case "mysql":
		gdb, err := db.Init()
		if err != nil {
			log.Fatalf("mysql init failed: %v", err)
		}
		st = store.NewGormStore(gdb)
	case "memory":
		st = store.NewMemoryStore()
	default:
		log.Fatalf("unsupported store type: %s", *storeType)
	}

	jrnl, err := journal.Open(*journalPath)
	if err != nil {
		log.Printf("journal unavailable at %s: %v (events will not be recorded)", *journalPath, err)
	}
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			jrnl.Prune(7 * 24 * time.Hour)
		}
	}()

	var dir discovery.Directory = discovery.StoreDirectory{Store: st}
	if *consul {
		dir = discovery.NewConsulDirectory(*consulAddr, dir)
	}

	hub := ws.NewHub(st)
	sync := tunnel.NewHubSynchronizer(st, hub)
	tun := tunnel.NewService(st, hub, dir, relay.NewClient(), sync)
	tun.Journal = jrnl
	tun.RelayBasePort = *relayBasePort

	hub.Handle(tunnel.MsgGetConfig, tun.HandleGetConfig)
	hub.Handle(tunnel.MsgGetTargets, tun.HandleGetTargets)
	hub.Handle(tunnel.MsgOlmGetConfig, tun.HandleOlmGetConfig)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, st, tun, jrnl, *token)
	(&api.AuthHandler{Store: st}).RegisterRoutes(mux)
	mux.HandleFunc("/api/v1/ws/agent", hub.HandleAgentWS)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("%s listening on %s", version.String(), *addr)
	if *tlsCert != "" && *tlsKey != "" {
		srv.TLSConfig, err = api.ServerTLSConfig(*tlsCert, *tlsKey, *tlsClientCA)
		if err != nil {
			log.Fatalf("tls config: %v", err)
		}
		err = srv.ListenAndServeTLS("", "")
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil {
		log.Fatalf("server error: %v", err)
	}
}
