// The newt agent runs on a site gateway: it keeps a websocket session to
// the controller, polls for its tunnel configuration, and renders the
// received peers to a wg-quick config file.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"burrow/pkg/tunnel"
	"burrow/pkg/wireguard"
	"burrow/pkg/ws"
)

type agent struct {
	mu         sync.Mutex
	conn       *websocket.Conn
	endpoint   string
	token      string
	publicKey  string
	listenPort int
	iface      string
	outPath    string
	interval   time.Duration
}

func main() {
	controller := flag.String("controller", "http://127.0.0.1:8080", "controller base URL")
	token := flag.String("token", "", "agent connect token (required)")
	keyFile := flag.String("key-file", "/etc/burrow/newt.key", "wireguard private key path (generated if absent)")
	listenPort := flag.Int("listen-port", 51820, "local wireguard listen port")
	iface := flag.String("iface", "wg0", "wireguard interface name")
	out := flag.String("out", "/etc/wireguard/wg0.conf", "rendered config path")
	interval := flag.Duration("interval", 3*time.Second, "config poll interval")
	flag.Parse()
	if *token == "" {
		log.Fatal("--token is required")
	}

	priv, err := loadOrCreateKey(*keyFile)
	if err != nil {
		log.Fatalf("key setup failed: %v", err)
	}

	u, err := url.Parse(*controller)
	if err != nil {
		log.Fatalf("bad controller url: %v", err)
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/api/v1/ws/agent"

	a := &agent{
		endpoint:   u.String(),
		token:      *token,
		publicKey:  priv.PublicKey().String(),
		listenPort: *listenPort,
		iface:      *iface,
		outPath:    *out,
		interval:   *interval,
	}
	a.loop(priv.String())
}

func loadOrCreateKey(path string) (wgtypes.Key, error) {
	if b, err := os.ReadFile(path); err == nil {
		return wgtypes.ParseKey(string(b))
	}
	priv, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return wgtypes.Key{}, err
	}
	if err := os.WriteFile(path, []byte(priv.String()), 0o600); err != nil {
		return wgtypes.Key{}, err
	}
	return priv, nil
}

func (a *agent) loop(privateKey string) {
	for {
		header := http.Header{}
		header.Set("Authorization", "Bearer "+a.token)
		conn, resp, err := websocket.DefaultDialer.Dial(a.endpoint, header)
		if err != nil {
			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			log.Printf("ws dial failed: %v (url=%s status=%d)", err, a.endpoint, status)
			time.Sleep(5 * time.Second)
			continue
		}
		a.mu.Lock()
		a.conn = conn
		a.mu.Unlock()
		log.Printf("connected to controller url=%s", a.endpoint)

		stop := make(chan struct{})
		go a.pollLoop(stop)
		a.readLoop(conn, privateKey)
		close(stop)
		log.Printf("disconnected, retrying in 5s")
		time.Sleep(5 * time.Second)
	}
}

// pollLoop requests config every interval; the controller drops requests
// it cannot serve yet, so polling doubles as the retry path.
func (a *agent) pollLoop(stop chan struct{}) {
	t := time.NewTicker(a.interval)
	defer t.Stop()
	a.requestConfig()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			a.requestConfig()
		}
	}
}

func (a *agent) requestConfig() {
	a.send(ws.Message{Type: tunnel.MsgGetConfig, Data: tunnel.GetConfigRequest{
		PublicKey: a.publicKey,
		Port:      a.listenPort,
	}})
	a.send(ws.Message{Type: tunnel.MsgGetTargets})
}

func (a *agent) send(msg ws.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return
	}
	if err := a.conn.WriteJSON(msg); err != nil {
		log.Printf("ws send failed: %v", err)
	}
}

func (a *agent) readLoop(conn *websocket.Conn, privateKey string) {
	for {
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case tunnel.MsgReceiveConfig:
			var cfg tunnel.ConfigResponse
			if err := json.Unmarshal(msg.Data, &cfg); err != nil {
				log.Printf("bad config payload: %v", err)
				continue
			}
			a.applyConfig(cfg, privateKey)
		case tunnel.MsgReceiveTargets:
			var targets tunnel.TargetConfig
			if err := json.Unmarshal(msg.Data, &targets); err != nil {
				log.Printf("bad target payload: %v", err)
				continue
			}
			log.Printf("received targets tcp=%d udp=%d healthChecks=%d", len(targets.TCP), len(targets.UDP), len(targets.HealthChecks))
		case tunnel.MsgTerminate:
			log.Printf("terminated by controller: %s", string(msg.Data))
			os.Exit(0)
		case tunnel.MsgError:
			log.Printf("controller error: %s", string(msg.Data))
		}
	}
}

func (a *agent) applyConfig(cfg tunnel.ConfigResponse, privateKey string) {
	rendered := wireguard.RenderConfig(a.iface, cfg, privateKey, a.listenPort)
	if err := os.WriteFile(a.outPath, []byte(rendered), 0o600); err != nil {
		log.Printf("config write failed: %v", err)
		return
	}
	log.Printf("config applied peers=%d targets=%d", len(cfg.Peers), len(cfg.Targets))
}
