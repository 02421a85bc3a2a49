package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"burrow/pkg/auth"
	"burrow/pkg/codes"
	"burrow/pkg/journal"
	"burrow/pkg/model"
	"burrow/pkg/store"
	"burrow/pkg/tunnel"
	"burrow/pkg/version"
)

// RegisterRoutes wires the admin HTTP handlers on the provided mux.
// token, when set, is a bootstrap credential accepted alongside user JWTs.
func RegisterRoutes(mux *http.ServeMux, st store.Store, tun *tunnel.Service, jrnl *journal.Journal, token string) {
	authed := authFunc(token)

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(version.String()))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := st.Ping(); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/sites", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodGet:
			sites, err := st.ListSites()
			if err != nil {
				http.Error(w, "failed to list sites", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, sites)
		case http.MethodPost:
			var site model.Site
			if err := json.NewDecoder(r.Body).Decode(&site); err != nil {
				http.Error(w, "invalid payload", http.StatusBadRequest)
				return
			}
			saved, err := st.SaveSite(site)
			if err != nil {
				http.Error(w, "failed to save site", http.StatusInternalServerError)
				return
			}
			log.Printf("site %d saved subnet=%s exitNode=%v", saved.ID, saved.Subnet, saved.ExitNodeID)
			writeJSON(w, http.StatusOK, saved)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Relays report completed hole punches here; a site's endpoint is
	// only trusted while these reports are fresh.
	mux.HandleFunc("/api/v1/sites/holepunch", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			SiteID   uint   `json:"siteId"`
			Endpoint string `json:"endpoint"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SiteID == 0 || req.Endpoint == "" {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		site, ok, err := st.GetSite(req.SiteID)
		if err != nil || !ok {
			http.Error(w, "site not found", http.StatusNotFound)
			return
		}
		site.Endpoint = req.Endpoint
		site.LastHolePunch = time.Now().Unix()
		if _, err := st.SaveSite(site); err != nil {
			http.Error(w, "failed to save site", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/v1/clients", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodGet:
			clients, err := st.ListClients()
			if err != nil {
				http.Error(w, "failed to list clients", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, clients)
		case http.MethodPost:
			var client model.Client
			if err := json.NewDecoder(r.Body).Decode(&client); err != nil {
				http.Error(w, "invalid payload", http.StatusBadRequest)
				return
			}
			saved, err := st.SaveClient(client)
			if err != nil {
				http.Error(w, "failed to save client", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, saved)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/clients/block", clientFlagHandler(authed, st, tun, codes.TerminatedBlocked, func(c *model.Client) { c.Blocked = true }))
	mux.HandleFunc("/api/v1/clients/unblock", clientFlagHandler(authed, st, nil, codes.Reason{}, func(c *model.Client) { c.Blocked = false }))
	mux.HandleFunc("/api/v1/clients/archive", clientFlagHandler(authed, st, tun, codes.TerminatedArchived, func(c *model.Client) { c.Archived = true }))
	mux.HandleFunc("/api/v1/clients/approve", clientFlagHandler(authed, st, nil, codes.Reason{}, func(c *model.Client) { c.Approved = true }))

	// agent connect tokens for newt (siteId) and olm (clientId) agents
	mux.HandleFunc("/api/v1/agents/token", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Kind     string `json:"kind"`
			EntityID uint   `json:"entityId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EntityID == 0 {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if req.Kind != "newt" && req.Kind != "olm" {
			http.Error(w, "kind must be newt or olm", http.StatusBadRequest)
			return
		}
		tok, err := auth.GenerateAgent(req.Kind, req.EntityID, 90*24*time.Hour)
		if err != nil {
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": tok})
	})

	mux.HandleFunc("/api/v1/exit-nodes", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodGet:
			nodes, err := st.ListExitNodes()
			if err != nil {
				http.Error(w, "failed to list exit nodes", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, nodes)
		case http.MethodPost:
			var node model.ExitNode
			if err := json.NewDecoder(r.Body).Decode(&node); err != nil {
				http.Error(w, "invalid payload", http.StatusBadRequest)
				return
			}
			saved, err := st.SaveExitNode(node)
			if err != nil {
				http.Error(w, "failed to save exit node", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, saved)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		events, err := jrnl.Recent(100)
		if err != nil {
			http.Error(w, "failed to list events", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, events)
	})
}

// clientFlagHandler mutates one client flag and, when a terminate reason
// is supplied, signals the client's live session. A client with no
// session row is reported back to the admin, not treated as a failure of
// the flag change itself.
func clientFlagHandler(authed func(*http.Request) bool, st store.Store, tun *tunnel.Service, reason codes.Reason, mutate func(*model.Client)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			ClientID uint `json:"clientId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientID == 0 {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		client, ok, err := st.GetClient(req.ClientID)
		if err != nil {
			http.Error(w, "failed to load client", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "client not found", http.StatusNotFound)
			return
		}
		mutate(&client)
		saved, err := st.SaveClient(client)
		if err != nil {
			http.Error(w, "failed to save client", http.StatusInternalServerError)
			return
		}
		resp := map[string]interface{}{"client": saved}
		if tun != nil && reason.Code != "" {
			if err := tun.SendTerminateClient(saved.ID, reason, ""); err != nil {
				log.Printf("terminate for client %d not delivered: %v", saved.ID, err)
				resp["warning"] = err.Error()
			} else {
				resp["terminated"] = true
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func authFunc(token string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		h := r.Header.Get("X-Auth-Token")
		if h == "" {
			authz := r.Header.Get("Authorization")
			if strings.HasPrefix(authz, "Bearer ") {
				h = strings.TrimPrefix(authz, "Bearer ")
			}
		}
		if token != "" && h == token {
			return true
		}
		if h == "" {
			return token == ""
		}
		_, err := auth.Parse(h)
		return err == nil
	}
}
