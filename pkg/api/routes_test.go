package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"burrow/pkg/auth"
	"burrow/pkg/model"
	"burrow/pkg/store"
	"burrow/pkg/tunnel"
	"burrow/pkg/ws"
)

type recordedSend struct {
	SessionID string
	Msg       ws.Message
}

type stubRegistry struct {
	mu   sync.Mutex
	sent []recordedSend
}

func (s *stubRegistry) SendToClient(sessionID string, msg ws.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, recordedSend{SessionID: sessionID, Msg: msg})
}

func (s *stubRegistry) all() []recordedSend {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]recordedSend, len(s.sent))
	copy(out, s.sent)
	return out
}

type storeNodes struct{ st store.Store }

func (d storeNodes) ExitNode(id uint) (model.ExitNode, bool, error) { return d.st.GetExitNode(id) }

type apiFixture struct {
	store    *store.MemoryStore
	registry *stubRegistry
	srv      *httptest.Server
}

func newAPIFixture(t *testing.T, token string) *apiFixture {
	t.Helper()
	st := store.NewMemoryStore()
	reg := &stubRegistry{}
	tun := tunnel.NewService(st, reg, storeNodes{st}, nil, nil)
	mux := http.NewServeMux()
	RegisterRoutes(mux, st, tun, nil, token)
	(&AuthHandler{Store: st}).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &apiFixture{store: st, registry: reg, srv: srv}
}

func (f *apiFixture) post(t *testing.T, path, token string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+path, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if token != "" {
		req.Header.Set("X-Auth-Token", token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHolepunchUpdatesEndpointAndFreshness(t *testing.T) {
	f := newAPIFixture(t, "tok")
	site, _ := f.store.SaveSite(model.Site{Name: "edge", Endpoint: "old:51820"})

	before := time.Now().Unix()
	resp := f.post(t, "/api/v1/sites/holepunch", "tok", map[string]interface{}{
		"siteId": site.ID, "endpoint": "5.5.5.5:51820",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	got, _, _ := f.store.GetSite(site.ID)
	if got.Endpoint != "5.5.5.5:51820" {
		t.Errorf("endpoint = %q", got.Endpoint)
	}
	if got.LastHolePunch < before {
		t.Errorf("lastHolePunch = %d, want >= %d", got.LastHolePunch, before)
	}
}

func TestHolepunchRejectsBadPayload(t *testing.T) {
	f := newAPIFixture(t, "tok")
	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"missing site", map[string]interface{}{"endpoint": "1.2.3.4:1"}, http.StatusBadRequest},
		{"missing endpoint", map[string]interface{}{"siteId": 1}, http.StatusBadRequest},
		{"unknown site", map[string]interface{}{"siteId": 999, "endpoint": "1.2.3.4:1"}, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if resp := f.post(t, "/api/v1/sites/holepunch", "tok", tc.body); resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestBlockClientTerminatesLiveSession(t *testing.T) {
	f := newAPIFixture(t, "tok")
	client, _ := f.store.SaveClient(model.Client{Name: "laptop", Approved: true})
	if err := f.store.SaveOlmSession(model.OlmSession{SessionID: "olm-1-x", ClientID: client.ID}); err != nil {
		t.Fatalf("session: %v", err)
	}

	resp := f.post(t, "/api/v1/clients/block", "tok", map[string]interface{}{"clientId": client.ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Terminated bool   `json:"terminated"`
		Warning    string `json:"warning"`
	}
	decode(t, resp, &body)
	if !body.Terminated || body.Warning != "" {
		t.Errorf("body = %+v", body)
	}

	got, _, _ := f.store.GetClient(client.ID)
	if !got.Blocked {
		t.Error("client not blocked")
	}
	sent := f.registry.all()
	if len(sent) != 1 || sent[0].SessionID != "olm-1-x" || sent[0].Msg.Type != tunnel.MsgTerminate {
		t.Fatalf("sent = %+v", sent)
	}
}

func TestBlockClientWithoutSessionWarnsButBlocks(t *testing.T) {
	f := newAPIFixture(t, "tok")
	client, _ := f.store.SaveClient(model.Client{Name: "laptop", Approved: true})

	resp := f.post(t, "/api/v1/clients/block", "tok", map[string]interface{}{"clientId": client.ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Terminated bool   `json:"terminated"`
		Warning    string `json:"warning"`
	}
	decode(t, resp, &body)
	if body.Terminated || body.Warning == "" {
		t.Errorf("body = %+v", body)
	}
	got, _, _ := f.store.GetClient(client.ID)
	if !got.Blocked {
		t.Error("flag change must land even when terminate cannot be delivered")
	}
	if sent := f.registry.all(); len(sent) != 0 {
		t.Errorf("unexpected sends: %+v", sent)
	}
}

func TestUnblockDoesNotTerminate(t *testing.T) {
	f := newAPIFixture(t, "tok")
	client, _ := f.store.SaveClient(model.Client{Name: "laptop", Blocked: true})
	f.store.SaveOlmSession(model.OlmSession{SessionID: "olm-1-x", ClientID: client.ID})

	resp := f.post(t, "/api/v1/clients/unblock", "tok", map[string]interface{}{"clientId": client.ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got, _, _ := f.store.GetClient(client.ID)
	if got.Blocked {
		t.Error("client still blocked")
	}
	if sent := f.registry.all(); len(sent) != 0 {
		t.Errorf("unblock must not signal the session: %+v", sent)
	}
}

func TestRoutesRequireAuth(t *testing.T) {
	f := newAPIFixture(t, "tok")
	for _, path := range []string{"/api/v1/sites/holepunch", "/api/v1/clients/block", "/api/v1/agents/token"} {
		if resp := f.post(t, path, "", map[string]interface{}{}); resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s without token: status = %d", path, resp.StatusCode)
		}
	}
}

func TestAgentTokenEndpoint(t *testing.T) {
	f := newAPIFixture(t, "tok")

	resp := f.post(t, "/api/v1/agents/token", "tok", map[string]interface{}{"kind": "newt", "entityId": 5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	decode(t, resp, &body)
	claims, err := auth.ParseAgent(body.Token)
	if err != nil {
		t.Fatalf("minted token invalid: %v", err)
	}
	if claims.Kind != "newt" || claims.EntityID != 5 {
		t.Errorf("claims = %+v", claims)
	}

	if resp := f.post(t, "/api/v1/agents/token", "tok", map[string]interface{}{"kind": "ferret", "entityId": 5}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad kind: status = %d", resp.StatusCode)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newAPIFixture(t, "tok")

	resp := f.post(t, "/api/v1/auth/register", "", map[string]string{"username": "admin", "password": "hunter2"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	var reg struct {
		Token string `json:"token"`
	}
	decode(t, resp, &reg)
	if _, err := auth.Parse(reg.Token); err != nil {
		t.Fatalf("register token invalid: %v", err)
	}

	// only the first user may register
	if resp := f.post(t, "/api/v1/auth/register", "", map[string]string{"username": "eve", "password": "x"}); resp.StatusCode != http.StatusForbidden {
		t.Errorf("second register status = %d", resp.StatusCode)
	}

	resp = f.post(t, "/api/v1/auth/login", "", map[string]string{"username": "admin", "password": "hunter2"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var login struct {
		Token string `json:"token"`
	}
	decode(t, resp, &login)
	claims, err := auth.Parse(login.Token)
	if err != nil || claims.Username != "admin" {
		t.Errorf("login claims = %+v err = %v", claims, err)
	}

	user, _, _ := f.store.GetUserByUsername("admin")
	if user.LastLoginAt == nil {
		t.Error("login timestamp not recorded")
	}

	if resp := f.post(t, "/api/v1/auth/login", "", map[string]string{"username": "admin", "password": "wrong"}); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password status = %d", resp.StatusCode)
	}

	// a user JWT is accepted by the admin routes alongside the static token
	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/api/v1/clients", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	authResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer authResp.Body.Close()
	if authResp.StatusCode != http.StatusOK {
		t.Errorf("jwt-authed list status = %d", authResp.StatusCode)
	}
}
