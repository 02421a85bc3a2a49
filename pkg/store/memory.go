package store

import (
	"sort"
	"sync"

	"burrow/pkg/model"
)

// MemoryStore is a simple in-memory implementation, intended for dev/demo
// and tests.
type MemoryStore struct {
	mu              sync.RWMutex
	sites           map[uint]model.Site
	clients         map[uint]model.Client
	clientSites     map[uint]map[uint]model.ClientSite // siteID -> clientID -> assoc
	resources       map[uint]model.SiteResource
	clientResources map[uint]map[uint]struct{} // resourceID -> clientID set
	targets         map[uint]model.Target
	healthChecks    map[uint]model.TargetHealthCheck // by target id
	exitNodes       map[uint]model.ExitNode
	newtSessions    map[string]model.NewtSession
	olmSessions     map[string]model.OlmSession
	users           map[uint]model.User
	nextID          uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sites:           map[uint]model.Site{},
		clients:         map[uint]model.Client{},
		clientSites:     map[uint]map[uint]model.ClientSite{},
		resources:       map[uint]model.SiteResource{},
		clientResources: map[uint]map[uint]struct{}{},
		targets:         map[uint]model.Target{},
		healthChecks:    map[uint]model.TargetHealthCheck{},
		exitNodes:       map[uint]model.ExitNode{},
		newtSessions:    map[string]model.NewtSession{},
		olmSessions:     map[string]model.OlmSession{},
		users:           map[uint]model.User{},
	}
}

func (m *MemoryStore) allocID() uint {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) GetSite(id uint) (model.Site, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sites[id]
	return s, ok, nil
}

func (m *MemoryStore) SaveSite(s model.Site) (model.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.allocID()
	}
	m.sites[s.ID] = s
	return s, nil
}

func (m *MemoryStore) ListSites() ([]model.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Site, 0, len(m.sites))
	for _, s := range m.sites {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateSiteKey(id uint, publicKey string, listenPort int) (model.Site, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sites[id]
	if !ok {
		return model.Site{}, false, nil
	}
	s.PublicKey = publicKey
	s.ListenPort = listenPort
	m.sites[id] = s
	return s, true, nil
}

func (m *MemoryStore) GetClient(id uint) (model.Client, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	return c, ok, nil
}

func (m *MemoryStore) SaveClient(c model.Client) (model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		c.ID = m.allocID()
	}
	m.clients[c.ID] = c
	return c, nil
}

func (m *MemoryStore) ListClients() ([]model.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SaveClientSite(cs model.ClientSite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clientSites[cs.SiteID] == nil {
		m.clientSites[cs.SiteID] = map[uint]model.ClientSite{}
	}
	m.clientSites[cs.SiteID][cs.ClientID] = cs
	return nil
}

func (m *MemoryStore) ListClientsForSite(siteID uint) ([]model.SiteClient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.SiteClient
	for clientID, assoc := range m.clientSites[siteID] {
		c, ok := m.clients[clientID]
		if !ok {
			continue
		}
		out = append(out, model.SiteClient{Client: c, IsRelayed: assoc.IsRelayed, Endpoint: assoc.Endpoint})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Client.ID < out[j].Client.ID })
	return out, nil
}

func (m *MemoryStore) ListSitesForClient(clientID uint) ([]model.ClientSiteView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.ClientSiteView
	for siteID, assocs := range m.clientSites {
		assoc, ok := assocs[clientID]
		if !ok {
			continue
		}
		site, ok := m.sites[siteID]
		if !ok {
			continue
		}
		out = append(out, model.ClientSiteView{Site: site, IsRelayed: assoc.IsRelayed})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Site.ID < out[j].Site.ID })
	return out, nil
}

func (m *MemoryStore) SaveSiteResource(r model.SiteResource) (model.SiteResource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.allocID()
	}
	m.resources[r.ID] = r
	return r, nil
}

func (m *MemoryStore) ListSiteResources(siteID uint) ([]model.SiteResource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.SiteResource
	for _, r := range m.resources {
		if r.SiteID == siteID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SaveClientResource(cr model.ClientResource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clientResources[cr.SiteResourceID] == nil {
		m.clientResources[cr.SiteResourceID] = map[uint]struct{}{}
	}
	m.clientResources[cr.SiteResourceID][cr.ClientID] = struct{}{}
	return nil
}

func (m *MemoryStore) ListClientsForResource(resourceID uint) ([]model.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Client
	for clientID := range m.clientResources[resourceID] {
		if c, ok := m.clients[clientID]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SaveTarget(t model.Target) (model.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == 0 {
		t.ID = m.allocID()
	}
	m.targets[t.ID] = t
	return t, nil
}

func (m *MemoryStore) SaveTargetHealthCheck(hc model.TargetHealthCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthChecks[hc.TargetID] = hc
	return nil
}

func (m *MemoryStore) ListTargetsForSite(siteID uint) ([]model.TargetDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.TargetDetail
	for _, t := range m.targets {
		if t.SiteID != siteID {
			continue
		}
		d := model.TargetDetail{Target: t}
		if r, ok := m.resources[t.ResourceID]; ok {
			d.Protocol = r.Protocol
		}
		if hc, ok := m.healthChecks[t.ID]; ok {
			c := hc
			d.HealthCheck = &c
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target.ID < out[j].Target.ID })
	return out, nil
}

func (m *MemoryStore) GetExitNode(id uint) (model.ExitNode, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.exitNodes[id]
	return n, ok, nil
}

func (m *MemoryStore) SaveExitNode(n model.ExitNode) (model.ExitNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == 0 {
		n.ID = m.allocID()
	}
	m.exitNodes[n.ID] = n
	return n, nil
}

func (m *MemoryStore) ListExitNodes() ([]model.ExitNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.ExitNode, 0, len(m.exitNodes))
	for _, n := range m.exitNodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SaveNewtSession(s model.NewtSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.newtSessions {
		if existing.SiteID == s.SiteID {
			delete(m.newtSessions, id)
		}
	}
	m.newtSessions[s.SessionID] = s
	return nil
}

func (m *MemoryStore) DeleteNewtSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.newtSessions, sessionID)
	return nil
}

func (m *MemoryStore) SaveOlmSession(s model.OlmSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.olmSessions {
		if existing.ClientID == s.ClientID {
			delete(m.olmSessions, id)
		}
	}
	m.olmSessions[s.SessionID] = s
	return nil
}

func (m *MemoryStore) DeleteOlmSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.olmSessions, sessionID)
	return nil
}

func (m *MemoryStore) GetOlmSessionByClient(clientID uint) (model.OlmSession, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.olmSessions {
		if s.ClientID == clientID {
			return s, true, nil
		}
	}
	return model.OlmSession{}, false, nil
}

func (m *MemoryStore) CreateUser(u model.User) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.allocID()
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *MemoryStore) SaveUser(u model.User) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.allocID()
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *MemoryStore) GetUserByUsername(username string) (model.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, true, nil
		}
	}
	return model.User{}, false, nil
}

func (m *MemoryStore) CountUsers() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

// Ping reports readiness for health/info endpoints.
func (m *MemoryStore) Ping() error { return nil }
