package store

import "burrow/pkg/model"

// Store defines the persistence layer for control-plane state. Backed by
// MySQL in production; the memory implementation serves dev and tests.
type Store interface {
	// sites
	GetSite(id uint) (model.Site, bool, error)
	SaveSite(model.Site) (model.Site, error)
	ListSites() ([]model.Site, error)
	// UpdateSiteKey persists the key/port a newt reported on its config
	// request. Idempotent; the bool reports whether the row existed.
	UpdateSiteKey(id uint, publicKey string, listenPort int) (model.Site, bool, error)

	// clients and caches
	GetClient(id uint) (model.Client, bool, error)
	SaveClient(model.Client) (model.Client, error)
	ListClients() ([]model.Client, error)
	SaveClientSite(model.ClientSite) error
	ListClientsForSite(siteID uint) ([]model.SiteClient, error)
	ListSitesForClient(clientID uint) ([]model.ClientSiteView, error)

	// resources and targets
	SaveSiteResource(model.SiteResource) (model.SiteResource, error)
	ListSiteResources(siteID uint) ([]model.SiteResource, error)
	SaveClientResource(model.ClientResource) error
	ListClientsForResource(resourceID uint) ([]model.Client, error)
	SaveTarget(model.Target) (model.Target, error)
	SaveTargetHealthCheck(model.TargetHealthCheck) error
	ListTargetsForSite(siteID uint) ([]model.TargetDetail, error)

	// exit nodes
	GetExitNode(id uint) (model.ExitNode, bool, error)
	SaveExitNode(model.ExitNode) (model.ExitNode, error)
	ListExitNodes() ([]model.ExitNode, error)

	// agent sessions; Save replaces any prior session for the same entity
	SaveNewtSession(model.NewtSession) error
	DeleteNewtSession(sessionID string) error
	SaveOlmSession(model.OlmSession) error
	DeleteOlmSession(sessionID string) error
	GetOlmSessionByClient(clientID uint) (model.OlmSession, bool, error)

	// admin users
	CreateUser(model.User) (model.User, error)
	SaveUser(model.User) (model.User, error)
	GetUserByUsername(username string) (model.User, bool, error)
	CountUsers() (int64, error)

	Ping() error
}
