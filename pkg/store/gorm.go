package store

import (
	"errors"

	"gorm.io/gorm"

	"burrow/pkg/model"
)

// GormStore is the MySQL-backed Store implementation.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (g *GormStore) GetSite(id uint) (model.Site, bool, error) {
	var s model.Site
	err := g.db.First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Site{}, false, nil
	}
	return s, err == nil, err
}

func (g *GormStore) SaveSite(s model.Site) (model.Site, error) {
	err := g.db.Save(&s).Error
	return s, err
}

func (g *GormStore) ListSites() ([]model.Site, error) {
	var out []model.Site
	err := g.db.Order("id").Find(&out).Error
	return out, err
}

func (g *GormStore) UpdateSiteKey(id uint, publicKey string, listenPort int) (model.Site, bool, error) {
	tx := g.db.Model(&model.Site{}).Where("id = ?", id).
		Updates(map[string]interface{}{"public_key": publicKey, "listen_port": listenPort})
	if tx.Error != nil {
		return model.Site{}, false, tx.Error
	}
	// RowsAffected is 0 both for a missing row and for a no-change update,
	// so re-read rather than trust it.
	return g.GetSite(id)
}

func (g *GormStore) GetClient(id uint) (model.Client, bool, error) {
	var c model.Client
	err := g.db.First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Client{}, false, nil
	}
	return c, err == nil, err
}

func (g *GormStore) SaveClient(c model.Client) (model.Client, error) {
	err := g.db.Save(&c).Error
	return c, err
}

func (g *GormStore) ListClients() ([]model.Client, error) {
	var out []model.Client
	err := g.db.Order("id").Find(&out).Error
	return out, err
}

func (g *GormStore) SaveClientSite(cs model.ClientSite) error {
	if err := g.db.Where("client_id = ? AND site_id = ?", cs.ClientID, cs.SiteID).
		Delete(&model.ClientSite{}).Error; err != nil {
		return err
	}
	return g.db.Create(&cs).Error
}

func (g *GormStore) ListClientsForSite(siteID uint) ([]model.SiteClient, error) {
	var assocs []model.ClientSite
	if err := g.db.Where("site_id = ?", siteID).Find(&assocs).Error; err != nil {
		return nil, err
	}
	if len(assocs) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(assocs))
	for _, a := range assocs {
		ids = append(ids, a.ClientID)
	}
	var clients []model.Client
	if err := g.db.Where("id IN ?", ids).Find(&clients).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Client, len(clients))
	for _, c := range clients {
		byID[c.ID] = c
	}
	out := make([]model.SiteClient, 0, len(assocs))
	for _, a := range assocs {
		c, ok := byID[a.ClientID]
		if !ok {
			continue
		}
		out = append(out, model.SiteClient{Client: c, IsRelayed: a.IsRelayed, Endpoint: a.Endpoint})
	}
	return out, nil
}

func (g *GormStore) ListSitesForClient(clientID uint) ([]model.ClientSiteView, error) {
	var assocs []model.ClientSite
	if err := g.db.Where("client_id = ?", clientID).Find(&assocs).Error; err != nil {
		return nil, err
	}
	if len(assocs) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(assocs))
	for _, a := range assocs {
		ids = append(ids, a.SiteID)
	}
	var sites []model.Site
	if err := g.db.Where("id IN ?", ids).Order("id").Find(&sites).Error; err != nil {
		return nil, err
	}
	relayed := make(map[uint]bool, len(assocs))
	for _, a := range assocs {
		relayed[a.SiteID] = a.IsRelayed
	}
	out := make([]model.ClientSiteView, 0, len(sites))
	for _, s := range sites {
		out = append(out, model.ClientSiteView{Site: s, IsRelayed: relayed[s.ID]})
	}
	return out, nil
}

func (g *GormStore) SaveSiteResource(r model.SiteResource) (model.SiteResource, error) {
	err := g.db.Save(&r).Error
	return r, err
}

func (g *GormStore) ListSiteResources(siteID uint) ([]model.SiteResource, error) {
	var out []model.SiteResource
	err := g.db.Where("site_id = ?", siteID).Order("id").Find(&out).Error
	return out, err
}

func (g *GormStore) SaveClientResource(cr model.ClientResource) error {
	if err := g.db.Where("client_id = ? AND site_resource_id = ?", cr.ClientID, cr.SiteResourceID).
		Delete(&model.ClientResource{}).Error; err != nil {
		return err
	}
	return g.db.Create(&cr).Error
}

func (g *GormStore) ListClientsForResource(resourceID uint) ([]model.Client, error) {
	var assocs []model.ClientResource
	if err := g.db.Where("site_resource_id = ?", resourceID).Find(&assocs).Error; err != nil {
		return nil, err
	}
	if len(assocs) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(assocs))
	for _, a := range assocs {
		ids = append(ids, a.ClientID)
	}
	var out []model.Client
	err := g.db.Where("id IN ?", ids).Order("id").Find(&out).Error
	return out, err
}

func (g *GormStore) SaveTarget(t model.Target) (model.Target, error) {
	err := g.db.Save(&t).Error
	return t, err
}

func (g *GormStore) SaveTargetHealthCheck(hc model.TargetHealthCheck) error {
	return g.db.Save(&hc).Error
}

func (g *GormStore) ListTargetsForSite(siteID uint) ([]model.TargetDetail, error) {
	var targets []model.Target
	if err := g.db.Where("site_id = ?", siteID).Order("id").Find(&targets).Error; err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}
	resourceIDs := make([]uint, 0, len(targets))
	targetIDs := make([]uint, 0, len(targets))
	for _, t := range targets {
		resourceIDs = append(resourceIDs, t.ResourceID)
		targetIDs = append(targetIDs, t.ID)
	}
	var resources []model.SiteResource
	if err := g.db.Where("id IN ?", resourceIDs).Find(&resources).Error; err != nil {
		return nil, err
	}
	protoByResource := make(map[uint]string, len(resources))
	for _, r := range resources {
		protoByResource[r.ID] = r.Protocol
	}
	var checks []model.TargetHealthCheck
	if err := g.db.Where("target_id IN ?", targetIDs).Find(&checks).Error; err != nil {
		return nil, err
	}
	checkByTarget := make(map[uint]model.TargetHealthCheck, len(checks))
	for _, hc := range checks {
		checkByTarget[hc.TargetID] = hc
	}
	out := make([]model.TargetDetail, 0, len(targets))
	for _, t := range targets {
		d := model.TargetDetail{Target: t, Protocol: protoByResource[t.ResourceID]}
		if hc, ok := checkByTarget[t.ID]; ok {
			c := hc
			d.HealthCheck = &c
		}
		out = append(out, d)
	}
	return out, nil
}

func (g *GormStore) GetExitNode(id uint) (model.ExitNode, bool, error) {
	var n model.ExitNode
	err := g.db.First(&n, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ExitNode{}, false, nil
	}
	return n, err == nil, err
}

func (g *GormStore) SaveExitNode(n model.ExitNode) (model.ExitNode, error) {
	err := g.db.Save(&n).Error
	return n, err
}

func (g *GormStore) ListExitNodes() ([]model.ExitNode, error) {
	var out []model.ExitNode
	err := g.db.Order("id").Find(&out).Error
	return out, err
}

func (g *GormStore) SaveNewtSession(s model.NewtSession) error {
	if err := g.db.Where("site_id = ?", s.SiteID).Delete(&model.NewtSession{}).Error; err != nil {
		return err
	}
	return g.db.Create(&s).Error
}

func (g *GormStore) DeleteNewtSession(sessionID string) error {
	return g.db.Delete(&model.NewtSession{}, "session_id = ?", sessionID).Error
}

func (g *GormStore) SaveOlmSession(s model.OlmSession) error {
	if err := g.db.Where("client_id = ?", s.ClientID).Delete(&model.OlmSession{}).Error; err != nil {
		return err
	}
	return g.db.Create(&s).Error
}

func (g *GormStore) DeleteOlmSession(sessionID string) error {
	return g.db.Delete(&model.OlmSession{}, "session_id = ?", sessionID).Error
}

func (g *GormStore) GetOlmSessionByClient(clientID uint) (model.OlmSession, bool, error) {
	var s model.OlmSession
	err := g.db.Where("client_id = ?", clientID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.OlmSession{}, false, nil
	}
	return s, err == nil, err
}

func (g *GormStore) CreateUser(u model.User) (model.User, error) {
	err := g.db.Create(&u).Error
	return u, err
}

func (g *GormStore) SaveUser(u model.User) (model.User, error) {
	err := g.db.Save(&u).Error
	return u, err
}

func (g *GormStore) GetUserByUsername(username string) (model.User, bool, error) {
	var u model.User
	err := g.db.Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, false, nil
	}
	return u, err == nil, err
}

func (g *GormStore) CountUsers() (int64, error) {
	var count int64
	err := g.db.Model(&model.User{}).Count(&count).Error
	return count, err
}

func (g *GormStore) Ping() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
