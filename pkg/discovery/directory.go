// Package discovery resolves exit nodes. The default directory reads the
// store; with the consul build tag, relay addresses can additionally be
// discovered from the consul catalog.
package discovery

import (
	"burrow/pkg/model"
	"burrow/pkg/store"
)

// Directory resolves exit nodes by id.
type Directory interface {
	ExitNode(id uint) (model.ExitNode, bool, error)
}

// StoreDirectory serves exit nodes straight from the store.
type StoreDirectory struct {
	Store store.Store
}

func (d StoreDirectory) ExitNode(id uint) (model.ExitNode, bool, error) {
	return d.Store.GetExitNode(id)
}
