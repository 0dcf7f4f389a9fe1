// Package middleware decorates snapshot stores with at-rest protections.
package middleware

import "github.com/aretw0/tagbridge/pkg/ports"

// Middleware allows wrapping a SnapshotStore to add behavior.
type Middleware func(ports.SnapshotStore) ports.SnapshotStore

// Wrap applies mws to store. The first middleware sees Save calls first.
func Wrap(store ports.SnapshotStore, mws ...Middleware) ports.SnapshotStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
