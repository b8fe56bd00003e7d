package rooms

import (
	"context"
	"sync"
)

// Index maps friendly names to provisioned rooms so a room is created at most
// once per name even when the provider listing is stale.
type Index interface {
	// Get returns the room for a friendly name, or nil when unknown.
	Get(ctx context.Context, friendlyName string) (*Room, error)
	// Upsert records the mapping and returns the row that won. When two
	// writers race, both end up with the same room.
	Upsert(ctx context.Context, room Room) (Room, error)
}

// Registry resolves a friendly name to exactly one provider room.
type Registry struct {
	provider Provider
	index    Index

	mu    sync.Mutex
	names map[string]*sync.Mutex
}

// NewRegistry creates a registry over a provider and a local index.
func NewRegistry(provider Provider, index Index) *Registry {
	return &Registry{
		provider: provider,
		index:    index,
		names:    make(map[string]*sync.Mutex),
	}
}

// ResolveOrCreate returns the room with the given friendly name, creating it
// on the provider if it does not exist yet. Concurrent calls for the same name
// are serialized so only one create can be in flight per name.
func (r *Registry) ResolveOrCreate(ctx context.Context, friendlyName string) (Room, error) {
	lock := r.nameLock(friendlyName)
	lock.Lock()
	defer lock.Unlock()

	if known, err := r.index.Get(ctx, friendlyName); err != nil {
		return Room{}, err
	} else if known != nil {
		return *known, nil
	}

	// Index miss: fall back to the provider's live listing before creating.
	listed, err := r.provider.ListRooms(ctx)
	if err != nil {
		return Room{}, err
	}
	for _, room := range listed {
		if room.FriendlyName == friendlyName {
			return r.index.Upsert(ctx, room)
		}
	}

	created, err := r.provider.CreateRoom(ctx, friendlyName)
	if err != nil {
		return Room{}, err
	}
	return r.index.Upsert(ctx, created)
}

func (r *Registry) nameLock(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.names[name]
	if !ok {
		lock = &sync.Mutex{}
		r.names[name] = lock
	}
	return lock
}
