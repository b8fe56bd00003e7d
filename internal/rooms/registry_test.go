package rooms

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider records calls and simulates provider-side room state.
type fakeProvider struct {
	mu           sync.Mutex
	rooms        []Room
	members      map[string]map[string]bool // roomSID -> identity set
	listCalls    int
	createCalls  int
	joinCalls    int
	listErr      error
	createErr    error
	joinErr      error
	nextRoomSID  string
	nextChatSID  string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		members:     make(map[string]map[string]bool),
		nextRoomSID: "RM1",
		nextChatSID: "IS1",
	}
}

func (p *fakeProvider) ListRooms(ctx context.Context) ([]Room, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listCalls++
	if p.listErr != nil {
		return nil, p.listErr
	}
	out := make([]Room, len(p.rooms))
	copy(out, p.rooms)
	return out, nil
}

func (p *fakeProvider) CreateRoom(ctx context.Context, friendlyName string) (Room, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	if p.createErr != nil {
		return Room{}, p.createErr
	}
	room := Room{FriendlyName: friendlyName, SID: p.nextRoomSID, ChatServiceSID: p.nextChatSID}
	p.rooms = append(p.rooms, room)
	return room, nil
}

func (p *fakeProvider) AddParticipant(ctx context.Context, roomSID, identity string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.joinCalls++
	if p.joinErr != nil {
		return p.joinErr
	}
	if p.members[roomSID] == nil {
		p.members[roomSID] = make(map[string]bool)
	}
	if p.members[roomSID][identity] {
		return &ProviderError{StatusCode: http.StatusConflict, Code: 50433, Message: "already a participant"}
	}
	p.members[roomSID][identity] = true
	return nil
}

// memoryIndex is a map-backed Index for tests.
type memoryIndex struct {
	mu    sync.Mutex
	rooms map[string]Room
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{rooms: make(map[string]Room)}
}

func (i *memoryIndex) Get(ctx context.Context, friendlyName string) (*Room, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if room, ok := i.rooms[friendlyName]; ok {
		return &room, nil
	}
	return nil, nil
}

func (i *memoryIndex) Upsert(ctx context.Context, room Room) (Room, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if existing, ok := i.rooms[room.FriendlyName]; ok {
		return existing, nil
	}
	i.rooms[room.FriendlyName] = room
	return room, nil
}

func TestRegistryCreatesRoomOnce(t *testing.T) {
	provider := newFakeProvider()
	registry := NewRegistry(provider, newMemoryIndex())
	ctx := context.Background()

	first, err := registry.ResolveOrCreate(ctx, "My Room")
	require.NoError(t, err)
	assert.Equal(t, "My Room", first.FriendlyName)
	assert.Equal(t, "RM1", first.SID)

	second, err := registry.ResolveOrCreate(ctx, "My Room")
	require.NoError(t, err)
	assert.Equal(t, first.SID, second.SID)
	assert.Equal(t, 1, provider.createCalls)
	// Second call is served from the index, not the provider listing.
	assert.Equal(t, 1, provider.listCalls)
}

func TestRegistryAdoptsExistingProviderRoom(t *testing.T) {
	provider := newFakeProvider()
	provider.rooms = []Room{
		{FriendlyName: "Other Room", SID: "RM9", ChatServiceSID: "IS9"},
		{FriendlyName: "My Room", SID: "RM7", ChatServiceSID: "IS7"},
	}
	registry := NewRegistry(provider, newMemoryIndex())

	room, err := registry.ResolveOrCreate(context.Background(), "My Room")
	require.NoError(t, err)
	assert.Equal(t, "RM7", room.SID)
	assert.Equal(t, "IS7", room.ChatServiceSID)
	assert.Equal(t, 0, provider.createCalls)
}

func TestRegistryMatchIsCaseSensitive(t *testing.T) {
	provider := newFakeProvider()
	provider.rooms = []Room{{FriendlyName: "my room", SID: "RM9", ChatServiceSID: "IS9"}}
	registry := NewRegistry(provider, newMemoryIndex())

	room, err := registry.ResolveOrCreate(context.Background(), "My Room")
	require.NoError(t, err)
	assert.Equal(t, "RM1", room.SID)
	assert.Equal(t, 1, provider.createCalls)
}

func TestRegistryConcurrentFirstAdmissions(t *testing.T) {
	provider := newFakeProvider()
	registry := NewRegistry(provider, newMemoryIndex())

	const callers = 16
	results := make([]Room, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = registry.ResolveOrCreate(context.Background(), "My Room")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 1, provider.createCalls, "racing callers must not duplicate the room")
	for _, room := range results {
		assert.Equal(t, results[0].SID, room.SID)
	}
}

func TestRegistryPropagatesProviderErrors(t *testing.T) {
	provider := newFakeProvider()
	provider.listErr = &ProviderError{StatusCode: http.StatusServiceUnavailable, Message: "down"}
	registry := NewRegistry(provider, newMemoryIndex())

	_, err := registry.ResolveOrCreate(context.Background(), "My Room")
	require.Error(t, err)
	assert.Equal(t, 0, provider.createCalls)
}
