package enrollment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTicketNotFound is returned when a ticket is unknown, expired or already used.
var ErrTicketNotFound = errors.New("enrollment ticket not found")

// TicketStore holds one-shot enrollment tickets mapping ticket id to the
// signed-up name. Take consumes the ticket so it cannot be replayed.
type TicketStore interface {
	Put(ctx context.Context, ticket, name string, ttl time.Duration) error
	Take(ctx context.Context, ticket string) (string, error)
}

// RedisTickets stores tickets in redis with a TTL.
type RedisTickets struct {
	client *redis.Client
	prefix string
}

// NewRedisTickets creates a redis-backed ticket store.
func NewRedisTickets(client *redis.Client) *RedisTickets {
	return &RedisTickets{client: client, prefix: "classmeet:ticket:"}
}

// Put stores the ticket with an expiry.
func (t *RedisTickets) Put(ctx context.Context, ticket, name string, ttl time.Duration) error {
	return t.client.Set(ctx, t.prefix+ticket, name, ttl).Err()
}

// Take returns and deletes the ticket's name in one round trip.
func (t *RedisTickets) Take(ctx context.Context, ticket string) (string, error) {
	name, err := t.client.GetDel(ctx, t.prefix+ticket).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTicketNotFound
		}
		return "", err
	}
	return name, nil
}

// MemoryTickets is a map-backed store for dev and tests.
type MemoryTickets struct {
	mu      sync.Mutex
	entries map[string]memoryTicket
}

type memoryTicket struct {
	name    string
	expires time.Time
}

// NewMemoryTickets creates an in-memory ticket store.
func NewMemoryTickets() *MemoryTickets {
	return &MemoryTickets{entries: make(map[string]memoryTicket)}
}

// Put stores the ticket with an expiry.
func (t *MemoryTickets) Put(_ context.Context, ticket, name string, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[ticket] = memoryTicket{name: name, expires: time.Now().Add(ttl)}
	return nil
}

// Take consumes the ticket and returns its name.
func (t *MemoryTickets) Take(_ context.Context, ticket string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[ticket]
	if !ok || time.Now().After(entry.expires) {
		delete(t.entries, ticket)
		return "", ErrTicketNotFound
	}
	delete(t.entries, ticket)
	return entry.name, nil
}
