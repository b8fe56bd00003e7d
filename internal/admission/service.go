package admission

import (
	"context"
	"errors"

	"classmeet/internal/rooms"
)

// ErrUnauthorized is returned when an admission request carries no identity.
var ErrUnauthorized = errors.New("identity required")

// RoomResolver finds or creates the named room.
type RoomResolver interface {
	ResolveOrCreate(ctx context.Context, friendlyName string) (rooms.Room, error)
}

// MemberBinder attaches an identity to a room's chat channel.
type MemberBinder interface {
	EnsureMember(ctx context.Context, room rooms.Room, identity string) error
}

// TokenIssuer mints a capability token for an identity in a room.
type TokenIssuer interface {
	Issue(identity string, room rooms.Room) (string, error)
}

// Result is what a successful admission hands back to the caller.
type Result struct {
	Token   string `json:"token"`
	RoomSID string `json:"room_sid"`
}

// Service runs the admission sequence: resolve room, bind membership, mint token.
type Service struct {
	resolver RoomResolver
	binder   MemberBinder
	issuer   TokenIssuer
	roomName string
}

// NewService creates the admission orchestrator. roomName is the shared
// classroom every admitted identity joins.
func NewService(resolver RoomResolver, binder MemberBinder, issuer TokenIssuer, roomName string) *Service {
	if roomName == "" {
		roomName = "My Room"
	}
	return &Service{resolver: resolver, binder: binder, issuer: issuer, roomName: roomName}
}

// Admit admits identity into the shared room and returns a fresh capability
// token. An empty identity fails before any provider call is made.
func (s *Service) Admit(ctx context.Context, identity string) (Result, error) {
	if identity == "" {
		return Result{}, ErrUnauthorized
	}

	room, err := s.resolver.ResolveOrCreate(ctx, s.roomName)
	if err != nil {
		return Result{}, err
	}

	if err := s.binder.EnsureMember(ctx, room, identity); err != nil {
		return Result{}, err
	}

	tok, err := s.issuer.Issue(identity, room)
	if err != nil {
		return Result{}, err
	}
	return Result{Token: tok, RoomSID: room.SID}, nil
}
