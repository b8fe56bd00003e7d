package rooms

import (
	"context"
	"fmt"
)

// Room is a provider-hosted live video/chat session container.
type Room struct {
	FriendlyName   string `json:"friendly_name"`
	SID            string `json:"sid"`
	ChatServiceSID string `json:"chat_service_sid"`
}

// Provider is the external messaging/video service the registry talks to.
type Provider interface {
	// ListRooms returns every room the account knows about.
	ListRooms(ctx context.Context) ([]Room, error)
	// CreateRoom provisions a new room with the given friendly name.
	CreateRoom(ctx context.Context, friendlyName string) (Room, error)
	// AddParticipant attaches an identity to the room's chat channel.
	AddParticipant(ctx context.Context, roomSID, identity string) error
}

// ProviderError carries the HTTP status the provider answered with so callers
// can tell a conflict apart from everything else.
type ProviderError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("room provider error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}
