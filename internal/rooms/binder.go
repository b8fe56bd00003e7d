package rooms

import (
	"context"
	"errors"
	"net/http"
)

// Binder attaches identities to a room's chat channel.
type Binder struct {
	provider Provider
}

// NewBinder creates a binder over a provider.
func NewBinder(provider Provider) *Binder {
	return &Binder{provider: provider}
}

// EnsureMember joins identity to the room's chat channel. A conflict from the
// provider means the identity is already a member and counts as success; every
// other error is returned to the caller.
func (b *Binder) EnsureMember(ctx context.Context, room Room, identity string) error {
	err := b.provider.AddParticipant(ctx, room.SID, identity)
	var perr *ProviderError
	if errors.As(err, &perr) && perr.StatusCode == http.StatusConflict {
		return nil
	}
	return err
}
