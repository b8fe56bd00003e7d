package rooms

import (
	"context"
	"database/sql"
	"errors"
)

// Repository is the Postgres-backed room index. The unique constraint on
// friendly_name is what keeps concurrent first admissions from registering two
// rooms under one name.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the indexed room for a friendly name, or nil on a miss.
func (r *Repository) Get(ctx context.Context, friendlyName string) (*Room, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT friendly_name, sid, chat_service_sid
		FROM rooms WHERE friendly_name = $1
	`, friendlyName)
	var room Room
	if err := row.Scan(&room.FriendlyName, &room.SID, &room.ChatServiceSID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// Upsert records the name-to-room mapping. On conflict the existing row wins,
// so a racing writer gets back whichever room was indexed first.
func (r *Repository) Upsert(ctx context.Context, room Room) (Room, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO rooms (friendly_name, sid, chat_service_sid)
		VALUES ($1, $2, $3)
		ON CONFLICT (friendly_name) DO UPDATE SET friendly_name = EXCLUDED.friendly_name
		RETURNING friendly_name, sid, chat_service_sid
	`, room.FriendlyName, room.SID, room.ChatServiceSID)
	var won Room
	if err := row.Scan(&won.FriendlyName, &won.SID, &won.ChatServiceSID); err != nil {
		return Room{}, err
	}
	return won, nil
}
