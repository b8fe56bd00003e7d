package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Repository persists ledger rows in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertAttendance appends an attendance row.
func (r *Repository) InsertAttendance(ctx context.Context, rec AttendanceRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = StatusPresent
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, name, status, recorded_at)
		VALUES ($1, $2, $3, $4)
	`, rec.ID, rec.Name, rec.Status, rec.RecordedAt)
	return err
}

// InsertEmotion appends an emotion row.
func (r *Repository) InsertEmotion(ctx context.Context, rec EmotionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO emotion_records (id, name, emotion, attention, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ID, rec.Name, rec.Emotion, rec.Attention, rec.RecordedAt)
	return err
}

// ListAttendance returns all attendance rows oldest first.
func (r *Repository) ListAttendance(ctx context.Context) ([]AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, status, recorded_at
		FROM attendance_records ORDER BY recorded_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []AttendanceRecord
	for rows.Next() {
		var rec AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Status, &rec.RecordedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// ListEmotionsByName returns all emotion rows for a name oldest first.
func (r *Repository) ListEmotionsByName(ctx context.Context, name string) ([]EmotionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, emotion, attention, recorded_at
		FROM emotion_records WHERE name = $1 ORDER BY recorded_at ASC
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []EmotionRecord
	for rows.Next() {
		var rec EmotionRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Emotion, &rec.Attention, &rec.RecordedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
