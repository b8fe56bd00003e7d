package ledger

import (
	"context"
	"errors"
	"time"
)

// Attendance statuses.
const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
)

// AttendanceRecord is one presence observation for a name.
type AttendanceRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	RecordedAt time.Time `json:"recorded_at"`
}

// EmotionRecord is one emotion/attention observation for a name. Emotion and
// Attention are stored exactly as the classifier reported them.
type EmotionRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Emotion    string    `json:"emotion"`
	Attention  string    `json:"attention"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Observation is one classifier result for a recognized identity.
type Observation struct {
	Identity  string `json:"identity"`
	Emotion   string `json:"emotion"`
	Attention string `json:"attention"`
}

// Store persists the append-only ledger.
type Store interface {
	InsertAttendance(ctx context.Context, rec AttendanceRecord) error
	InsertEmotion(ctx context.Context, rec EmotionRecord) error
	ListAttendance(ctx context.Context) ([]AttendanceRecord, error)
	ListEmotionsByName(ctx context.Context, name string) ([]EmotionRecord, error)
}

// Service records classifier observations and answers ledger queries.
type Service struct {
	store Store
}

// NewService creates a ledger service over a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// RecordObservation appends one attendance row (Present) and one emotion row
// for the observed identity.
func (s *Service) RecordObservation(ctx context.Context, obs Observation) error {
	if obs.Identity == "" {
		return errors.New("identity required")
	}
	now := time.Now().UTC()
	if err := s.store.InsertAttendance(ctx, AttendanceRecord{
		Name:       obs.Identity,
		Status:     StatusPresent,
		RecordedAt: now,
	}); err != nil {
		return err
	}
	return s.store.InsertEmotion(ctx, EmotionRecord{
		Name:       obs.Identity,
		Emotion:    obs.Emotion,
		Attention:  obs.Attention,
		RecordedAt: now,
	})
}

// ListAllAttendance returns every attendance row in the order it was recorded.
func (s *Service) ListAllAttendance(ctx context.Context) ([]AttendanceRecord, error) {
	return s.store.ListAttendance(ctx)
}

// ListEmotionsFor returns every emotion row for a name in recorded order.
func (s *Service) ListEmotionsFor(ctx context.Context, name string) ([]EmotionRecord, error) {
	return s.store.ListEmotionsByName(ctx, name)
}
