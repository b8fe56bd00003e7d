package enrollment

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"classmeet/internal/classifier"
	"classmeet/internal/cloudinary"
)

// ErrBadExtension is returned when the uploaded filename is not an accepted image type.
var ErrBadExtension = errors.New("file type not allowed")

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// Service hands out enrollment tickets at signup and stores the reference
// photo uploaded against a ticket.
type Service struct {
	tickets   TicketStore
	ticketTTL time.Duration
	dataDir   string
	cdn       *cloudinary.Client // nil when not configured
	faces     *classifier.Client
}

// NewService creates an enrollment service. cdn may be nil.
func NewService(tickets TicketStore, ticketTTL time.Duration, dataDir string, cdn *cloudinary.Client, faces *classifier.Client) *Service {
	if ticketTTL <= 0 {
		ticketTTL = 15 * time.Minute
	}
	return &Service{
		tickets:   tickets,
		ticketTTL: ticketTTL,
		dataDir:   dataDir,
		cdn:       cdn,
		faces:     faces,
	}
}

// OpenTicket issues a one-shot ticket tying a later photo upload to the
// signed-up name. The ticket travels with the request, so concurrent signups
// cannot clobber each other.
func (s *Service) OpenTicket(ctx context.Context, name string) (string, error) {
	ticket := uuid.NewString()
	if err := s.tickets.Put(ctx, ticket, name, s.ticketTTL); err != nil {
		return "", err
	}
	return ticket, nil
}

// PhotoPath is where the reference photo for a name is stored on disk.
func (s *Service) PhotoPath(name string) string {
	return filepath.Join(s.dataDir, name, name+".jpg")
}

// SavePhoto consumes the ticket, validates the filename extension and writes
// the photo to its name-derived path. When a photo host is configured the
// image is mirrored there and the hosted URL is enrolled with the classifier.
func (s *Service) SavePhoto(ctx context.Context, ticket, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", ErrBadExtension
	}

	name, err := s.tickets.Take(ctx, ticket)
	if err != nil {
		return "", err
	}

	path := s.PhotoPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}

	// Face enrollment needs a URL the classifier can fetch, so it only runs
	// when the photo host is configured. Failures do not undo the upload.
	if s.cdn != nil {
		uploaded, err := s.cdn.UploadBytes(data, name+ext)
		if err != nil {
			log.Printf("photo mirror failed for %s: %v", name, err)
			return path, nil
		}
		if s.faces != nil {
			if _, err := s.faces.Enroll(ctx, name, uploaded.SecureURL); err != nil {
				log.Printf("face enrollment failed for %s: %v", name, err)
			}
		}
	}
	return path, nil
}
