package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"classmeet/internal/admission"
	"classmeet/internal/auth"
	"classmeet/internal/enrollment"
	"classmeet/internal/identity"
	"classmeet/internal/ledger"
	"classmeet/internal/queue"
)

// AdmissionService admits an identity into the shared room.
type AdmissionService interface {
	Admit(ctx context.Context, identity string) (admission.Result, error)
}

// IdentityService owns signup and login.
type IdentityService interface {
	SignUp(ctx context.Context, name, role, email, password string) (identity.User, error)
	Authenticate(ctx context.Context, email, password string) (identity.User, error)
}

// LedgerService answers attendance and emotion queries.
type LedgerService interface {
	ListAllAttendance(ctx context.Context) ([]ledger.AttendanceRecord, error)
	ListEmotionsFor(ctx context.Context, name string) ([]ledger.EmotionRecord, error)
}

// EnrollmentService hands out tickets and stores reference photos.
type EnrollmentService interface {
	OpenTicket(ctx context.Context, name string) (string, error)
	SavePhoto(ctx context.Context, ticket, filename string, data []byte) (string, error)
}

// SessionConfig is what login needs to mint session tokens.
type SessionConfig struct {
	Issuer     string
	SigningKey string
	TTL        time.Duration
}

// Handler wires HTTP routes to the domain services.
type Handler struct {
	admission AdmissionService
	identity  IdentityService
	ledger    LedgerService
	enroll    EnrollmentService
	frames    queue.Queue
	sessions  SessionConfig
}

// New creates a handler.
func New(adm AdmissionService, ids IdentityService, led LedgerService, enr EnrollmentService, frames queue.Queue, sessions SessionConfig) *Handler {
	return &Handler{
		admission: adm,
		identity:  ids,
		ledger:    led,
		enroll:    enr,
		frames:    frames,
		sessions:  sessions,
	}
}

// Register mounts the v1 routes. sessionAuth protects the observation and
// query endpoints.
func (h *Handler) Register(r *gin.Engine, sessionAuth gin.HandlerFunc) {
	v1 := r.Group("/v1")
	v1.POST("/admission", h.Admission)
	v1.POST("/signup", h.SignUp)
	v1.POST("/signup/photo", h.SignUpPhoto)
	v1.POST("/login", h.Login)

	protected := v1.Group("", sessionAuth)
	protected.GET("/students/:name/emotions", h.StudentEmotions)
	protected.GET("/attendance", h.Attendance)
	protected.POST("/frames", h.Frames)
}

// ---------- Admission ----------

// Admission admits an identity into the shared room and returns a capability token.
func (h *Handler) Admission(c *gin.Context) {
	var req struct {
		Identity string `json:"identity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.admission.Admit(c.Request.Context(), req.Identity)
	if err != nil {
		if errors.Is(err, admission.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
			return
		}
		log.Printf("admission failed for %q: %v", req.Identity, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "room provider unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": result.Token, "room_sid": result.RoomSID})
}

// ---------- Signup ----------

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignUp registers a user and opens an enrollment ticket for the photo upload.
func (h *Handler) SignUp(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.identity.SignUp(c.Request.Context(), req.Name, req.Role, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidSignup) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	ticket, err := h.enroll.OpenTicket(c.Request.Context(), user.Name)
	if err != nil {
		log.Printf("enrollment ticket for %s failed: %v", user.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"name":              user.Name,
		"role":              user.Role,
		"enrollment_ticket": ticket,
	})
}

// SignUpPhoto stores the reference photo for a pending signup. Expects a
// multipart form with fields: ticket, file.
func (h *Handler) SignUpPhoto(c *gin.Context) {
	ticket := c.PostForm("ticket")
	if ticket == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticket required"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
		return
	}

	path, err := h.enroll.SavePhoto(c.Request.Context(), ticket, header.Filename, data)
	switch {
	case errors.Is(err, enrollment.ErrBadExtension):
		c.JSON(http.StatusBadRequest, gin.H{"error": "file type not allowed"})
	case errors.Is(err, enrollment.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown or expired ticket"})
	case err != nil:
		log.Printf("photo save failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "photo save failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"path": path})
	}
}

// ---------- Login ----------

// Login authenticates a user and returns their role, name and a session token.
// Every failure looks the same to the caller.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login failed"})
		return
	}

	user, err := h.identity.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login failed"})
		return
	}

	session, err := auth.Issue(user.Name, user.Role, h.sessions.Issuer, h.sessions.SigningKey, h.sessions.TTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"role":          user.Role,
		"name":          user.Name,
		"session_token": session.Token,
		"expires_at":    session.ExpiresAt.Unix(),
	})
}

// ---------- Ledger queries ----------

// StudentEmotions returns every emotion observation for a student.
func (h *Handler) StudentEmotions(c *gin.Context) {
	name := c.Param("name")
	records, err := h.ledger.ListEmotionsFor(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"emotions": records})
}

// Attendance returns all attendance rows in recorded order.
func (h *Handler) Attendance(c *gin.Context) {
	records, err := h.ledger.ListAllAttendance(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": records})
}

// ---------- Frames ----------

// Frames queues a captured frame for the worker to classify and record.
func (h *Handler) Frames(c *gin.Context) {
	var req struct {
		ImageURL string `json:"image_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.frames.Publish(c.Request.Context(), queue.Message{Type: "frame", Body: []byte(req.ImageURL)}); err != nil {
		log.Printf("frame publish failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "queue unavailable"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
