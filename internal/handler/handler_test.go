package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classmeet/internal/admission"
	"classmeet/internal/auth"
	"classmeet/internal/enrollment"
	"classmeet/internal/identity"
	"classmeet/internal/ledger"
	"classmeet/internal/queue"
)

type fakeAdmission struct {
	result admission.Result
	err    error
}

func (f *fakeAdmission) Admit(ctx context.Context, id string) (admission.Result, error) {
	if id == "" {
		return admission.Result{}, admission.ErrUnauthorized
	}
	return f.result, f.err
}

type fakeIdentity struct {
	user identity.User
	err  error
}

func (f *fakeIdentity) SignUp(ctx context.Context, name, role, email, password string) (identity.User, error) {
	if f.err != nil {
		return identity.User{}, f.err
	}
	return identity.User{Name: name, Email: email, Role: role}, nil
}

func (f *fakeIdentity) Authenticate(ctx context.Context, email, password string) (identity.User, error) {
	if f.err != nil {
		return identity.User{}, f.err
	}
	return f.user, nil
}

type fakeLedger struct {
	attendance []ledger.AttendanceRecord
	emotions   map[string][]ledger.EmotionRecord
}

func (f *fakeLedger) ListAllAttendance(ctx context.Context) ([]ledger.AttendanceRecord, error) {
	return f.attendance, nil
}

func (f *fakeLedger) ListEmotionsFor(ctx context.Context, name string) ([]ledger.EmotionRecord, error) {
	return f.emotions[name], nil
}

type fakeEnrollment struct {
	ticket    string
	savedPath string
	saveErr   error
}

func (f *fakeEnrollment) OpenTicket(ctx context.Context, name string) (string, error) {
	return f.ticket, nil
}

func (f *fakeEnrollment) SavePhoto(ctx context.Context, ticket, filename string, data []byte) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	return f.savedPath, nil
}

const testKey = "test-signing-key"

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r, auth.SessionAuth(testKey, "classmeet"))
	return r
}

func newTestHandler() (*Handler, *fakeAdmission, *fakeIdentity, *fakeLedger, *fakeEnrollment) {
	adm := &fakeAdmission{result: admission.Result{Token: "cap-token", RoomSID: "RM1"}}
	ids := &fakeIdentity{user: identity.User{Name: "alice", Email: "a@x.com", Role: "student"}}
	led := &fakeLedger{emotions: make(map[string][]ledger.EmotionRecord)}
	enr := &fakeEnrollment{ticket: "tk-1", savedPath: "data/faces/alice/alice.jpg"}
	h := New(adm, ids, led, enr, queue.NewInMemory(4), SessionConfig{
		Issuer:     "classmeet",
		SigningKey: testKey,
		TTL:        time.Hour,
	})
	return h, adm, ids, led, enr
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdmissionReturnsTokenAndRoom(t *testing.T) {
	h, _, _, _, _ := newTestHandler()
	r := newTestRouter(h)

	w := postJSON(t, r, "/v1/admission", gin.H{"identity": "alice"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cap-token", resp["token"])
	assert.Equal(t, "RM1", resp["room_sid"])
}

func TestAdmissionWithoutIdentityIsUnauthorized(t *testing.T) {
	h, _, _, _, _ := newTestHandler()
	r := newTestRouter(h)

	w := postJSON(t, r, "/v1/admission", gin.H{}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmissionProviderFailureIsBadGateway(t *testing.T) {
	h, adm, _, _, _ := newTestHandler()
	adm.err = errors.New("provider unreachable")
	r := newTestRouter(h)

	w := postJSON(t, r, "/v1/admission", gin.H{"identity": "alice"}, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSignUpReturnsEnrollmentTicket(t *testing.T) {
	h, _, _, _, _ := newTestHandler()
	r := newTestRouter(h)

	w := postJSON(t, r, "/v1/signup", gin.H{
		"name": "alice", "role": "student", "email": "a@x.com", "password": "p",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "tk-1", resp["enrollment_ticket"])
	assert.Equal(t, "alice", resp["name"])
}

func TestSignUpRejectsBadRole(t *testing.T) {
	h, _, ids, _, _ := newTestHandler()
	ids.err = identity.ErrInvalidSignup
	r := newTestRouter(h)

	w := postJSON(t, r, "/v1/signup", gin.H{
		"name": "alice", "role": "admin", "email": "a@x.com", "password": "p",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginSuccessReturnsRoleNameAndSession(t *testing.T) {
	h, _, _, _, _ := newTestHandler()
	r := newTestRouter(h)

	w := postJSON(t, r, "/v1/login", gin.H{"email": "a@x.com", "password": "p"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "student", resp["role"])
	assert.Equal(t, "alice", resp["name"])

	claims, err := auth.Parse(resp["session_token"].(string), testKey, "classmeet")
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Name)
}

func TestLoginFailureIsUniform(t *testing.T) {
	h, _, ids, _, _ := newTestHandler()
	ids.err = identity.ErrAuthFailed
	r := newTestRouter(h)

	missing := postJSON(t, r, "/v1/login", gin.H{"email": "a@x.com"}, nil)
	wrong := postJSON(t, r, "/v1/login", gin.H{"email": "a@x.com", "password": "bad"}, nil)

	assert.Equal(t, http.StatusUnauthorized, missing.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.JSONEq(t, missing.Body.String(), wrong.Body.String())
}

func TestSignUpPhotoMapsServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"bad extension", enrollment.ErrBadExtension, http.StatusBadRequest},
		{"unknown ticket", enrollment.ErrTicketNotFound, http.StatusNotFound},
		{"accepted", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _, _, enr := newTestHandler()
			enr.saveErr = tt.err
			r := newTestRouter(h)

			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			require.NoError(t, mw.WriteField("ticket", "tk-1"))
			part, err := mw.CreateFormFile("file", "photo.jpg")
			require.NoError(t, err)
			_, err = part.Write([]byte("jpeg bytes"))
			require.NoError(t, err)
			require.NoError(t, mw.Close())

			req := httptest.NewRequest(http.MethodPost, "/v1/signup/photo", &buf)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestSignUpPhotoRequiresFile(t *testing.T) {
	h, _, _, _, _ := newTestHandler()
	r := newTestRouter(h)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("ticket", "tk-1"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/signup/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedgerEndpointsRequireSession(t *testing.T) {
	h, _, _, _, _ := newTestHandler()
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/v1/attendance", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func sessionHeader(t *testing.T) http.Header {
	t.Helper()
	session, err := auth.Issue("teacher-1", "teacher", "classmeet", testKey, time.Hour)
	require.NoError(t, err)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+session.Token)
	return header
}

func TestAttendanceAndEmotionQueries(t *testing.T) {
	h, _, _, led, _ := newTestHandler()
	led.attendance = []ledger.AttendanceRecord{
		{Name: "alice", Status: "Present"},
		{Name: "bob", Status: "Present"},
	}
	led.emotions["alice"] = []ledger.EmotionRecord{{Name: "alice", Emotion: "happy", Attention: "Yes"}}
	r := newTestRouter(h)
	header := sessionHeader(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/attendance", nil)
	req.Header = header
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
	assert.Contains(t, w.Body.String(), "bob")

	req = httptest.NewRequest(http.MethodGet, "/v1/students/alice/emotions", nil)
	req.Header = header
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "happy")
}

func TestFramesQueuesMessage(t *testing.T) {
	h, _, _, _, _ := newTestHandler()
	frames := queue.NewInMemory(4)
	h.frames = frames
	r := newTestRouter(h)

	w := postJSON(t, r, "/v1/frames", gin.H{"image_url": "http://img/1.jpg"}, sessionHeader(t))
	require.Equal(t, http.StatusAccepted, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	messages, err := frames.Consume(ctx)
	require.NoError(t, err)
	select {
	case msg := <-messages:
		assert.Equal(t, "frame", msg.Type)
		assert.Equal(t, "http://img/1.jpg", string(msg.Body))
	case <-ctx.Done():
		t.Fatal("frame not queued")
	}
}
