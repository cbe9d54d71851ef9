package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	userapp "userhub/internal/application"
	"userhub/internal/domain/entity"
	"userhub/internal/domain/repository"
	"userhub/internal/infrastructure/directory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(&strings.Builder{})
	return l
}

// fakeDirectory serves canned profiles and upstream failures, and
// doubles as the image fetcher for the avatar service.
type fakeDirectory struct {
	profiles map[string]*directory.UserProfile
	err      error

	mu         sync.Mutex
	imageCalls int
	image      []byte
}

func (f *fakeDirectory) GetUser(_ context.Context, userID string) (*directory.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, &directory.UpstreamError{Kind: directory.KindNotFound, Op: "get user", Status: 404}
	}
	return p, nil
}

func (f *fakeDirectory) FetchImage(_ context.Context, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCalls++
	return f.image, nil
}

type memAvatarRepo struct {
	mu      sync.Mutex
	records map[string]entity.Avatar
}

func (r *memAvatarRepo) Get(_ context.Context, userID string) (*entity.Avatar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.records[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *memAvatarRepo) Create(_ context.Context, a *entity.Avatar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[a.UserID]; ok {
		return repository.ErrDuplicateKey
	}
	r.records[a.UserID] = *a
	return nil
}

func (r *memAvatarRepo) Delete(_ context.Context, userID string) (*entity.Avatar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.records[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.records, userID)
	return &a, nil
}

type memBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (s *memBlobStore) Write(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *memBlobStore) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, repository.ErrBlobNotFound
	}
	return data, nil
}

func (s *memBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]entity.User
}

func (r *memUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateKey
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = *u
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events int
	err    error
}

func (p *fakePublisher) PublishJSON(_ context.Context, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events++
	return nil
}

type testEnv struct {
	router    *gin.Engine
	dir       *fakeDirectory
	publisher *fakePublisher
}

func newTestEnv() *testEnv {
	dir := &fakeDirectory{
		profiles: map[string]*directory.UserProfile{
			"2": {ID: "2", Email: "janet.weaver@reqres.in", FirstName: "Janet", LastName: "Weaver", AvatarURL: "https://reqres.in/img/faces/2-image.jpg"},
			"7": {ID: "7", Email: "no.avatar@reqres.in", FirstName: "No", LastName: "Avatar"},
		},
		image: []byte("fake image bytes"),
	}
	pub := &fakePublisher{}
	logger := testLogger()

	userSvc := userapp.NewUserService(&memUserRepo{users: map[string]entity.User{}}, pub, logger, nil, "")
	avatarSvc := userapp.NewAvatarService(
		&memAvatarRepo{records: map[string]entity.Avatar{}},
		&memBlobStore{blobs: map[string][]byte{}},
		dir,
		logger,
	)

	users := NewUserHandler(userSvc, dir, logger)
	avatars := NewAvatarHandler(avatarSvc, dir, logger)

	r := gin.New()
	r.POST("/api/users", users.Create)
	r.GET("/api/users/:userId", users.Get)
	r.GET("/api/users/:userId/avatar", avatars.Get)
	r.DELETE("/api/users/:userId/avatar", avatars.Delete)

	return &testEnv{router: r, dir: dir, publisher: pub}
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateUser_ReturnsAssignedIdentifier(t *testing.T) {
	env := newTestEnv()

	w := doJSON(t, env.router, "POST", "/api/users", `{"name":"Ada Lovelace","email":"ada@example.com"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.ID == "" {
		t.Error("no identifier in response")
	}
	if resp.Data.Name != "Ada Lovelace" || resp.Data.Email != "ada@example.com" {
		t.Errorf("response does not echo supplied fields: %+v", resp.Data)
	}
	if env.publisher.events != 1 {
		t.Errorf("published events = %d, want 1", env.publisher.events)
	}
}

func TestCreateUser_InvalidPayload(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"name":"Ada"}`},
		{"bad email", `{"name":"Ada","email":"not-an-email"}`},
		{"broken json", `{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, env.router, "POST", "/api/users", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	env := newTestEnv()

	body := `{"name":"Ada","email":"ada@example.com"}`
	if w := doJSON(t, env.router, "POST", "/api/users", body); w.Code != http.StatusCreated {
		t.Fatalf("first create: %d", w.Code)
	}
	if w := doJSON(t, env.router, "POST", "/api/users", body); w.Code != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want 409", w.Code)
	}
}

func TestCreateUser_PublishFailureSurfaced(t *testing.T) {
	env := newTestEnv()
	env.publisher.err = errors.New("broker down")

	w := doJSON(t, env.router, "POST", "/api/users", `{"name":"Ada","email":"ada@example.com"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "event publication failed") {
		t.Errorf("body does not explain the partial create: %s", w.Body.String())
	}
}

func TestGetUser_ProxiesUpstream(t *testing.T) {
	env := newTestEnv()

	w := doJSON(t, env.router, "GET", "/api/users/2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "janet.weaver@reqres.in") {
		t.Errorf("upstream payload not proxied: %s", w.Body.String())
	}
}

func TestGetUser_UpstreamKindToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &directory.UpstreamError{Kind: directory.KindNotFound}, http.StatusNotFound},
		{"transient", &directory.UpstreamError{Kind: directory.KindTransient}, http.StatusServiceUnavailable},
		{"permanent", &directory.UpstreamError{Kind: directory.KindPermanent}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.dir.err = tt.err
			w := doJSON(t, env.router, "GET", "/api/users/2", "")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestGetAvatar_ReturnsBase64AndCaches(t *testing.T) {
	env := newTestEnv()
	want := base64.StdEncoding.EncodeToString(env.dir.image)

	for i := 0; i < 2; i++ {
		w := doJSON(t, env.router, "GET", "/api/users/2/avatar", "")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, body %s", i, w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("request %d: base64 content missing from %s", i, w.Body.String())
		}
	}
	if env.dir.imageCalls != 1 {
		t.Errorf("image downloads = %d, want 1 (second request must be a cache hit)", env.dir.imageCalls)
	}
}

func TestGetAvatar_NoAvatarOnProfile(t *testing.T) {
	env := newTestEnv()

	w := doJSON(t, env.router, "GET", "/api/users/7/avatar", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetAvatar_UnknownUser(t *testing.T) {
	env := newTestEnv()

	w := doJSON(t, env.router, "GET", "/api/users/999/avatar", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteAvatar_AlwaysSucceeds(t *testing.T) {
	env := newTestEnv()

	// Never cached for this user, still a success.
	w := doJSON(t, env.router, "DELETE", "/api/users/999/avatar", "")
	if w.Code != http.StatusOK {
		t.Errorf("delete of absent avatar: status = %d, want 200", w.Code)
	}

	// Cache one, delete twice.
	if w := doJSON(t, env.router, "GET", "/api/users/2/avatar", ""); w.Code != http.StatusOK {
		t.Fatalf("seed avatar: %d", w.Code)
	}
	for i := 0; i < 2; i++ {
		if w := doJSON(t, env.router, "DELETE", "/api/users/2/avatar", ""); w.Code != http.StatusOK {
			t.Errorf("delete %d: status = %d, want 200", i, w.Code)
		}
	}
}

func TestDeleteThenGetAvatar_Refetches(t *testing.T) {
	env := newTestEnv()

	if w := doJSON(t, env.router, "GET", "/api/users/2/avatar", ""); w.Code != http.StatusOK {
		t.Fatal("seed avatar")
	}
	if w := doJSON(t, env.router, "DELETE", "/api/users/2/avatar", ""); w.Code != http.StatusOK {
		t.Fatal("delete avatar")
	}
	if w := doJSON(t, env.router, "GET", "/api/users/2/avatar", ""); w.Code != http.StatusOK {
		t.Fatal("refetch avatar")
	}
	if env.dir.imageCalls != 2 {
		t.Errorf("image downloads = %d, want 2 after delete", env.dir.imageCalls)
	}
}
