package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"userhub/internal/domain/entity"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]entity.User
	err   error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]entity.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
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
		return nil, errors.New("not found")
	}
	return &u, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []any
	err    error
}

func (p *capturingPublisher) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, body)
	return nil
}

func TestCreateUser_PersistsAndPublishesOnce(t *testing.T) {
	repo := newMemUserRepo()
	pub := &capturingPublisher{}
	svc := NewUserService(repo, pub, nil, nil, "")

	u, err := svc.CreateUser(context.Background(), CreateUserInput{Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Error("no identifier assigned")
	}
	if u.Name != "Ada" || u.Email != "ada@example.com" {
		t.Errorf("returned record does not carry supplied fields: %+v", u)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published events = %d, want exactly 1", len(pub.events))
	}
	event, ok := pub.events[0].(UserCreatedEvent)
	if !ok {
		t.Fatalf("published %T, want UserCreatedEvent", pub.events[0])
	}
	if event.Kind != EventKindUserCreated {
		t.Errorf("event kind = %q, want %q", event.Kind, EventKindUserCreated)
	}
	if event.User.ID != u.ID || event.User.Email != u.Email {
		t.Errorf("event snapshot does not match persisted record: %+v", event.User)
	}
}

func TestCreateUser_PublishFailureIsPartialCreate(t *testing.T) {
	repo := newMemUserRepo()
	pub := &capturingPublisher{err: errors.New("broker gone")}
	svc := NewUserService(repo, pub, nil, nil, "")

	u, err := svc.CreateUser(context.Background(), CreateUserInput{Name: "Ada", Email: "ada@example.com"})
	var pc *PartialCreateError
	if !errors.As(err, &pc) {
		t.Fatalf("err = %v, want PartialCreateError", err)
	}

	// The user durably exists even though the call failed.
	if u == nil || u.ID == "" {
		t.Fatal("persisted user not returned with the error")
	}
	if pc.UserID != u.ID {
		t.Errorf("PartialCreateError.UserID = %q, want %q", pc.UserID, u.ID)
	}
	if _, gerr := repo.GetByID(context.Background(), u.ID); gerr != nil {
		t.Error("user not found in store after partial create")
	}
}

func TestCreateUser_PersistFailureDoesNotPublish(t *testing.T) {
	repo := newMemUserRepo()
	repo.err = errors.New("db down")
	pub := &capturingPublisher{}
	svc := NewUserService(repo, pub, nil, nil, "")

	if _, err := svc.CreateUser(context.Background(), CreateUserInput{Name: "Ada", Email: "a@b.c"}); err == nil {
		t.Fatal("expected error when persistence fails")
	}
	if len(pub.events) != 0 {
		t.Error("event published despite failed persistence")
	}
}
