package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"userhub/internal/domain/entity"
	repo "userhub/internal/domain/repository"
)

// EventKindUserCreated tags creation events on the queue.
const EventKindUserCreated = "user.created"

// EventPublisher delivers domain events to the message broker.
// Satisfied by helpers.RabbitPublisher; swappable with a fake in tests.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// UserSnapshot is the immutable view of a user embedded in events.
type UserSnapshot struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserCreatedEvent is the JSON payload published after a user is
// persisted.
type UserCreatedEvent struct {
	Kind       string       `json:"kind"`
	OccurredAt time.Time    `json:"occurred_at"`
	User       UserSnapshot `json:"user"`
}

// UserService persists users and announces creations on the broker.
type UserService struct {
	Repo         repo.UserRepository
	Events       EventPublisher
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESUsersIndex string
}

func NewUserService(r repo.UserRepository, events EventPublisher, logger *logrus.Logger, es *elasticsearch.Client, esUsersIndex string) *UserService {
	return &UserService{
		Repo:         r,
		Events:       events,
		Logger:       logger,
		ES:           es,
		ESUsersIndex: esUsersIndex,
	}
}

type CreateUserInput struct {
	Name  string
	Email string
}

// CreateUser persists the user, then publishes a user.created event
// carrying the full persisted record. Persistence always precedes
// publication; if the publish fails the user still exists, and the
// caller gets a PartialCreateError saying so.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	u := &entity.User{Name: in.Name, Email: in.Email}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, err
	}

	event := UserCreatedEvent{
		Kind:       EventKindUserCreated,
		OccurredAt: time.Now().UTC(),
		User: UserSnapshot{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			CreatedAt: u.CreatedAt,
		},
	}
	if err := s.Events.PublishJSON(ctx, event); err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("user.created publish failed")
		}
		return u, &PartialCreateError{UserID: u.ID, Err: err}
	}

	// Index for search, best effort.
	_ = s.indexUser(ctx, u)

	return u, nil
}

func (s *UserService) indexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"name":       u.Name,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
	return nil
}

// SearchUsers performs a simple multi_match search on email and name.
func (s *UserService) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
