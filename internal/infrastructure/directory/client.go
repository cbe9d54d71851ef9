package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"userhub/pkg/helpers"
)

// maxImageSize caps avatar downloads at 5MB.
const maxImageSize = 5 * 1024 * 1024

// UserProfile is the subset of the directory payload this service
// consumes. AvatarURL is empty when the upstream user has no avatar.
type UserProfile struct {
	ID        json.Number `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	AvatarURL string      `json:"avatar"`
}

// Client talks to the upstream user directory. Successful lookups are
// cached in Redis for a short TTL; failures are never cached so a
// transient outage does not mask a user that exists.
type Client struct {
	baseURL    string
	httpClient *http.Client
	rdb        *redis.Client
	cacheTTL   time.Duration
	logger     *logrus.Logger
}

func NewClient(baseURL string, timeout time.Duration, rdb *redis.Client, cacheTTL time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		rdb:        rdb,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

func cacheKey(userID string) string {
	return "directory:user:" + userID
}

// GetUser looks up a user in the directory by identifier.
func (c *Client) GetUser(ctx context.Context, userID string) (*UserProfile, error) {
	if c.rdb != nil {
		var cached UserProfile
		ok, err := helpers.RedisGetJSON(ctx, c.rdb, cacheKey(userID), &cached)
		if err != nil && c.logger != nil {
			c.logger.WithError(err).WithField("user_id", userID).Warn("directory cache read failed")
		}
		if ok {
			return &cached, nil
		}
	}

	url := fmt.Sprintf("%s/api/users/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UpstreamError{Kind: KindPermanent, Op: "get user", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Kind: KindTransient, Op: "get user", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Kind: kindForStatus(resp.StatusCode), Op: "get user", Status: resp.StatusCode}
	}

	var payload struct {
		Data UserProfile `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &UpstreamError{Kind: KindPermanent, Op: "get user", Err: err}
	}

	if c.rdb != nil {
		if err := helpers.RedisSetJSON(ctx, c.rdb, cacheKey(userID), payload.Data, c.cacheTTL); err != nil && c.logger != nil {
			c.logger.WithError(err).WithField("user_id", userID).Warn("directory cache write failed")
		}
	}

	return &payload.Data, nil
}

// FetchImage downloads raw avatar bytes from the given source URL.
func (c *Client) FetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UpstreamError{Kind: KindPermanent, Op: "fetch image", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Kind: KindTransient, Op: "fetch image", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Kind: kindForStatus(resp.StatusCode), Op: "fetch image", Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, &UpstreamError{Kind: KindTransient, Op: "fetch image", Err: err}
	}
	if len(data) > maxImageSize {
		return nil, &UpstreamError{Kind: KindPermanent, Op: "fetch image", Err: fmt.Errorf("image larger than %d bytes", maxImageSize)}
	}
	return data, nil
}
