package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mcoot/roomserver/internal/model"
)

// TokenHeader carries the caller's credential to the Account Manager
const TokenHeader = "token"

const (
	verifyPath  = "profile/verify-token"
	profilePath = "profile/data/by_suid/"
)

// maxBodyBytes bounds how much of an Account Manager response is read
const maxBodyBytes = 1 << 20

// Config holds configuration for the Account Manager client
type Config struct {
	// BaseURL is the Account Manager root, e.g. https://accounts.example.com/
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns default identity client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8081/",
		Timeout: 3 * time.Second,
	}
}

// Client resolves bearer credentials to players via the Account Manager
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a new Account Manager client
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	base := cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type suidResponse struct {
	SUID model.SUID `json:"suid"`
}

// Verify checks the credential with the Account Manager. A nil error means
// the token is authorized. Transport failures yield model.ErrDelegateUnreachable
// and any non-200 answer yields model.ErrUnauthorized.
func (c *Client) Verify(ctx context.Context, jwt string) error {
	resp, err := c.verifyRequest(ctx, jwt)
	if err != nil {
		if isTimeout(ctx, err) {
			return fmt.Errorf("%w: verify token: %w", model.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", model.ErrDelegateUnreachable, err)
	}
	defer drainClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("token rejected", "status", resp.StatusCode)
		return fmt.Errorf("%w: account manager returned %d", model.ErrUnauthorized, resp.StatusCode)
	}
	return nil
}

// Resolve exchanges the credential for the caller's suid, then fetches the
// full player profile.
func (c *Client) Resolve(ctx context.Context, jwt string) (model.Player, error) {
	suid, err := c.resolveSUID(ctx, jwt)
	if err != nil {
		return model.Player{}, err
	}
	return c.fetchPlayer(ctx, suid)
}

func (c *Client) resolveSUID(ctx context.Context, jwt string) (model.SUID, error) {
	resp, err := c.verifyRequest(ctx, jwt)
	if err != nil {
		if isTimeout(ctx, err) {
			return "", fmt.Errorf("%w: resolve suid: %w", model.ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %w", model.ErrAccountRequest, err)
	}
	defer drainClose(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil || len(body) == 0 {
		return "", fmt.Errorf("%w: empty verify-token body", model.ErrUnauthorized)
	}

	var parsed suidResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrAccountResponseText, err)
	}
	if parsed.SUID == "" {
		return "", fmt.Errorf("%w: missing suid", model.ErrAccountResponseText)
	}
	return parsed.SUID, nil
}

func (c *Client) fetchPlayer(ctx context.Context, suid model.SUID) (model.Player, error) {
	endpoint := c.baseURL + profilePath + url.PathEscape(string(suid))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Player{}, fmt.Errorf("%w: %w", model.ErrPlayerParse, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return model.Player{}, fmt.Errorf("%w: fetch profile: %w", model.ErrTimeout, err)
		}
		return model.Player{}, fmt.Errorf("%w: fetch profile: %w", model.ErrPlayerParse, err)
	}
	defer drainClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return model.Player{}, fmt.Errorf("%w: profile lookup returned %d", model.ErrPlayerParse, resp.StatusCode)
	}

	var player model.Player
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&player); err != nil {
		return model.Player{}, fmt.Errorf("%w: %w", model.ErrPlayerParse, err)
	}
	if player.SUID != suid {
		return model.Player{}, fmt.Errorf("%w: profile suid %q does not match %q", model.ErrPlayerParse, player.SUID, suid)
	}

	c.logger.Debug("resolved player", "suid", suid, "username", player.Username)
	return player, nil
}

func (c *Client) verifyRequest(ctx context.Context, jwt string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+verifyPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(TokenHeader, jwt)
	return c.http.Do(req)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxBodyBytes))
	_ = body.Close()
}
