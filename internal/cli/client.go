package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/mcoot/roomserver/internal/protocol"
	"github.com/mcoot/roomserver/internal/services/identity"
)

// Client talks to the server: REST for inspection, a WebSocket for commands
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Token returns the credential sent with commands
func (c *Client) Token() string {
	return c.token
}

// APIError represents an error response from the API
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an API error
type ErrorResponse struct {
	Error APIError `json:"error"`
}

func (e *APIError) String() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Get performs a GET request against the REST surface
func (c *Client) Get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set(identity.TokenHeader, c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Health reports degraded state with a body worth showing
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusServiceUnavailable {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Code != "" {
			return errors.New(errResp.Error.String())
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// StatusError is a non-200 reply to a socket command
type StatusError struct {
	Status protocol.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server replied %d (%s)", int(e.Status), e.Status)
}

// Socket is one open signaling session
type Socket struct {
	conn *websocket.Conn
}

// socketURL maps the server's http(s) base to its ws(s) endpoint
func socketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Dial opens a signaling session
func (c *Client) Dial(ctx context.Context) (*Socket, error) {
	target, err := socketURL(c.baseURL)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &Socket{conn: conn}, nil
}

// SendRaw writes one text frame and waits for its reply
func (s *Socket) SendRaw(ctx context.Context, frame []byte) (protocol.Response, error) {
	if err := s.conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return protocol.Response{}, fmt.Errorf("write: %w", err)
	}
	_, reply, err := s.conn.Read(ctx)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("read: %w", err)
	}
	return protocol.DecodeResponse(reply)
}

// Do sends a command and returns the room from a successful reply
func (s *Socket) Do(ctx context.Context, cmd protocol.Command) (*Room, error) {
	frame, err := protocol.Encode(cmd)
	if err != nil {
		return nil, err
	}
	resp, err := s.SendRaw(ctx, frame)
	if err != nil {
		return nil, err
	}
	if resp.Status != protocol.StatusOK {
		return nil, &StatusError{Status: resp.Status}
	}
	if resp.Room == nil {
		return nil, errors.New("reply has no room")
	}
	var room Room
	if err := json.Unmarshal([]byte(*resp.Room), &room); err != nil {
		return nil, fmt.Errorf("failed to parse room: %w", err)
	}
	return &room, nil
}

// Close ends the session
func (s *Socket) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
