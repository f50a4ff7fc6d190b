package net

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"TacticalBoard/internal/state"
)

// Client talks to a project server. Calls are serialized; each one sends a
// request and waits for its response.
type Client struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	nextID uint64
	user   string
}

// Dial connects to a server. url may be ws://host:port/ws or just host:port.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, NormalizeURL(url), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	conn.SetReadLimit(maxMessageSize)
	return &Client{conn: conn}, nil
}

// NormalizeURL expands host:port into a websocket URL for the endpoint.
func NormalizeURL(url string) string {
	if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		url = "ws://" + url
	}
	if !strings.HasSuffix(url, Path) {
		url = strings.TrimSuffix(url, "/") + Path
	}
	return url
}

func (c *Client) call(ctx context.Context, req Request) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	req.ID = c.nextID
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(30 * time.Second)
	}
	c.conn.SetWriteDeadline(deadline)
	c.conn.SetReadDeadline(deadline)

	if err := c.conn.WriteJSON(req); err != nil {
		return Response{}, fmt.Errorf("%s: %w", req.Op, err)
	}
	var resp Response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return Response{}, fmt.Errorf("%s: %w", req.Op, err)
	}
	if resp.ID != req.ID {
		return Response{}, fmt.Errorf("%s: response id %d does not match request %d", req.Op, resp.ID, req.ID)
	}
	if !resp.OK {
		return resp, fmt.Errorf("%w: %s", ErrRemote, resp.Error)
	}
	return resp, nil
}

// User is the name the client logged in as, or empty.
func (c *Client) User() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Client) setUser(u string) {
	c.mu.Lock()
	c.user = u
	c.mu.Unlock()
}

func (c *Client) SignUp(ctx context.Context, user, password string) error {
	if _, err := c.call(ctx, Request{Op: OpSignUp, User: user, Password: password}); err != nil {
		return err
	}
	c.setUser(user)
	return nil
}

func (c *Client) Login(ctx context.Context, user, password string) error {
	if _, err := c.call(ctx, Request{Op: OpLogin, User: user, Password: password}); err != nil {
		return err
	}
	c.setUser(user)
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.call(ctx, Request{Op: OpLogout}); err != nil {
		return err
	}
	c.setUser("")
	return nil
}

// Save stores p under p.Name for the logged-in user.
func (c *Client) Save(ctx context.Context, p state.Project) error {
	data, err := state.EncodeProject(p)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, Request{Op: OpSave, Name: p.Name, Project: data})
	return err
}

// Load fetches and decodes a project. The caller's state is not touched;
// applying it is up to the caller.
func (c *Client) Load(ctx context.Context, name string) (state.Project, error) {
	resp, err := c.call(ctx, Request{Op: OpLoad, Name: name})
	if err != nil {
		return state.Project{}, err
	}
	return state.DecodeProject(resp.Project)
}

func (c *Client) List(ctx context.Context) ([]string, error) {
	resp, err := c.call(ctx, Request{Op: OpList})
	if err != nil {
		return nil, err
	}
	return resp.Names, nil
}

func (c *Client) Delete(ctx context.Context, name string) error {
	_, err := c.call(ctx, Request{Op: OpDelete, Name: name})
	return err
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}
