package net

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"TacticalBoard/internal/state"
	"TacticalBoard/internal/storage"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 32 << 20 // projects may embed logo images
)

// peer is one connected GUI.
type peer struct {
	id   string
	conn *websocket.Conn
	user string // empty until login
}

// Server answers project RPCs. Every project operation is scoped to the
// user the connection logged in as.
type Server struct {
	store      storage.Store
	upgrader   websocket.Upgrader
	peers      map[string]*peer
	mu         sync.RWMutex
	httpServer *http.Server
}

func NewServer(store storage.Store) *Server {
	return &Server{
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		peers: make(map[string]*peer),
	}
}

// Handler returns the HTTP handler serving the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.serveWS)
	return mux
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.Handler()}
	errc := make(chan error, 1)
	go func() {
		log.Printf("[NET] Project server listening on %s", addr)
		errc <- s.httpServer.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closePeers()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Peers returns the number of open connections.
func (s *Server) Peers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

func (s *Server) add(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[p.id] = p
	log.Printf("[NET] Client %s connected from %s", p.id, p.conn.RemoteAddr())
}

func (s *Server) remove(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.peers, p.id)
	log.Printf("[NET] Client %s disconnected", p.id)
}

func (s *Server) closePeers() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.peers {
		p.conn.Close()
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[NET] Upgrade failed: %v", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)
	p := &peer{id: uuid.NewString(), conn: conn}
	s.add(p)
	defer func() {
		s.remove(p)
		conn.Close()
	}()

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[NET] Read from %s failed: %v", p.id, err)
			}
			return
		}
		resp := s.handle(p, req)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(resp); err != nil {
			log.Printf("[NET] Write to %s failed: %v", p.id, err)
			return
		}
	}
}

func (s *Server) handle(p *peer, req Request) Response {
	resp := Response{ID: req.ID}
	if err := s.dispatch(p, req, &resp); err != nil {
		resp.Error = err.Error()
		log.Printf("[NET] %s %s failed: %v", p.id, req.Op, err)
		return resp
	}
	resp.OK = true
	return resp
}

func (s *Server) dispatch(p *peer, req Request, resp *Response) error {
	switch req.Op {
	case OpSignUp:
		if err := s.store.UserAdd(req.User, req.Password); err != nil {
			return err
		}
		p.user = req.User
		return nil
	case OpLogin:
		if err := s.store.UserAuthenticate(req.User, req.Password); err != nil {
			return err
		}
		p.user = req.User
		return nil
	case OpLogout:
		p.user = ""
		return nil
	}

	if p.user == "" {
		return ErrNotLoggedIn
	}
	switch req.Op {
	case OpSave:
		proj, err := state.DecodeProject(req.Project)
		if err != nil {
			return fmt.Errorf("invalid project: %w", err)
		}
		if req.Name != "" {
			proj.Name = req.Name
		}
		data, err := state.EncodeProject(proj)
		if err != nil {
			return err
		}
		return s.store.ProjectSave(p.user, proj.Name, data)
	case OpLoad:
		data, err := s.store.ProjectLoad(p.user, req.Name)
		if err != nil {
			return err
		}
		resp.Project = data
		return nil
	case OpList:
		infos, err := s.store.ProjectList(p.user)
		if err != nil {
			return err
		}
		resp.Names = make([]string, len(infos))
		for i, info := range infos {
			resp.Names[i] = info.Name
		}
		return nil
	case OpDelete:
		return s.store.ProjectDelete(p.user, req.Name)
	default:
		return fmt.Errorf("unknown op %q", req.Op)
	}
}
