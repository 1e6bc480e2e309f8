// Package devtools serves a per-view inspector endpoint on localhost while
// the host keeps devtools open: a JSON snapshot route plus a websocket that
// streams state updates.
package devtools

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Snapshot is the inspectable state of one view.
type Snapshot struct {
	ViewID     string `json:"view_id"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Fullscreen bool   `json:"fullscreen"`
	Closing    bool   `json:"closing"`
}

// Server is one view's inspector endpoint.
type Server struct {
	ln   net.Listener
	srv  *http.Server
	log  *zap.Logger
	snap func() Snapshot

	mu   sync.Mutex
	subs map[chan Snapshot]struct{}
}

// Start listens on an ephemeral localhost port and begins serving.
func Start(log *zap.Logger, snap func() Snapshot) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &Server{
		ln:   ln,
		log:  log,
		snap: snap,
		subs: make(map[chan Snapshot]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/json", s.handleJSON)
	mux.HandleFunc("/ws", s.handleWS)
	s.srv = &http.Server{Handler: mux}
	go func() {
		_ = s.srv.Serve(ln)
	}()
	return s, nil
}

// Addr returns the endpoint's listen address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Publish pushes a state update to every connected websocket client.
func (s *Server) Publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Close stops serving and drops all clients.
func (s *Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	data, err := sonic.Marshal(s.snap())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := make(chan Snapshot, 8)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}()

	// Initial snapshot, then updates as they are published.
	if err := writeSnapshot(r.Context(), conn, s.snap()); err != nil {
		return
	}
	for {
		select {
		case snap := <-ch:
			if err := writeSnapshot(r.Context(), conn, snap); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func writeSnapshot(ctx context.Context, conn *websocket.Conn, snap Snapshot) error {
	data, err := sonic.Marshal(snap)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
