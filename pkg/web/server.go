// Package web serves the browser host: a page with an editor, the matrix
// canvas and the five buttons, and a websocket session per tab that runs
// programs and streams the device output back.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"blackbox/pkg/compiler"
	"blackbox/pkg/interp"
	"blackbox/pkg/scheduler"
	"blackbox/pkg/vfs"
)

//go:embed static
var static embed.FS

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Config carries the server settings. Zero values fall back to defaults.
type Config struct {
	// Storage is where the sketchbook persists: a directory, or a SQLite
	// file when it ends in ".db". Empty keeps the sketchbook in memory only.
	Storage        string
	IterationDelay time.Duration
	StepBudget     int
	Logger         *log.Logger
}

type Server struct {
	cfg      Config
	book     *vfs.Sketchbook
	store    vfs.Store
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewServer returns a server over book, loading it from cfg.Storage first.
// Call Close to flush and release the storage.
func NewServer(book *vfs.Sketchbook, cfg Config) (*Server, error) {
	if book == nil {
		book = vfs.NewSketchbook()
	}
	if cfg.IterationDelay <= 0 {
		cfg.IterationDelay = scheduler.DefaultIterationDelay
	}
	if cfg.StepBudget == 0 {
		cfg.StepBudget = interp.DefaultStepBudget
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	var store vfs.Store
	if cfg.Storage != "" {
		var err error
		if store, err = vfs.OpenStore(cfg.Storage); err != nil {
			return nil, err
		}
		if err := store.Load(book); err != nil {
			store.Close()
			return nil, err
		}
	}
	return &Server{
		cfg:    cfg,
		book:   book,
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		sessions: make(map[string]*Session),
	}, nil
}

// Handler routes the page, the sketch list and the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	page, _ := fs.Sub(static, "static")
	mux.Handle("GET /", http.FileServer(http.FS(page)))
	mux.HandleFunc("GET /sketches", s.handleSketches)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

func (s *Server) handleSketches(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	names := s.book.Sketches()
	if names == nil {
		names = []string{}
	}
	json.NewEncoder(w).Encode(names)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade: %v", err)
		return
	}
	sess := newSession(s, conn)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.logger.Printf("session %s opened from %s", sess.ID, conn.RemoteAddr())

	sess.serve()

	s.mu.Lock()
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
	s.logger.Printf("session %s closed", sess.ID)
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// persist writes the sketchbook back to storage, if there is any.
func (s *Server) persist() error {
	if s.store == nil {
		return nil
	}
	return s.store.Persist(s.book)
}

// Close flushes the sketchbook and releases the store.
func (s *Server) Close() error {
	if s.store == nil {
		return nil
	}
	err := s.persist()
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	s.logger.Printf("listening on %s", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// errorText is the message shown for err, followed by the offending
// source line when there is one.
func errorText(err error) string {
	if ex := compiler.Excerpt(err); ex != "" {
		return err.Error() + "\n  |> " + ex
	}
	return err.Error()
}

// errorLine returns the source line an error points at, or 0.
func errorLine(err error) int {
	var pe *compiler.ParseError
	var ve *compiler.ValidationError
	var be *interp.BindError
	var re *interp.RuntimeError
	switch {
	case errors.As(err, &pe):
		return pe.Line
	case errors.As(err, &ve):
		return ve.Line
	case errors.As(err, &be):
		return be.Line
	case errors.As(err, &re):
		return re.Line
	}
	return 0
}
