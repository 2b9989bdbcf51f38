// Package httpd is the HTTP front door of the relay daemon. GET serves a
// small submission form; every other method is treated as a poke for the
// topic named by the URL path.
package httpd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/arcuru/pokem/internal/poke"
	logx "github.com/arcuru/pokem/pkg/logx"
)

const maxBodyBytes = 1 << 20

// Config controls the listener.
type Config struct {
	Addr       string
	Port       int
	RatePerSec int
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 80
	}
	return c
}

func (c Config) listenAddr() string {
	return net.JoinHostPort(c.Addr, fmt.Sprintf("%d", c.Port))
}

// Server owns the HTTP listener lifecycle.
type Server struct {
	mu   sync.Mutex
	srv  *http.Server
	ln   net.Listener
	addr string

	pipeline *poke.Pipeline
	// nicknames snapshots the topic table; called per request so config
	// reloads take effect without a restart.
	nicknames func() map[string]string
	limiter   *ipLimiter
	log       logx.Logger
}

// New builds a stopped server. nicknames may be nil when no topic table is
// configured.
func New(cfg Config, pipeline *poke.Pipeline, nicknames func() map[string]string, log logx.Logger) *Server {
	if nicknames == nil {
		nicknames = func() map[string]string { return nil }
	}
	return &Server{
		pipeline:  pipeline,
		nicknames: nicknames,
		limiter:   newIPLimiter(cfg.RatePerSec),
		log:       log.With(logx.String("comp", "httpd")),
		addr:      cfg.withDefaults().listenAddr(),
	}
}

// Start binds the listener and serves in a background goroutine.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	srv := &http.Server{
		Handler:           http.HandlerFunc(s.handle),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("httpd listen on %s: %w", s.addr, err)
	}

	s.srv = srv
	s.ln = ln
	s.addr = ln.Addr().String()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", logx.String("addr", s.addr), logx.Err(err))
		}
	}()
	s.log.Info("listening", logx.String("addr", s.addr))
	return nil
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return
	}
	srv := s.srv
	s.srv = nil
	s.ln = nil

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil {
		s.log.Warn("http shutdown", logx.Err(err))
	}
}

// Addr returns the bound address; useful when Port was 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// handle routes one request: GET is always the form page, anything else is a
// poke attempt. The two poke outcomes mirror the deployed wire contract:
// 200 "OK" and 404 "Failed to send message", with nothing more specific
// leaked to the caller.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			io.WriteString(w, formPage)
		}
		return
	}

	if !s.limiter.Allow(r.RemoteAddr) {
		s.log.Warn("poke rate limited", logx.String("remote", r.RemoteAddr))
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w)
		return
	}

	n, err := poke.Normalize(poke.RawRequest{
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header,
		Body:   body,
	})
	if err != nil {
		s.log.Warn("malformed poke", logx.String("remote", r.RemoteAddr), logx.Err(err))
		s.fail(w)
		return
	}

	target, mention := poke.ResolveTopic(s.nicknames(), n.Topic, n.Urgent())
	d := poke.Delivery{
		Topic:       n.Topic,
		Target:      target,
		Header:      r.Header,
		Message:     n.Body(),
		MentionRoom: mention,
	}
	if err := s.pipeline.Deliver(r.Context(), d); err != nil {
		s.fail(w)
		return
	}
	io.WriteString(w, "OK")
}

func (s *Server) fail(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	io.WriteString(w, "Failed to send message")
}
