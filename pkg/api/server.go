// Package api serves one editing session over HTTP. Every route reads or
// transitions the same Session, so requests are serialized.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/newtron-network/netedit/pkg/audit"
	"github.com/newtron-network/netedit/pkg/auth"
	"github.com/newtron-network/netedit/pkg/health"
	"github.com/newtron-network/netedit/pkg/metrics"
	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/mutation"
	"github.com/newtron-network/netedit/pkg/session"
	"github.com/newtron-network/netedit/pkg/source"
	"github.com/newtron-network/netedit/pkg/topology"
	"github.com/newtron-network/netedit/pkg/util"
)

// Config wires a Server. Session and Client are required.
type Config struct {
	Session *session.Session
	Client  mutation.Client
	// Source, when set, is re-read after every successful commit.
	Source source.Source
	// Checker, when set, gates write routes per user.
	Checker   *auth.Checker
	Collector *metrics.Collector
}

// Server is the HTTP surface of a Session.
type Server struct {
	mu      sync.Mutex
	sess    *session.Session
	client  mutation.Client
	src     source.Source
	checker *auth.Checker
	metrics *metrics.Collector
	router  chi.Router
}

// NewServer builds the router for cfg.
func NewServer(cfg Config) *Server {
	s := &Server{
		sess:    cfg.Session,
		client:  cfg.Client,
		src:     cfg.Source,
		checker: cfg.Checker,
		metrics: cfg.Collector,
	}
	if s.metrics != nil {
		s.sess.SetObserver(s.metrics)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(Logger)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	edit := s.requirePermission(auth.PermInterfaceEdit)
	r.Route("/api/v1", func(r chi.Router) {
		r.With(s.requirePermission(auth.PermInterfaceView)).Group(func(r chi.Router) {
			r.Get("/rows", s.handleRows)
			r.Get("/vlans", s.handleVLANs)
			r.Get("/state", s.handleState)
			r.Get("/health", s.handleHealth)
			r.Post("/select/{id}/{link}", s.handleKey(s.sess.Select))
			r.Post("/deselect/{id}/{link}", s.handleKey(s.sess.Deselect))
		})

		r.With(edit).Post("/add", s.handle(s.sess.Add))
		r.With(s.requirePermission(auth.PermInterfaceDelete)).Group(func(r chi.Router) {
			r.Post("/delete", s.handle(s.sess.Delete))
			r.Post("/delete/{id}/{link}", s.handleKey(s.sess.QuickDelete))
		})
		r.With(s.requirePermission(auth.PermBondCreate)).Post("/create-bond", s.handle(s.sess.CreateBond))
		r.With(s.requirePermission(auth.PermBridgeCreate)).Post("/create-bridge", s.handle(s.sess.CreateBridge))
		r.With(edit).Post("/create-physical", s.handle(s.sess.CreatePhysical))
		r.With(edit).Post("/edit/{id}/{link}", s.handleKey(s.sess.Edit))
		r.With(edit).Post("/edit/members/{id}/{link}", s.handleKey(s.sess.ToggleMember))
		r.With(edit).Patch("/draft", s.handleUpdateDraft)
		r.Post("/cancel", s.handle(func() error {
			s.sess.Cancel()
			return nil
		}))
		r.With(edit).Post("/commit", s.handleCommit)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Update hands the session a new snapshot, typically from source.Watch.
func (s *Server) Update(snap *model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess.Update(snap)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		util.Infof("API listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		util.Infof("API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) node() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.Node()
}

func (s *Server) handleRows(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, s.sess.Rows())
}

func (s *Server) handleVLANs(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, s.sess.VLANTable())
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, s.sess.State())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, health.NewChecker().Run(s.sess.Snapshot()))
}

// handle runs a transition and answers with the resulting state.
func (s *Server) handle(fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := fn(); err != nil {
			writeError(w, err)
			return
		}
		writeData(w, s.sess.State())
	}
}

// handleKey is handle for transitions on one row, addressed by the
// {id}/{link} path segments.
func (s *Server) handleKey(fn func(topology.RowKey) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := rowKey(r)
		if err != nil {
			writeInvalidRequest(w, err.Error())
			return
		}
		s.handle(func() error { return fn(key) })(w, r)
	}
}

func rowKey(r *http.Request) (topology.RowKey, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return "", fmt.Errorf("invalid interface id %q", chi.URLParam(r, "id"))
	}
	link, err := strconv.Atoi(chi.URLParam(r, "link"))
	if err != nil {
		return "", fmt.Errorf("invalid link id %q", chi.URLParam(r, "link"))
	}
	return topology.Key(id, link), nil
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeInvalidRequest(w, "body must be a JSON object of field names to string values")
		return
	}
	s.handle(func() error { return s.sess.UpdateDraft(fields) })(w, r)
}

// CommitResponse is the body of a successful commit.
type CommitResponse struct {
	Operation string            `json:"operation"`
	Changes   []mutation.Change `json:"changes"`
	State     session.State     `json:"state"`
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	ctx := audit.WithClientIP(r.Context(), clientIP(r))
	if u := s.user(r); u != "" {
		ctx = audit.WithUser(ctx, u)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cs, err := s.sess.Commit(ctx, s.client)
	if err != nil {
		var me *util.MutationError
		if errors.As(err, &me) || errors.Is(err, util.ErrValidationFailed) {
			// The draft stays open with its field errors.
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: APIError{
				Code:    codeOf(err),
				Message: err.Error(),
				Fields:  s.sess.State().Errors,
			}})
			return
		}
		writeError(w, err)
		return
	}

	if s.src != nil {
		if err := s.sess.Refresh(ctx, s.src); err != nil {
			util.WithNode(s.sess.Node()).Warnf("Refresh after commit: %v", err)
		}
	}
	writeData(w, CommitResponse{Operation: cs.Operation, Changes: cs.Changes, State: s.sess.State()})
}

// clientIP is the caller's address without its port. RealIP has already
// applied any forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func codeOf(err error) ErrorCode {
	_, code := classify(err)
	return code
}
