package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/newtron-network/netedit/pkg/auth"
	"github.com/newtron-network/netedit/pkg/util"
)

// UserHeader names the acting user for permission checks and the audit log.
const UserHeader = "X-Netedit-User"

// Logger logs each request at debug level, and failures at warn.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		entry := util.WithFields(util.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		})
		if ww.Status() >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request")
	})
}

// requirePermission rejects requests whose user lacks perm on the
// server's node. A server without a checker allows everything.
func (s *Server) requirePermission(perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.checker != nil {
				ctx := auth.NewContext().WithNode(s.node())
				if id := chi.URLParam(r, "id"); id != "" {
					ctx.WithRow(id + "/" + chi.URLParam(r, "link"))
				}
				if err := s.checker.CheckUser(s.user(r), perm, ctx); err != nil {
					writeError(w, err)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) user(r *http.Request) string {
	if u := r.Header.Get(UserHeader); u != "" {
		return u
	}
	if s.checker != nil {
		return s.checker.CurrentUser()
	}
	return ""
}
