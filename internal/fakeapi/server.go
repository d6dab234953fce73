// Package fakeapi is an in-memory finance service for local development and
// tests. It serves the same routes and JSON shapes as the real backend, issues
// integer ids, and can inject failures on demand.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
)

// Server is the fake finance service. It is safe for concurrent use.
type Server struct {
	mu          sync.Mutex
	nextID      int64
	txs         *table[core.Transaction]
	assets      *table[core.Asset]
	liabilities *table[core.Liability]
	tokens      map[string]string // token -> user id
	failures    []failure
	emptyUpdate bool
	requireAuth bool
	gate        chan struct{}
	hits        map[string]int
	limiter     *ratelimit.Limiter

	logger *log.Logger
	router chi.Router
}

type failure struct {
	status int
	detail string
}

type Option func(*Server)

// WithLogger logs every request through the request logger middleware.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l.WithComponent(log.ComponentDevServer) }
}

// RequireAuth rejects /api requests that do not carry a token issued by GET /users/{id}.
func RequireAuth() Option {
	return func(s *Server) { s.requireAuth = true }
}

// WithRateLimit answers 429 once a caller exceeds requests per period on /api.
func WithRateLimit(requests int, period time.Duration) Option {
	return func(s *Server) {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{Requests: requests, Period: period})
	}
}

// New creates an empty service.
func New(opts ...Option) *Server {
	s := &Server{
		txs:         newTable("transactions", func(t *core.Transaction, id core.ID) { t.ID = id }),
		assets:      newTable("assets", func(a *core.Asset, id core.ID) { a.ID = id }),
		liabilities: newTable("liabilities", func(l *core.Liability, id core.ID) { l.ID = id }),
		tokens:      make(map[string]string),
		hits:        make(map[string]int),
		logger:      log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(log.RequestLogger(s.logger))
	r.Use(s.count)

	r.Get("/healthz", s.handleHealth)
	r.Get("/users/{userID}", s.handleToken)

	r.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware(ratelimit.CallerKey, func(w http.ResponseWriter, _ *http.Request) {
				writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded")
			}))
		}
		r.Use(s.gated, s.authenticate, s.injectFailure)

		r.Get("/dashboard/{userID}", s.handleDashboard)

		r.Get("/transactions/user/{userID}", handleList(s, s.txs))
		r.Post("/transactions", handleCreate(s, s.txs))
		r.Post("/transactions/", handleCreate(s, s.txs))
		r.Put("/transactions/{id}", handleUpdate(s, s.txs))
		r.Delete("/transactions/{id}", handleDelete(s, s.txs))

		r.Get("/assets/user/{userID}", handleList(s, s.assets))
		r.Post("/assets/", handleCreate(s, s.assets))
		r.Put("/assets/{userID}/{id}", handleUpdate(s, s.assets))
		r.Delete("/assets/{id}", handleDelete(s, s.assets))

		r.Get("/liabilities/user/{userID}", handleList(s, s.liabilities))
		r.Post("/liabilities/", handleCreate(s, s.liabilities))
		r.Put("/liabilities/{userID}/{id}", handleUpdate(s, s.liabilities))
		r.Delete("/liabilities/{id}", handleDelete(s, s.liabilities))
	})
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// FailNext makes the next /api request fail with status and detail.
// Calls queue up; each failure is consumed by one request.
func (s *Server) FailNext(status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, detail: detail})
}

// EmptyUpdates makes update endpoints answer 204 with no body.
func (s *Server) EmptyUpdates(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emptyUpdate = on
}

// Hold blocks /api requests until the returned release func is called.
func (s *Server) Hold() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gate == gate {
				s.gate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Hits returns how many requests reached path (as sent, without query).
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// Seed stores records for userID as if they had been created through the API
// and returns them with their assigned ids.
func (s *Server) Seed(userID string, txs []core.Transaction, assets []core.Asset, liabilities []core.Liability) ([]core.Transaction, []core.Asset, []core.Liability) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outTx := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		outTx = append(outTx, s.txs.insert(userID, s.newID(), t))
	}
	outA := make([]core.Asset, 0, len(assets))
	for _, a := range assets {
		outA = append(outA, s.assets.insert(userID, s.newID(), a))
	}
	outL := make([]core.Liability, 0, len(liabilities))
	for _, l := range liabilities {
		outL = append(outL, s.liabilities.insert(userID, s.newID(), l))
	}
	return outTx, outA, outL
}

// Len reports the number of stored records across all users.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txs.len() + s.assets.len() + s.liabilities.len()
}

// newID must be called with s.mu held.
func (s *Server) newID() core.ID {
	s.nextID++
	return core.ID(strconv.FormatInt(s.nextID, 10))
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) gated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		gate := s.gate
		s.mu.Unlock()
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.requireAuth {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		_, known := s.tokens[token]
		s.mu.Unlock()
		if !ok || !known {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var f *failure
		if len(s.failures) > 0 {
			f = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()
		if f != nil {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "records": s.Len()})
}

// handleToken issues the service's own token for a user.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}
	token := "fake." + uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = userID
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{
		"aud":           "authenticated",
		"jwt_token":     token,
		"refresh_token": uuid.NewString(),
	})
}

// userParam validates the {userID} route parameter as a UUID.
func userParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := chi.URLParam(r, "userID")
	if _, err := uuid.Parse(userID); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid user ID format")
		return "", false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
