package devserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/shaneisley/taskslot/pkg/client"
	"github.com/shaneisley/taskslot/pkg/logging"
	"github.com/shaneisley/taskslot/pkg/tasks"
)

// DefaultEmail is reported by /user when no address is configured
const DefaultEmail = "dev@localhost"

// DefaultTitles seed the pending list when no tasks are given
var DefaultTitles = []string{"Write weekly report", "Review open pull requests", "Plan sprint demo"}

// Options configure a Server
type Options struct {
	Addr     string
	Email    string
	Titles   []string
	Location *time.Location
	Logger   *logging.Logger
}

// Server is an in-memory stand-in for the scheduling backend
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *logging.Logger
	location   *time.Location
	email      string
	now        func() time.Time

	mu      sync.Mutex
	pending []tasks.Task
	events  []Event
}

// New constructs a server with its routes registered
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	location := opts.Location
	if location == nil {
		location = time.Local
	}
	email := opts.Email
	if email == "" {
		email = DefaultEmail
	}
	titles := opts.Titles
	if titles == nil {
		titles = DefaultTitles
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		logger:   logger.WithComponent("devserver"),
		location: location,
		email:    email,
		now:      time.Now,
	}
	for _, title := range titles {
		s.AddTask(title, "")
	}

	router.Use(s.requestLogger)
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:        opts.Addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get(client.PathLoadTasks, s.handleLoadTasks)
	s.router.Get(client.PathUser, s.handleUser)
	s.router.Post(client.PathSchedule, s.handleSchedule)
}

// Handler exposes the router for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// AddTask appends a pending task with a fresh identifier
func (s *Server) AddTask(title, notes string) tasks.Task {
	task := tasks.Task{ID: uuid.NewString(), Title: title, Notes: notes}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, task)
	return task
}

// Pending returns a copy of the tasks not yet scheduled
func (s *Server) Pending() []tasks.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tasks.Task{}, s.pending...)
}

// Events returns a copy of the calendar events created so far
func (s *Server) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request served",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String())
	})
}
