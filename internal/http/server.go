package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	"expenses/internal/notify"
	"expenses/internal/report"
	"expenses/internal/services"
)

// Ledger is the set of service operations the API exposes.
type Ledger interface {
	Categories(ctx context.Context) (core.Collection, error)
	AddCategory(ctx context.Context, name, typ string) (core.Category, error)
	DeleteCategory(ctx context.Context, name string) error
	AddTransaction(ctx context.Context, category string, in core.TransactionInput) (core.Transaction, bool, error)
	DeleteTransaction(ctx context.Context, category, id string) error
	DeleteTransactionByID(ctx context.Context, id string) (string, error)
	Summary(ctx context.Context, p core.Period) (report.Totals, error)
	Series(ctx context.Context, unit report.Bucket, lastN int) ([]report.Point, error)
	Distribution(ctx context.Context, typ core.CategoryType) ([]report.CategoryAmount, error)
	Weekly(ctx context.Context, weeks int) (services.WeeklyView, error)
	Recent(ctx context.Context, limit int) ([]report.Entry, error)
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	ledger   Ledger
	hub      *notify.Hub
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	slog     *log.StructuredLogger
	currency string

	heartbeat time.Duration
	started   time.Time

	// closed on Shutdown so open event streams return
	done         chan struct{}
	shutdownOnce sync.Once
}

// Options tunes a Server. Zero values take defaults.
type Options struct {
	Logger            *log.Logger
	Currency          string
	RequestsPerMinute int
	TrustedProxies    []string
	Heartbeat         time.Duration
}

const (
	defaultRecentLimit = 5
	maxRecentLimit     = 100
	defaultHeartbeat   = 25 * time.Second
)

// NewServer wires routes and middleware. hub may be nil, in which case the
// event stream endpoint answers 503.
func NewServer(addr string, ledger Ledger, hub *notify.Hub, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = defaultHeartbeat
	}

	rlConfig := ratelimit.DefaultConfig()
	if opts.RequestsPerMinute > 0 {
		rlConfig.RequestsPerMinute = opts.RequestsPerMinute
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			opts.Logger.Warn("Ignoring trusted proxy",
				log.FieldComponent, log.ComponentSecurity,
				log.FieldError, err)
		}
	}

	s := &Server{
		ledger:    ledger,
		hub:       hub,
		limiter:   ratelimit.NewLimiter(rlConfig),
		detector:  detector,
		slog:      log.NewStructuredLogger(opts.Logger.WithComponent(log.ComponentHTTP)),
		currency:  opts.Currency,
		heartbeat: opts.Heartbeat,
		started:   time.Now(),
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("DELETE /api/categories/{name}", s.handleDeleteCategory)
	mux.HandleFunc("POST /api/categories/{name}/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/categories/{name}/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransactionByID)
	mux.HandleFunc("GET /api/transactions/recent", s.handleRecent)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/series", s.handleSeries)
	mux.HandleFunc("GET /api/charts/{kind}", s.handleChart)
	mux.HandleFunc("GET /api/events", s.handleEvents)

	s.tracer = trace.NewMiddleware(opts.Logger, detector.ExtractClientIP)
	limit := s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})

	var handler http.Handler = mux
	handler = limit(handler)
	handler = security.Headers(365 * 24 * time.Hour)(handler)
	handler = detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: /api/events streams for the life of the client.
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Shutdown ends open event streams, stops the rate limiter janitor and
// drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		close(s.done)
		s.limiter.Stop()
	})
	return s.Server.Shutdown(ctx)
}
