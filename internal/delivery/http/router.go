package http

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"portfolio-backend/internal/infrastructure/logging"
)

// Routes groups the handlers served by the API.
type Routes struct {
	Auth        *Authenticator
	Portfolio   *PortfolioHandler
	Tokens      *TokenHandler
	Test        *TestHandler
	Live        http.HandlerFunc
	Failures    func() map[string]int // upstream failure counts shown on /healthz
	CORSOrigins []string
	Logger      *logging.Logger
}

// NewRouter registers every route. All routes except health require an
// authenticated user.
func NewRouter(routes Routes) http.Handler {
	logger := routes.Logger
	if logger == nil {
		logger = logging.NewSilentLogger()
	}

	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))
	router.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(false)))

	router.HandleFunc("/healthz", healthHandler(routes.Failures)).Methods(http.MethodGet)

	auth := routes.Auth.Require
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/portfolio", auth(routes.Portfolio.HandleGetPortfolio)).Methods(http.MethodGet)
	api.HandleFunc("/holdings", auth(routes.Portfolio.HandleListHoldings)).Methods(http.MethodGet)
	api.HandleFunc("/holdings", auth(routes.Portfolio.HandleAddHolding)).Methods(http.MethodPost)
	api.HandleFunc("/holdings/{id}", auth(routes.Portfolio.HandleDeleteHolding)).Methods(http.MethodDelete)
	api.HandleFunc("/coins/{id}/chart", auth(routes.Portfolio.HandleCoinChart)).Methods(http.MethodGet)

	api.HandleFunc("/tokens/register", auth(routes.Tokens.HandleRegisterToken)).Methods(http.MethodPost)
	api.HandleFunc("/tokens/unregister", auth(routes.Tokens.HandleUnregisterToken)).Methods(http.MethodPost)
	api.HandleFunc("/tokens/count", auth(routes.Tokens.HandleGetTokenCount)).Methods(http.MethodGet)
	if routes.Test != nil {
		api.HandleFunc("/tokens/test", auth(routes.Test.SendTestNotification)).Methods(http.MethodPost)
	}

	if routes.Live != nil {
		router.HandleFunc("/ws", auth(routes.Live)).Methods(http.MethodGet)
	}

	origins := routes.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(router)
}

type healthResponse struct {
	Status           string         `json:"status"`
	UpstreamFailures map[string]int `json:"upstreamFailures,omitempty"`
}

func healthHandler(failures func() map[string]int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if failures != nil {
			resp.UpstreamFailures = failures()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// The websocket upgrade needs the raw writer to hijack it.
			if r.URL.Path == "/ws" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
