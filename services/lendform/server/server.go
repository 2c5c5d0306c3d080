package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"corefi/services/lendform"
)

const maxBodyBytes = 16 << 10

// Config wires the collaborators of the HTTP surface.
type Config struct {
	Form          *lendform.Form
	Wallet        lendform.Wallet
	Notifications *lendform.Broadcaster
	Auth          *Authenticator
	Limiter       *RateLimiter
	Logger        *slog.Logger
	AllowOrigins  []string
}

// Server exposes the lend form as a JSON API with a toast stream.
type Server struct {
	form          *lendform.Form
	wallet        lendform.Wallet
	notifications *lendform.Broadcaster
	logger        *slog.Logger
	handler       http.Handler
}

// New builds the router.
func New(cfg Config) (*Server, error) {
	if cfg.Form == nil {
		return nil, errors.New("form required")
	}
	if cfg.Notifications == nil {
		cfg.Notifications = lendform.NewBroadcaster(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		form:          cfg.Form,
		wallet:        cfg.Wallet,
		notifications: cfg.Notifications,
		logger:        cfg.Logger.With(slog.String("component", "lendformd")),
	}

	r := chi.NewRouter()
	r.Use(cors(cfg.AllowOrigins))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.With(observe("form.get")).Get("/lend/form", s.getForm)
		v1.With(observe("form.put")).Put("/lend/form", s.putForm)
		v1.With(observe("notifications")).Get("/lend/notifications", s.streamNotifications)
		v1.Group(func(protected chi.Router) {
			protected.Use(cfg.Auth.Middleware(ScopeSubmit))
			protected.With(observe("submit"), cfg.Limiter.Middleware("submit")).Post("/lend/submit", s.submit)
			protected.With(observe("connect"), cfg.Limiter.Middleware("connect")).Post("/wallet/connect", s.connect)
		})
	})

	s.handler = otelhttp.NewHandler(r, "lendformd")
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) getForm(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.form.View())
}

type amountRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) putForm(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	s.form.SetAmount(req.Amount)
	writeJSON(w, http.StatusOK, s.form.View())
}

type submitResponse struct {
	Outcome lendform.Outcome `json:"outcome"`
	View    lendform.View    `json:"view"`
	Error   string           `json:"error,omitempty"`
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	// The sequence is not cancellable once started, so a client hanging up
	// must not abort it between approve and lend.
	ctx := context.WithoutCancel(r.Context())
	outcome, err := s.form.Submit(ctx)
	resp := submitResponse{Outcome: outcome}
	switch {
	case err == nil:
		resp.View = s.form.View()
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, lendform.ErrSubmissionInFlight):
		writeError(w, http.StatusConflict, "a submission is already in progress")
	case lendform.KindOf(err) == lendform.KindValidation:
		resp.View = s.form.View()
		resp.Error = lendform.MessageOf(err)
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	default:
		resp.View = s.form.View()
		resp.Error = outcome.Message
		writeJSON(w, http.StatusBadGateway, resp)
	}
}

type connectResponse struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	if s.wallet == nil {
		writeError(w, http.StatusServiceUnavailable, "wallet not configured")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	if err := s.wallet.Open(ctx); err != nil {
		s.logger.Warn("wallet connect failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, lendform.ParseErrors(err.Error()))
		return
	}
	resp := connectResponse{}
	if addr, ok := s.wallet.Address(); ok {
		resp.Connected = true
		resp.Address = addr.Hex()
	}
	writeJSON(w, http.StatusOK, resp)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
