package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/BuFi007/autopay-go"
	"github.com/BuFi007/autopay-go/encoding"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// NewHandler builds the chi router over the API:
//
//	POST /relay/execute
//	GET  /relay/nonce/{address}
//	POST /payments/execute
//	GET  /payments/{payer}/{payee}
//	GET  /payments/{payer}/{payee}/can-execute
//
// Agreements are created and cancelled only through the relay or a direct
// dispatch call; those operations need a caller identity, which a bare HTTP
// request does not carry.
func NewHandler(cfg Config) http.Handler {
	api := NewAPI(cfg)

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(api.logger))

	r.Route("/relay", func(r chi.Router) {
		r.Post("/execute", api.handleRelay)
		r.Get("/nonce/{address}", api.handleNonce)
	})
	r.Route("/payments", func(r chi.Router) {
		r.Post("/execute", api.handleExecute)
		r.Get("/{payer}/{payee}", api.handleAgreement)
		r.Get("/{payer}/{payee}/can-execute", api.handleCanExecute)
	})
	return r
}

func (a *API) handleRelay(w http.ResponseWriter, r *http.Request) {
	var body encoding.SignedRequestJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, autopay.NewError(autopay.ErrCodeInvalidRequest,
			"malformed request body", autopay.ErrInvalidRequest))
		return
	}

	resp, err := a.Relay(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleNonce(w http.ResponseWriter, r *http.Request) {
	resp, err := a.Nonce(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleExecute(w http.ResponseWriter, r *http.Request) {
	var params encoding.ExecuteParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, autopay.NewError(autopay.ErrCodeInvalidRequest,
			"malformed request body", autopay.ErrInvalidRequest))
		return
	}

	resp, err := a.ExecutePayment(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleAgreement(w http.ResponseWriter, r *http.Request) {
	resp, err := a.Agreement(chi.URLParam(r, "payer"), chi.URLParam(r, "payee"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCanExecute(w http.ResponseWriter, r *http.Request) {
	resp, err := a.CanExecute(chi.URLParam(r, "payer"), chi.URLParam(r, "payee"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignore encoding errors: the status is already committed.
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, ErrorStatus(err), NewErrorResponse(err))
}

// requestID assigns a correlation id to every request, honoring one supplied
// by the caller.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
				"request_id", rec.Header().Get(RequestIDHeader))
		})
	}
}
