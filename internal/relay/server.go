// Package relay serves the Solana send endpoint for clients that cannot sign
// locally. The mnemonic only lives for the duration of one request.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/chain/sol"
	"github.com/mrz1836/nopewallet/internal/wallet"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// RequestIDHeader carries the per-request id.
const RequestIDHeader = "X-Request-Id"

const (
	msgMissingFields = "mnemonic, recipient, and amount are required"
	msgBadMnemonic   = "Invalid mnemonic"
	msgZeroBalance   = "Sender account has 0 SOL. Cannot send transaction."
	shutdownTimeout  = 10 * time.Second
)

// Server is the relay HTTP server.
type Server struct {
	cfg     Config
	signer  chain.Signer
	log     chain.LogWriter
	version string
	started time.Time
}

// New creates a server that signs with signer.
func New(cfg Config, signer chain.Signer, log chain.LogWriter, version string) *Server {
	if log == nil {
		log = chain.NopLogger{}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = time.Minute
	}
	return &Server{cfg: cfg, signer: signer, log: log, version: version, started: time.Now()}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := chi.NewMux()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(s.requestID)
	mux.Use(s.corsHandler())

	mux.Get("/healthz", s.health)
	mux.Post(sol.RelayPath, s.sendSolana)
	return mux
}

func (s *Server) corsHandler() func(http.Handler) http.Handler {
	if len(s.cfg.AllowedOrigins) == 0 || (len(s.cfg.AllowedOrigins) == 1 && s.cfg.AllowedOrigins[0] == "*") {
		return cors.AllowAll().Handler
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
	}).Handler
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("relay %s %s id=%s took=%s", r.Method, r.URL.Path, id, time.Since(start))
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version": s.version,
		"uptime":  time.Since(s.started).String(),
	})
}

func (s *Server) sendSolana(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body", walleterr.ErrInvalidInput)
		return
	}
	defer clear(body)

	var req sol.RelayRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", walleterr.ErrInvalidInput)
		return
	}

	mnemonic := wallet.NormalizeMnemonicInput(req.Mnemonic)
	req.Mnemonic = ""
	if mnemonic == "" || strings.TrimSpace(req.To) == "" || req.Amount == "" {
		writeError(w, http.StatusBadRequest, msgMissingFields, walleterr.ErrInvalidInput)
		return
	}
	if err := wallet.ValidateMnemonic(mnemonic); err != nil {
		writeError(w, http.StatusBadRequest, msgBadMnemonic, walleterr.ErrInvalidMnemonic)
		return
	}
	amount, err := chain.ParseDecimalAmount(req.Amount.String(), chain.SOL.Decimals(), walleterr.ErrInvalidAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a positive SOL value", walleterr.ErrInvalidAmount)
		return
	}

	key, err := wallet.DeriveFromMnemonic(mnemonic, chain.SOL)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgBadMnemonic, walleterr.ErrInvalidMnemonic)
		return
	}
	defer key.Zero()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	result, err := s.signer.SignTransfer(ctx, key, chain.TransferRequest{To: req.To, Amount: amount})
	if err != nil {
		s.log.Error("relay send from %s failed: %v", key.Address, err)
		s.writeSendError(w, err)
		return
	}

	var balance uint64
	if result.Balance != "" {
		balance, _ = strconv.ParseUint(result.Balance, 10, 64)
	}
	writeJSON(w, http.StatusOK, sol.RelayResponse{
		TxID:    result.Hash,
		From:    result.From,
		To:      result.To,
		Amount:  req.Amount,
		Balance: balance,
	})
}

func (s *Server) writeSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, walleterr.ErrZeroBalance):
		writeError(w, http.StatusBadRequest, msgZeroBalance, walleterr.ErrZeroBalance)
	case errors.Is(err, walleterr.ErrInvalidAddress),
		errors.Is(err, walleterr.ErrInvalidAmount),
		errors.Is(err, walleterr.ErrInvalidInput),
		errors.Is(err, walleterr.ErrInsufficientBalanceForFee):
		writeError(w, http.StatusBadRequest, err.Error(), err)
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), err)
	}
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Debug("relay listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx) //nolint:contextcheck // parent is already done
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	writeJSON(w, status, sol.RelayError{Error: msg, Code: walleterr.Code(err)})
}
