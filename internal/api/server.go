// Package api serves the local HTTP control interface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartlightd/internal/device"
	"github.com/dokzlo13/smartlightd/internal/ledger"
	"github.com/dokzlo13/smartlightd/internal/provision"
)

const maxBodyBytes = 4096

// ResetFunc performs a factory reset.
type ResetFunc func(ctx context.Context, source string) error

// Deps are the components the API drives.
type Deps struct {
	Device      *device.Controller
	Provisioner *provision.Provisioner
	Ledger      *ledger.Ledger
	Reset       ResetFunc
}

// Server is the HTTP API server.
type Server struct {
	addr       string
	deps       Deps
	httpServer *http.Server
}

// NewServer creates a new API server.
func NewServer(host string, port int, deps Deps) *Server {
	return &Server{
		addr: fmt.Sprintf("%s:%d", host, port),
		deps: deps,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /device", s.handleDevice)
	mux.HandleFunc("GET /settings", s.handleGetSettings)
	mux.HandleFunc("PUT /settings", s.handlePutSettings)
	mux.HandleFunc("PATCH /settings", s.handlePatchSettings)
	mux.HandleFunc("GET /settings/default", s.handleDefaultSettings)
	mux.HandleFunc("GET /power", s.handleGetPower)
	mux.HandleFunc("POST /power", s.handleSetPower)
	mux.HandleFunc("POST /motion", s.handleMotion)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("GET /provision", s.handleProvisionStatus)
	mux.HandleFunc("POST /provision", s.handleProvision)
	mux.HandleFunc("GET /events", s.handleEvents)

	return logRequests(mux)
}

// Run starts the API server. It blocks until the context is cancelled and
// the in-flight requests finished.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting API server")
	return ListenAndServe(ctx, s.httpServer, shutdownTimeout)
}

type deviceResponse struct {
	device.Info
	NodeID      string `json:"node_id"`
	ServiceName string `json:"service_name"`
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, deviceResponse{
		Info:        s.deps.Device.Info(),
		NodeID:      s.deps.Provisioner.NodeID(),
		ServiceName: s.deps.Provisioner.ServiceName(),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Device.Settings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	updated, err := s.deps.Device.ReplaceJSON(body, "api")
	if err != nil {
		writeSettingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	updated, err := s.deps.Device.Patch(body, "api")
	if err != nil {
		writeSettingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDefaultSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, s.deps.Device.DefaultJSON())
}

type powerBody struct {
	On *bool `json:"on"`
}

func (s *Server) handleGetPower(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"on": s.deps.Device.Power()})
}

func (s *Server) handleSetPower(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req powerBody
	if err := json.Unmarshal(body, &req); err != nil || req.On == nil {
		writeError(w, http.StatusBadRequest, `expected {"on": true|false}`)
		return
	}
	if err := s.deps.Device.SetPower(*req.On, "api"); err != nil {
		log.Error().Err(err).Msg("Failed to set power")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"on": s.deps.Device.Power()})
}

func (s *Server) handleMotion(w http.ResponseWriter, r *http.Request) {
	accepted := s.deps.Device.Motion("api")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accepted": accepted,
		"state":    s.deps.Device.MotionState().String(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Reset(r.Context(), "api"); err != nil {
		log.Error().Err(err).Msg("Factory reset failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProvisionStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Provisioner.Status()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req provision.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.deps.Provisioner.Provision(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, provision.ErrBadPoP):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case errors.Is(err, provision.ErrLocked):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case errors.Is(err, provision.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		log.Error().Err(err).Msg("Provisioning failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	st, err := s.deps.Provisioner.Status()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.deps.Ledger.Recent(r.URL.Query().Get("type"), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read ledger")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return body, true
}

func writeSettingsError(w http.ResponseWriter, err error) {
	if errors.Is(err, device.ErrInvalidSettings) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Error().Err(err).Msg("Failed to update settings")
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
