package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/gophstream/internal/api"
	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/server/gateway"
)

const (
	maxJSONBody   = 64 << 10
	maxSealedBody = 1 << 20
)

func (s *HTTPServer) handleParameters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gateway.Parameters())
}

func (s *HTTPServer) handleProtocols(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gateway.Protocols())
}

func (s *HTTPServer) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	var req api.PublicKeyMessage
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, id, err := s.gateway.ExchangeKeys(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set(common.SessionIDHeaderName, id.String())
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleSuite(w http.ResponseWriter, r *http.Request) {
	var req api.SuiteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.gateway.Negotiate(r.Context(), sessionID(r), req); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.StatusResponse{Status: api.StatusOK})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.gateway.Logout(r.Context(), sessionID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.StatusResponse{Status: api.StatusOK})
}

func (s *HTTPServer) handleList(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, s.gateway.List(r.Context(), sessionID(r)))
}

func (s *HTTPServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeEnvelope(w, s.gateway.Download(r.Context(), sessionID(r), q.Get("id"), q.Get("chunk")))
}

type sealedFunc func(ctx context.Context, rawID string, body []byte, mic string) gateway.Envelope

// sealed adapts a gateway call taking a sealed request body.
func (s *HTTPServer) sealed(fn sealedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSealedBody))
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %v", common.ErrBadRequest, err))
			return
		}
		writeEnvelope(w, fn(r.Context(), sessionID(r), body, r.Header.Get(common.MICHeaderName)))
	}
}

func sessionID(r *http.Request) string {
	return r.Header.Get(common.SessionIDHeaderName)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := api.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "Request failed", "uri", r.RequestURI, "error", err)
	}
	writeJSON(w, status, api.NewErrorResponse(err))
}

func writeEnvelope(w http.ResponseWriter, env gateway.Envelope) {
	if env.Sealed() {
		w.Header().Set("Content-Type", "text/plain; charset=us-ascii")
		w.Header().Set(common.MICHeaderName, env.MIC)
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(env.Status)
	_, _ = w.Write(env.Body)
}
