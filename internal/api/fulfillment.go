package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/houseflow/houseflow/internal/lighthouse"
)

// defaultExecuteTimeout is used when the configured timeout is zero or
// unset.
const defaultExecuteTimeout = 5 * time.Second

// executeFrame is the client-supplied ExecuteFrame body.
type executeFrame struct {
	Command lighthouse.Command `json:"command"`
	Params  json.RawMessage    `json:"params,omitempty"`
}

type executeRequest struct {
	DeviceID string       `json:"device_id"`
	Frame    executeFrame `json:"frame"`
}

type frameResponse struct {
	Frame lighthouse.Frame `json:"frame"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	sess, ok := s.lookupAuthorizedSession(w, r, req.DeviceID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.executeTimeout())
	defer cancel()

	start := time.Now()
	reply, err := sess.Execute(ctx, req.Frame.Command, req.Frame.Params)
	s.recordFulfillmentLatency(req.DeviceID, "execute", err, time.Since(start))
	if err != nil {
		s.writeFulfillmentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, frameResponse{Frame: reply})
}

type queryRequest struct {
	DeviceID string `json:"device_id"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	sess, ok := s.lookupAuthorizedSession(w, r, req.DeviceID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.executeTimeout())
	defer cancel()

	start := time.Now()
	reply, err := sess.Query(ctx)
	s.recordFulfillmentLatency(req.DeviceID, "query", err, time.Since(start))
	if err != nil {
		s.writeFulfillmentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, frameResponse{Frame: reply})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	devices, err := s.db.GetUserDevices(r.Context(), claims.Subject)
	if err != nil {
		writeInternalError(w, "listing devices failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// lookupAuthorizedSession reads the caller's claims (already verified by
// authMiddleware), checks device authorization, and resolves the live
// session. It writes the appropriate error response and returns ok=false
// on any failure.
func (s *Server) lookupAuthorizedSession(w http.ResponseWriter, r *http.Request, deviceID string) (*lighthouse.Session, bool) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return nil, false
	}

	allowed, err := s.db.CheckUserDeviceAccess(r.Context(), claims.Subject, deviceID)
	if err != nil {
		writeInternalError(w, "checking device access failed")
		return nil, false
	}
	if !allowed {
		writeForbidden(w, "no permission for this device")
		return nil, false
	}

	handle, ok := s.registry.Get(deviceID)
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeDeviceNotConnected, "device is not connected")
		return nil, false
	}

	sess, ok := handle.(*lighthouse.Session)
	if !ok {
		writeInternalError(w, "session handle has unexpected type")
		return nil, false
	}
	return sess, true
}

// writeFulfillmentError maps an RPC dispatch error to its HTTP response.
func (s *Server) writeFulfillmentError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		writeGatewayTimeout(w, ErrCodeDeviceTimeout, "device did not respond in time")
		return
	}
	if errors.Is(err, lighthouse.ErrConnectionClosed) {
		writeError(w, http.StatusNotFound, ErrCodeDeviceNotConnected, "device session closed")
		return
	}
	writeInternalError(w, "dispatching device request failed")
}

func (s *Server) recordFulfillmentLatency(deviceID, rpc string, err error, d time.Duration) {
	outcome := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	s.telemetry.FulfillmentLatency(deviceID, rpc, outcome, d)
}

func (s *Server) executeTimeout() time.Duration {
	if s.cfg.Fulfillment.ExecuteTimeoutSecs <= 0 {
		return defaultExecuteTimeout
	}
	return time.Duration(s.cfg.Fulfillment.ExecuteTimeoutSecs) * time.Second
}
