// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package devserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	xglog "github.com/aira-org/aira-client-os/internal/log"
)

// progress is the payload of intermediate process messages.
type progress struct {
	Step  int `json:"step"`
	Total int `json:"total"`
}

func (s *Server) handleProcessEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	p, ok := s.processes[id]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "unknown process"})
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	logger := xglog.WithContext(r.Context(), s.logger).With().Str(xglog.FieldProcessID, id).Logger()
	send := func(event string, v any) error {
		if err := writeEvent(w, event, v); err != nil {
			return err
		}
		return rc.Flush()
	}

	// Comments keep proxies from buffering the stream.
	if _, err := io.WriteString(w, ": stream open\n\n"); err != nil {
		return
	}
	_ = rc.Flush()

	for step := 1; step <= s.cfg.ProcessSteps; step++ {
		if !sleepCtx(r, s.cfg.StepInterval) {
			logger.Debug().Str(xglog.FieldEvent, "devserver.stream_aborted").Msg("client went away")
			return
		}
		if err := send("message", progress{Step: step, Total: s.cfg.ProcessSteps}); err != nil {
			return
		}
	}
	if !sleepCtx(r, s.cfg.StepInterval) {
		return
	}

	result := ProcessResult{ProcessID: p.id, Status: "completed", Summary: p.summary}
	if err := send(s.cfg.CompleteEvent, result); err != nil {
		return
	}
	s.mu.Lock()
	delete(s.processes, id)
	s.mu.Unlock()
	logger.Info().Str(xglog.FieldEvent, "devserver.process_complete").Msg("process stream completed")
}

func writeEvent(w io.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func sleepCtx(r *http.Request, d time.Duration) bool {
	if d <= 0 {
		return r.Context().Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-r.Context().Done():
		return false
	case <-t.C:
		return true
	}
}
