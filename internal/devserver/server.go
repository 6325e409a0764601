// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package devserver is an in-process fake of the AiRA backend for local
// development and tests. It issues linking codes, reports link status,
// stores rules in memory and streams process events.
package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aira-org/aira-client-os/internal/api"
	"github.com/aira-org/aira-client-os/internal/health"
	"github.com/aira-org/aira-client-os/internal/linking"
	xglog "github.com/aira-org/aira-client-os/internal/log"
	"github.com/aira-org/aira-client-os/internal/rules"
)

// Config tunes the fake backend.
type Config struct {
	// Token, when set, is required as a bearer token on every call.
	Token string
	// ConnectLimit calls are allowed per ConnectWindow and client IP.
	ConnectLimit  int
	ConnectWindow time.Duration
	// ProcessSteps progress messages precede the completion event.
	ProcessSteps int
	// StepInterval spaces process events.
	StepInterval time.Duration
	// CompleteEvent names the completion event. Defaults to process_complete.
	CompleteEvent string
	// AvailableServices are reported as connected.
	AvailableServices []string
}

// DefaultConfig returns the settings used by cmd/aira-devserver.
func DefaultConfig() Config {
	return Config{
		ConnectLimit:      5,
		ConnectWindow:     time.Minute,
		ProcessSteps:      3,
		StepInterval:      500 * time.Millisecond,
		CompleteEvent:     "process_complete",
		AvailableServices: []string{rules.ConnectorWhatsApp},
	}
}

// ProcessResult is the completion payload of a process stream.
type ProcessResult struct {
	ProcessID string `json:"process_id"`
	Status    string `json:"status"`
	Summary   string `json:"summary"`
}

type process struct {
	id      string
	summary string
}

// Server is the fake backend.
type Server struct {
	cfg    Config
	router chi.Router
	health *health.Manager
	logger zerolog.Logger

	mu        sync.Mutex
	codes     []string
	status    linking.Status
	rules     []rules.Rule
	groups    []rules.Chat
	chats     []rules.Chat
	processes map[string]process
}

// New builds a server; zero Config fields take DefaultConfig values.
func New(cfg Config) *Server {
	def := DefaultConfig()
	if cfg.ConnectLimit <= 0 {
		cfg.ConnectLimit = def.ConnectLimit
	}
	if cfg.ConnectWindow <= 0 {
		cfg.ConnectWindow = def.ConnectWindow
	}
	if cfg.ProcessSteps < 0 {
		cfg.ProcessSteps = 0
	}
	if cfg.StepInterval < 0 {
		cfg.StepInterval = 0
	}
	if cfg.CompleteEvent == "" {
		cfg.CompleteEvent = def.CompleteEvent
	}

	s := &Server{
		cfg:       cfg,
		logger:    xglog.WithComponent("devserver"),
		status:    linking.Status{State: linking.StatusPending},
		processes: make(map[string]process),
		groups: []rules.Chat{
			{WID: "120363000000000001@g.us", ChatName: "Family"},
			{WID: "120363000000000002@g.us", ChatName: "Work Team"},
		},
		chats: []rules.Chat{
			{WID: "15550000001@c.us", ChatName: "Alice"},
		},
	}
	s.health = health.NewManager("devserver")
	s.health.RegisterChecker(health.CheckerFunc("link_status", func(context.Context) health.CheckResult {
		s.mu.Lock()
		defer s.mu.Unlock()
		return health.CheckResult{Status: health.StatusHealthy, Message: string(s.status.State)}
	}))
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(tracing("aira-devserver"))

	r.Get("/healthz", s.health.ServeHealth)

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(s.cfg.Token))

		r.With(connectRateLimit(s.cfg.ConnectLimit, s.cfg.ConnectWindow)).
			Post(api.PathConnect, s.handleConnect)
		r.Get(api.PathLinkStatus, s.handleStatus)
		r.Get(api.PathGroups, s.handleGroups)
		r.Get(api.PathConnectors, s.handleConnectors)

		r.Get(api.PathRules, s.handleListRules)
		r.Post(api.PathRules, s.handleCreateRule)
		r.Put(api.PathRules, s.handleUpdateRule)
		r.Delete(api.PathRules, s.handleDeleteRule)

		r.Post("/api/v1/process", s.handleStartProcess)
		r.Get("/api/v1/process/{id}/events", s.handleProcessEvents)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Link moves the account to syncing, as if a code was entered on the phone.
func (s *Server) Link() { s.setStatus(linking.StatusSyncing, "Importing your chats") }

// Sync completes the link.
func (s *Server) Sync() { s.setStatus(linking.StatusSynced, "") }

// Fail reports a link error.
func (s *Server) Fail(msg string) { s.setStatus(linking.StatusError, msg) }

// Reset returns the link to pending.
func (s *Server) Reset() { s.setStatus(linking.StatusPending, "") }

func (s *Server) setStatus(state linking.StatusState, msg string) {
	s.mu.Lock()
	s.status = linking.Status{State: state, Message: msg}
	s.mu.Unlock()
	s.logger.Info().
		Str(xglog.FieldEvent, "devserver.status").
		Str(xglog.FieldStatus, string(state)).
		Msg("link status changed")
}

// IssuedCodes returns every code handed out, oldest first.
func (s *Server) IssuedCodes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.codes)
}

// StartProcess registers a process whose event stream can be opened.
func (s *Server) StartProcess(summary string) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.processes[id] = process{id: id, summary: summary}
	s.mu.Unlock()
	return id
}

func newCode() string {
	return fmt.Sprintf("%08d", rand.IntN(100_000_000))
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	code := newCode()
	s.mu.Lock()
	s.codes = append(s.codes, code)
	s.status = linking.Status{State: linking.StatusPending}
	s.mu.Unlock()

	logger := xglog.WithContext(r.Context(), s.logger)
	logger.Info().
		Str(xglog.FieldEvent, "devserver.code_issued").
		Msg("linking code issued")
	writeJSON(w, http.StatusOK, api.ConnectResponse{Code: code})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGroups(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := api.GroupsResponse{Groups: s.withRuleCounts(s.groups), Chats: s.withRuleCounts(s.chats)}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

// withRuleCounts fills rule counters from the stored rules. Caller holds mu.
func (s *Server) withRuleCounts(in []rules.Chat) []rules.Chat {
	out := slices.Clone(in)
	for i := range out {
		out[i].NumActiveRules, out[i].NumInactiveRules = 0, 0
		for _, rule := range s.rules {
			if !slices.Contains(rule.WIDs, out[i].WID) {
				continue
			}
			if rule.Status == rules.StatusActive {
				out[i].NumActiveRules++
			} else {
				out[i].NumInactiveRules++
			}
		}
	}
	return out
}

func (s *Server) handleConnectors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.ConnectorsResponse{AvailableServices: slices.Clone(s.cfg.AvailableServices)})
}

func (s *Server) handleListRules(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	list := slices.Clone(s.rules)
	s.mu.Unlock()
	if list == nil {
		list = []rules.Rule{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req rules.CreateRequest
	if !decodeValid(w, r, &req, func() error { return req.Validate() }) {
		return
	}
	rule := ruleFrom(uuid.NewString(), req)
	s.mu.Lock()
	s.rules = append(s.rules, rule)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, rules.MutationResponse{Success: "Rule created", RuleID: rule.ID})
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var req rules.UpdateRequest
	if !decodeValid(w, r, &req, func() error { return req.Validate() }) {
		return
	}
	s.mu.Lock()
	i := slices.IndexFunc(s.rules, func(x rules.Rule) bool { return x.ID == req.RuleID })
	if i >= 0 {
		updated := ruleFrom(req.RuleID, req.CreateRequest)
		updated.IsDefault = s.rules[i].IsDefault
		s.rules[i] = updated
	}
	s.mu.Unlock()
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "rule not found"})
		return
	}
	writeJSON(w, http.StatusOK, rules.MutationResponse{Success: "Rule updated", RuleID: req.RuleID})
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	var req rules.DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RuleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "rule_id is required"})
		return
	}
	s.mu.Lock()
	before := len(s.rules)
	s.rules = slices.DeleteFunc(s.rules, func(x rules.Rule) bool { return x.ID == req.RuleID })
	removed := len(s.rules) != before
	s.mu.Unlock()
	if !removed {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "rule not found"})
		return
	}
	writeJSON(w, http.StatusOK, rules.MutationResponse{Success: "Rule deleted", RuleID: req.RuleID})
}

func (s *Server) handleStartProcess(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Summary string `json:"summary"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Summary == "" {
		body.Summary = "done"
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"process_id": s.StartProcess(body.Summary)})
}

func ruleFrom(id string, req rules.CreateRequest) rules.Rule {
	status := req.Status
	if status == "" {
		status = rules.StatusActive
	}
	return rules.Rule{
		ID:      id,
		WIDs:    slices.Clone(req.WIDs),
		RawText: req.RawText,
		Status:  status,
		Fields:  req.Fields,
	}
}

// decodeValid decodes the JSON body into dst and runs validate, writing a
// 400 on failure.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any, validate func() error) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid JSON: " + err.Error()})
		return false
	}
	if err := validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return false
	}
	return true
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
