// Package rpcserver implements the long-lived query server: a line-oriented
// JSON-RPC 2.0 loop over stdin/stdout exposing S8's retrieval surface plus
// session_summaries and regenerate_context, per spec §4.S12.
package rpcserver

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nmemsh/nmem/internal/contextgen"
	"github.com/nmemsh/nmem/internal/models"
	"github.com/nmemsh/nmem/internal/retrieval"
	"github.com/nmemsh/nmem/internal/store"

	"database/sql"
)

const (
	codeInvalidParams = "INVALID_PARAMS"
	codeInternalError = "INTERNAL_ERROR"

	maxLineBytes            = 1 << 20
	defaultSessionSummaries = 10
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server serves nmem's query tool set over a single mutex-guarded
// connection, per spec §5: "every handler holds the mutex for the duration
// of a single query".
type Server struct {
	db *sql.DB
	mu sync.Mutex
}

// New wraps an already-open, read-only database connection.
func New(db *sql.DB) *Server {
	return &Server{db: db}
}

// Run opens a read-only connection (no migrations, no write lock, per spec
// §4.S0) and serves the JSON-RPC loop over stdin/stdout until EOF.
func Run(dbPath string) error {
	db, err := store.OpenDB(dbPath)
	if err != nil {
		return models.Storage("open query-server database", err)
	}
	defer func() { _ = store.CloseDB(db) }()

	if err := store.CheckSchemaVersion(db); err != nil {
		return models.Storage("check schema version", err)
	}

	return New(db).Serve(os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC request per line from r and writes one response
// per line to w until r is exhausted.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := s.handleLine(line)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write rpc response: %w", err)
		}
	}
	return scanner.Err()
}

func (s *Server) handleLine(line []byte) response {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: codeInvalidParams, Message: "malformed request: " + err.Error()}}
	}

	start := time.Now()
	result, err := s.dispatch(req.Method, req.Params)
	slog.Default().Info("rpc request",
		"method", req.Method,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil)

	resp := response{JSONRPC: "2.0", ID: req.ID}
	if err != nil {
		resp.Error = toRPCError(err)
		return resp
	}
	resp.Result = result
	return resp
}

func (s *Server) dispatch(method string, params json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	switch method {
	case "search":
		return s.search(params, now)
	case "get_observations":
		return s.getObservations(params)
	case "timeline":
		return s.timeline(params)
	case "recent_context":
		return s.recentContext(params, now)
	case "session_summaries":
		return s.sessionSummaries(params)
	case "regenerate_context":
		return s.regenerateContext(params, now)
	default:
		return nil, models.Parameter("unknown method "+method, nil)
	}
}

func toRPCError(err error) *rpcError {
	var re models.RecoverableError
	if errors.As(err, &re) && re.ErrorCode() == string(models.ErrKindParameter) {
		return &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	return &rpcError{Code: codeInternalError, Message: err.Error()}
}

type searchParams struct {
	Query   string `json:"query"`
	Project string `json:"project"`
	ObsType string `json:"obs_type"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	OrderBy string `json:"order_by"`
}

func (s *Server) search(params json.RawMessage, now time.Time) (any, error) {
	var p searchParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, models.Parameter("invalid search params", err)
	}
	return retrieval.Search(s.db, retrieval.SearchParams{
		Query:   p.Query,
		Project: p.Project,
		ObsType: p.ObsType,
		Limit:   p.Limit,
		Offset:  p.Offset,
		OrderBy: p.OrderBy,
	}, now)
}

type getObservationsParams struct {
	IDs []int64 `json:"ids"`
}

func (s *Server) getObservations(params json.RawMessage) (any, error) {
	var p getObservationsParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, models.Parameter("invalid get_observations params", err)
	}
	return retrieval.GetObservations(s.db, p.IDs)
}

type timelineParams struct {
	AnchorID int64 `json:"anchor_id"`
	Before   int   `json:"before"`
	After    int   `json:"after"`
}

func (s *Server) timeline(params json.RawMessage) (any, error) {
	var p timelineParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, models.Parameter("invalid timeline params", err)
	}
	return retrieval.Timeline(s.db, p.AnchorID, p.Before, p.After)
}

type recentContextParams struct {
	Project string `json:"project"`
	Limit   int    `json:"limit"`
}

func (s *Server) recentContext(params json.RawMessage, now time.Time) (any, error) {
	var p recentContextParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, models.Parameter("invalid recent_context params", err)
	}
	return retrieval.RecentContext(s.db, p.Project, p.Limit, now)
}

type sessionSummariesParams struct {
	Project string `json:"project"`
	Limit   int    `json:"limit"`
}

func (s *Server) sessionSummaries(params json.RawMessage) (any, error) {
	var p sessionSummariesParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, models.Parameter("invalid session_summaries params", err)
	}
	limit := p.Limit
	if limit <= 0 {
		limit = defaultSessionSummaries
	}
	sessions, err := store.SessionSummariesForProject(s.db, p.Project, limit)
	if err != nil {
		return nil, models.Storage("session summaries", err)
	}
	return sessions, nil
}

type regenerateContextParams struct {
	Project    string `json:"project"`
	LocalLimit int    `json:"local_limit"`
	CrossLimit int    `json:"cross_limit"`
}

func (s *Server) regenerateContext(params json.RawMessage, now time.Time) (any, error) {
	var p regenerateContextParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, models.Parameter("invalid regenerate_context params", err)
	}
	md, err := contextgen.Generate(s.db, contextgen.Params{
		Project:    p.Project,
		LocalLimit: p.LocalLimit,
		CrossLimit: p.CrossLimit,
	}, now)
	if err != nil {
		return nil, err
	}
	return map[string]string{"context": md}, nil
}
