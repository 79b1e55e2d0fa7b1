// Package api exposes the HTTP route layer: thin glue that validates
// requests, invokes the pipeline, and shapes JSON responses.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/NandiniBytes/lexora-ai/docgen"
	"github.com/NandiniBytes/lexora-ai/index"
	"github.com/NandiniBytes/lexora-ai/pipeline"
)

// RebuildFunc rebuilds the corpus index. It is an administrative operation;
// the server maps a concurrent invocation to 409.
type RebuildFunc func(ctx context.Context) error

// Server wires the pipeline and document generator behind HTTP handlers.
type Server struct {
	pipe    *pipeline.Pipeline
	docs    *docgen.Generator
	manager *index.Manager
	rebuild RebuildFunc
	logger  *log.Logger
	handler http.Handler
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status       string `json:"status"`
	Timestamp    string `json:"timestamp"`
	IndexReady   bool   `json:"indexReady"`
	IndexedItems int    `json:"indexedItems"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Success   bool         `json:"success"`
	Answer    string       `json:"answer"`
	Sources   []sourceInfo `json:"sources"`
	NoContext bool         `json:"noContext"`
}

type sourceInfo struct {
	Path  string  `json:"path"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

type explainRequest struct {
	Clause string `json:"clause"`
}

type explainResponse struct {
	Success     bool   `json:"success"`
	Explanation string `json:"explanation"`
	LegalDomain string `json:"legalDomain"`
	Degraded    bool   `json:"degraded"`
}

type compareRequest struct {
	ClauseType string `json:"clauseType"`
	Country1   string `json:"country1"`
	Country2   string `json:"country2"`
}

type compareResponse struct {
	Success          bool   `json:"success"`
	Country1Analysis string `json:"country1Analysis"`
	Country2Analysis string `json:"country2Analysis"`
	KeyDifferences   string `json:"keyDifferences"`
	Degraded         bool   `json:"degraded"`
}

type ndaRequest struct {
	Party1       string `json:"party1"`
	Party2       string `json:"party2"`
	Jurisdiction string `json:"jurisdiction"`
	Purpose      string `json:"purpose"`
}

type ndaResponse struct {
	Success     bool   `json:"success"`
	Draft       string `json:"draft"`
	DownloadURL string `json:"downloadUrl"`
}

type reportRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func New(pipe *pipeline.Pipeline, docs *docgen.Generator, manager *index.Manager, rebuild RebuildFunc, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{pipe: pipe, docs: docs, manager: manager, rebuild: rebuild, logger: logger}
	s.handler = s.withCORS(s.withRequestLog(s.routes()))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/legal-qa/ask", s.handleAsk)
	mux.HandleFunc("/v1/explainer/explain", s.handleExplain)
	mux.HandleFunc("/v1/comparator/compare", s.handleCompare)
	mux.HandleFunc("/v1/nda/generate", s.handleGenerateNDA)
	mux.HandleFunc("/v1/nda/download/", s.handleDownloadNDA)
	mux.HandleFunc("/v1/report", s.handleReport)
	mux.HandleFunc("/v1/index/rebuild", s.handleRebuild)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	current := s.manager.Current()
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:       "running",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		IndexReady:   current != nil,
		IndexedItems: current.Len(),
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	answer, err := s.pipe.Ask(r.Context(), req.Question)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	sources := make([]sourceInfo, len(answer.Sources))
	for i, src := range answer.Sources {
		sources[i] = sourceInfo{Path: src.DocumentPath, Title: src.DocumentTitle, Score: src.Score}
	}

	s.writeJSON(w, http.StatusOK, askResponse{
		Success:   true,
		Answer:    answer.Answer,
		Sources:   sources,
		NoContext: answer.NoContext,
	})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req explainRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.Clause) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("clause is required"))
		return
	}

	explanation, err := s.pipe.ExplainClause(r.Context(), req.Clause)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, explainResponse{
		Success:     true,
		Explanation: explanation.Explanation,
		LegalDomain: explanation.LegalDomain,
		Degraded:    explanation.Degraded,
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req compareRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.ClauseType) == "" || strings.TrimSpace(req.Country1) == "" || strings.TrimSpace(req.Country2) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("clauseType, country1 and country2 are required"))
		return
	}

	comparison, err := s.pipe.CompareClauses(r.Context(), req.ClauseType, req.Country1, req.Country2)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, compareResponse{
		Success:          true,
		Country1Analysis: comparison.Country1Analysis,
		Country2Analysis: comparison.Country2Analysis,
		KeyDifferences:   comparison.KeyDifferences,
		Degraded:         comparison.Degraded,
	})
}

func (s *Server) handleGenerateNDA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req ndaRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.Party1) == "" || strings.TrimSpace(req.Party2) == "" || strings.TrimSpace(req.Jurisdiction) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("party1, party2 and jurisdiction are required"))
		return
	}

	draft, err := s.pipe.GenerateNDA(r.Context(), pipeline.NDARequest{
		Party1:       req.Party1,
		Party2:       req.Party2,
		Jurisdiction: req.Jurisdiction,
		Purpose:      req.Purpose,
	})
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	filename, err := s.docs.WriteNDA(draft.Draft)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("write nda document: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, ndaResponse{
		Success:     true,
		Draft:       draft.Draft,
		DownloadURL: "/v1/nda/download/" + filename,
	})
}

func (s *Server) handleDownloadNDA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/v1/nda/download/")
	f, err := s.docs.Open(name)
	if err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("document not found"))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := io.Copy(w, f); err != nil {
		s.logger.Printf("stream document: %v", err)
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req reportRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Answer) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("question and answer are required"))
		return
	}

	filename := fmt.Sprintf("lexora_report_%s.pdf", time.Now().UTC().Format("20060102150405"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := s.docs.WriteReport(w, req.Question, req.Answer); err != nil {
		s.logger.Printf("render report: %v", err)
	}
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	if err := s.rebuild(r.Context()); err != nil {
		if errors.Is(err, index.ErrRebuildInProgress) {
			s.writeError(w, http.StatusConflict, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("rebuild index: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "index rebuilt"})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.writeError(w, http.StatusGatewayTimeout, fmt.Errorf("request abandoned: %w", err))
		return
	}
	s.writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("api error (%d): %v", status, err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}

	return nil
}
