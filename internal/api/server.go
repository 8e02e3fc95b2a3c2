package api

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"

	"curator/internal/config"
	"curator/internal/curations"
	"curator/internal/models"
	"curator/internal/render"
	"curator/internal/storage"

	"github.com/google/uuid"
)

//go:embed static/index.html
var staticFS embed.FS

// Resolver is the render pipeline surface the server needs.
type Resolver interface {
	Resolve(ctx context.Context, name string, regen, grouped bool) (*models.RenderedDocument, error)
	ListNames(ctx context.Context) ([]string, error)
}

// Curations is the curation cache surface the server needs.
type Curations interface {
	Get(ctx context.Context, key models.CurationKey) ([]models.CurationRecord, error)
	ListAll(ctx context.Context) ([]curations.Entry, error)
	Submit(ctx context.Context, stmtHash, sourceHash int64, errorType, comment, ip string) (int64, error)
	Refresh(ctx context.Context) error
}

type Server struct {
	cfg       config.Config
	pipeline  Resolver
	curations Curations
}

func NewServer(cfg config.Config, pipeline Resolver, cache Curations) *Server {
	return &Server{cfg: cfg, pipeline: pipeline, curations: cache}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleShell)
	mux.HandleFunc("/json", s.handleShell)
	mux.HandleFunc("/json/", s.handleJSONScoped)
	mux.HandleFunc("/list", s.handleList)
	mux.HandleFunc("/curations", s.handleCurationList)
	mux.HandleFunc("/curations/", s.handleCurationsScoped)
	return withRequestID(withCORS(mux))
}

func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/json" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	shell, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(shell)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	names, err := s.pipeline.ListNames(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleJSONScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/json/"), "/")
	if name == "" || strings.Contains(name, "/") {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	regen := r.URL.Query().Get("regen") == "true"
	grouped := r.URL.Query().Get("grouped") == "true"
	log.Printf("loading JSON for %s regen=%t grouped=%t", name, regen, grouped)

	doc, err := s.pipeline.Resolve(r.Context(), name, regen, grouped)
	if err != nil {
		var notFound *render.NotFoundError
		if errors.As(err, &notFound) {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleCurationList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	entries, err := s.curations.ListAll(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	type listItem struct {
		Key   [2]string               `json:"key"`
		Value []models.CurationRecord `json:"value"`
	}
	out := make([]listItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, listItem{
			Key: [2]string{
				strconv.FormatInt(e.Key.StmtHash, 10),
				strconv.FormatInt(e.Key.SourceHash, 10),
			},
			Value: e.Records,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCurationsScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/curations/"), "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "submit":
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleSubmit(w, r)
	case len(parts) == 1 && parts[0] == "update_cache":
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		if err := s.curations.Refresh(r.Context()); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"result": "success"})
	case len(parts) == 2:
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleGetCurations(w, r, parts[0], parts[1])
	default:
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

// hashArg accepts a hash sent as either a JSON number or a decimal
// string.
type hashArg int64

func (h *hashArg) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid hash %q", s)
	}
	*h = hashArg(n)
	return nil
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StmtHash   hashArg `json:"stmt_hash"`
		SourceHash hashArg `json:"source_hash"`
		Comment    string  `json:"comment"`
		ErrorType  string  `json:"error_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if strings.TrimSpace(req.ErrorType) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("error_type is required"))
		return
	}
	log.Printf("adding curation for stmt=%d source_hash=%d", req.StmtHash, req.SourceHash)

	id, err := s.curations.Submit(r.Context(), int64(req.StmtHash), int64(req.SourceHash),
		req.ErrorType, req.Comment, remoteIP(r))
	if err != nil {
		var badHash *storage.BadHashError
		if errors.As(err, &badHash) {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": "success", "ref": map[string]any{"id": id}})
}

func (s *Server) handleGetCurations(w http.ResponseWriter, r *http.Request, stmtHash, evHash string) {
	stmt, err := strconv.ParseInt(stmtHash, 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid hash %q", stmtHash))
		return
	}
	ev, err := strconv.ParseInt(evHash, 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid hash %q", evHash))
		return
	}
	records, err := s.curations.Get(r.Context(), models.CurationKey{StmtHash: stmt, SourceHash: ev})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	var badHash *storage.BadHashError
	var notFound *render.NotFoundError
	switch {
	case errors.As(err, &badHash):
		return apiError{
			Code:    "CU-CUR-4002",
			Message: fmt.Sprintf("Invalid hash: %d.", badHash.Hash),
		}
	case errors.As(err, &notFound):
		return apiError{
			Code: "CU-STMT-4001",
			Message: notFound.Error() + " If using a gs: working root, remember " +
				"to add the '/' to the end of the prefix.",
		}
	case errors.Is(err, render.ErrDecode):
		return apiError{
			Code:    "CU-STMT-5001",
			Message: "Raw artifact is corrupt and could not be decoded.",
		}
	}

	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}
	switch {
	case status >= 500:
		if strings.Contains(raw, "connect") || strings.Contains(raw, "dial tcp") ||
			strings.Contains(raw, "connection refused") {
			return apiError{
				Code:    "CU-DB-5002",
				Message: "A backend is unavailable. Check storage and database connectivity.",
			}
		}
		return apiError{
			Code:    "CU-API-5000",
			Message: "Internal server error. Please retry or check service logs.",
		}
	case status == http.StatusNotFound:
		return apiError{Code: "CU-API-4004", Message: "Requested resource was not found."}
	case status == http.StatusMethodNotAllowed:
		return apiError{Code: "CU-API-4005", Message: "This endpoint does not support the requested method."}
	}

	msg := "Invalid request. Check inputs and retry."
	switch {
	case strings.Contains(raw, "invalid json"):
		msg = "Malformed JSON request body."
	case strings.Contains(raw, "error_type is required"):
		msg = "An error_type is required for every curation."
	case strings.Contains(raw, "invalid hash"):
		msg = "Statement and source hashes must be 64-bit integers."
	}
	return apiError{Code: "CU-API-4000", Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}
