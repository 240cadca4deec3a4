package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/swaggo/swag"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
)

// maxUploadBytes bounds a knowledge base upload.
const maxUploadBytes = 16 << 20

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"data must be an array"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// SuccessResponse acknowledges a deletion
// @Description Deletion acknowledgement
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// SyncKnowledgeBaseRequest is the upload body
// @Description Knowledge base upload
type SyncKnowledgeBaseRequest struct {
	Name           string          `json:"name" example:"catalog"`
	Data           json.RawMessage `json:"data" swaggertype:"array,object"`
	UpdateMode     string          `json:"updateMode,omitempty" example:"smart" enums:"smart,replace"`
	DatasetVersion string          `json:"datasetVersion,omitempty" example:"2024-05-01"`
}

// ChatRequestBody is the visitor conversation so far
// @Description Chat request
type ChatRequestBody struct {
	Messages []domain.ChatMessage `json:"messages"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the knowledge base store and, when configured, the lock backend
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.Warn("store not ready", "error", err)
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	if s.lock != nil {
		if err := s.lock.Ping(r.Context()); err != nil {
			s.logger.Warn("lock backend not ready", "error", err)
			writeError(w, http.StatusServiceUnavailable, "lock backend unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Knowledge base endpoints

// handleListKnowledgeBases godoc
// @Summary      List knowledge bases
// @Description  Returns all knowledge bases, most recently updated first
// @Tags         KnowledgeBases
// @Produce      json
// @Success      200  {array}   domain.KnowledgeBase
// @Failure      500  {object}  ErrorResponse
// @Router       /knowledge-bases [get]
func (s *Server) handleListKnowledgeBases(w http.ResponseWriter, r *http.Request) {
	kbs, err := s.kbService.List(r.Context(), s.ownerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, kbs)
}

// handleSyncKnowledgeBase godoc
// @Summary      Upload a knowledge base
// @Description  Reconciles the records against the stored knowledge base of the same name (smart), or overwrites its snapshot (replace)
// @Tags         KnowledgeBases
// @Accept       json
// @Produce      json
// @Param        request  body      SyncKnowledgeBaseRequest  true  "Knowledge base upload"
// @Success      200      {object}  domain.SyncResult
// @Failure      400      {object}  ErrorResponse  "Malformed upload"
// @Failure      409      {object}  ErrorResponse  "Sync for the same name in progress"
// @Failure      413      {object}  ErrorResponse  "Upload larger than 16 MiB"
// @Failure      500      {object}  ErrorResponse
// @Router       /knowledge-bases [post]
func (s *Server) handleSyncKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	var req SyncKnowledgeBaseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	mode, err := domain.ParseUpdateMode(req.UpdateMode)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	records, err := domain.ParseRecords(req.Data)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	result, err := s.kbService.Sync(r.Context(), domain.SyncRequest{
		OwnerID:        s.ownerID,
		Name:           req.Name,
		Records:        records,
		DatasetVersion: req.DatasetVersion,
		Mode:           mode,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleListItems godoc
// @Summary      List knowledge base items
// @Description  Returns the normalised items of one knowledge base
// @Tags         KnowledgeBases
// @Produce      json
// @Param        id   path      string  true  "Knowledge base ID"
// @Success      200  {array}   domain.KnowledgeBaseItem
// @Failure      404  {object}  ErrorResponse
// @Router       /knowledge-bases/{id}/items [get]
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.kbService.Items(r.Context(), s.ownerID, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleDeleteKnowledgeBase godoc
// @Summary      Delete a knowledge base
// @Description  Removes a knowledge base together with its items
// @Tags         KnowledgeBases
// @Produce      json
// @Param        id   path      string  true  "Knowledge base ID"
// @Success      200  {object}  SuccessResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /knowledge-bases/{id} [delete]
func (s *Server) handleDeleteKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	if err := s.kbService.Delete(r.Context(), s.ownerID, r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// Chat endpoint

// handleChat godoc
// @Summary      Chat with Baumi
// @Description  Streams the answer as plain text, flushed per token
// @Tags         Chat
// @Accept       json
// @Produce      plain
// @Param        request  body      ChatRequestBody  true  "Conversation"
// @Success      200      {string}  string
// @Failure      400      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse  "Chat model not configured"
// @Failure      502      {object}  ErrorResponse  "Model provider failed"
// @Router       /chat [post]
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stream, err := s.chatService.Stream(r.Context(), s.ownerID, req.Messages)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			// Headers are gone; the visitor keeps the partial answer.
			s.logger.Error("chat stream interrupted", "error", domain.UpstreamError(err))
			return
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			s.logger.Warn("chat client went away", "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// handleSwaggerDoc serves the OpenAPI document registered by the docs package.
func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not available")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, doc)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError reports err with a message safe to show to the caller.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	message := err.Error()
	switch kind {
	case domain.KindNotFound:
		message = "knowledge base not found"
	case domain.KindNotConfigured:
		message = "chat model not configured"
	case domain.KindUpstream:
		message = "model provider request failed"
	case domain.KindPersistence, domain.KindUnknown:
		message = "internal server error"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "kind", kind, "error", err)
	}
	writeError(w, status, message)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
