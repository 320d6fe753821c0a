package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"slidecraft-backend/internal/controller"
	"slidecraft-backend/internal/middleware"
	"slidecraft-backend/internal/models"
	"slidecraft-backend/internal/render"
	"slidecraft-backend/internal/services"
)

// Sessions resolves the controller of the calling browser.
type Sessions interface {
	Get(sessionID string) *controller.Controller
}

type WorkspaceHandler struct {
	sessions  Sessions
	files     *services.FileExtractService
	maxUpload int64
	log       *zap.SugaredLogger
}

func NewWorkspaceHandler(sessions Sessions, files *services.FileExtractService, maxUploadMB int, log *zap.SugaredLogger) *WorkspaceHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &WorkspaceHandler{
		sessions:  sessions,
		files:     files,
		maxUpload: int64(maxUploadMB) << 20,
		log:       log,
	}
}

func (h *WorkspaceHandler) session(r *http.Request) *controller.Controller {
	return h.sessions.Get(middleware.GetSessionID(r.Context()))
}

func (h *WorkspaceHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session(r).State())
}

func (h *WorkspaceHandler) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"templates":  services.Templates(),
		"default_id": services.DefaultTemplateID,
	})
}

func (h *WorkspaceHandler) SelectKey(w http.ResponseWriter, r *http.Request) {
	var req models.SelectKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	ctrl := h.session(r)
	if err := ctrl.SelectKey(req.APIKey); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.State())
}

// GenerateDeck blocks until the outline is back; progress reaches other
// tabs over the WebSocket.
func (h *WorkspaceHandler) GenerateDeck(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	ctrl := h.session(r)
	if err := ctrl.GenerateDeck(r.Context(), req.Topic); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ctrl.State())
}

func (h *WorkspaceHandler) SelectSlide(w http.ResponseWriter, r *http.Request) {
	var req models.SelectSlideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	ctrl := h.session(r)
	if err := ctrl.SelectSlide(req.Index); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.State())
}

func (h *WorkspaceHandler) EditSlide(w http.ResponseWriter, r *http.Request) {
	var req models.EditSlideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	ctrl := h.session(r)
	if err := ctrl.EditSlide(req.Title, req.Content); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.State())
}

func (h *WorkspaceHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	ctrl := h.session(r)
	if err := ctrl.GenerateImage(r.Context()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.State())
}

// RenderSlide returns one slide as an HTML fragment in the current theme.
func (h *WorkspaceHandler) RenderSlide(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid slide index", r))
		return
	}

	state := h.session(r).State()
	if state.Deck == nil || index < 0 || index >= len(state.Deck.Slides) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Slide not found", r))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, string(render.RenderSlide(state.Deck.Slides[index], state.Template())))
}

func (h *WorkspaceHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	ctrl := h.session(r)
	if req.TemplateID != nil {
		if err := ctrl.SelectTemplate(*req.TemplateID); err != nil {
			handleServiceError(w, r, err)
			return
		}
	}
	if req.ImageSize != nil {
		if err := ctrl.SelectImageSize(*req.ImageSize); err != nil {
			handleServiceError(w, r, err)
			return
		}
	}
	if req.UseSearch != nil {
		ctrl.SetUseSearch(*req.UseSearch)
	}
	writeJSON(w, http.StatusOK, ctrl.State())
}

// readUpload reads the multipart "file" field. It writes the error response
// itself and returns ok=false on failure.
func (h *WorkspaceHandler) readUpload(w http.ResponseWriter, r *http.Request) (name string, data []byte, ok bool) {
	if r.ContentLength > h.maxUpload {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds upload limit", r))
		return "", nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return "", nil, false
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to read file", r))
		return "", nil, false
	}
	return header.Filename, data, true
}

func (h *WorkspaceHandler) AttachDocument(w http.ResponseWriter, r *http.Request) {
	name, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	doc, err := h.files.PrepareDocument(name, data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	ctrl := h.session(r)
	if err := ctrl.AttachDocument(doc); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.State())
}

func (h *WorkspaceHandler) ClearDocument(w http.ResponseWriter, r *http.Request) {
	ctrl := h.session(r)
	ctrl.ClearDocument()
	writeJSON(w, http.StatusOK, ctrl.State())
}

func (h *WorkspaceHandler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	name, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	mimeType, err := h.files.PrepareImage(name, data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	ctrl := h.session(r)
	if err := ctrl.AnalyzeImage(r.Context(), data, mimeType); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"analysis": ctrl.State().Analysis,
		"blocks":   render.FormatAnalysis(ctrl.State().Analysis),
	})
}

func (h *WorkspaceHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis := h.session(r).State().Analysis
	if analysis == "" {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No analysis available", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"analysis": analysis,
		"blocks":   render.FormatAnalysis(analysis),
	})
}

func (h *WorkspaceHandler) DismissAnalysis(w http.ResponseWriter, r *http.Request) {
	ctrl := h.session(r)
	ctrl.DismissAnalysis()
	writeJSON(w, http.StatusOK, ctrl.State())
}

func (h *WorkspaceHandler) DismissError(w http.ResponseWriter, r *http.Request) {
	ctrl := h.session(r)
	ctrl.DismissError()
	writeJSON(w, http.StatusOK, ctrl.State())
}
