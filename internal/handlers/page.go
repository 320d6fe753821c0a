package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"slidecraft-backend/internal/controller"
	"slidecraft-backend/internal/models"
	"slidecraft-backend/internal/render"
	"slidecraft-backend/internal/services"
)

//go:embed templates/*.html
var pageFS embed.FS

var pageTemplates = template.Must(template.ParseFS(pageFS, "templates/*.html"))

type pageView struct {
	State        controller.State
	Theme        models.Template
	Templates    []models.Template
	ImageSizes   []models.ImageSize
	Thumbs       []render.Thumb
	Active       *models.Slide
	SlideHTML    template.HTML
	NotesHTML    template.HTML
	AnalysisHTML template.HTML
}

func newPageView(s controller.State) pageView {
	v := pageView{
		State:      s,
		Theme:      s.Template(),
		Templates:  services.Templates(),
		ImageSizes: models.ImageSizes,
		Thumbs:     render.Thumbnails(s.Deck, s.ActiveSlideIndex),
	}
	if slide, ok := s.ActiveSlide(); ok {
		v.Active = &slide
		v.SlideHTML = render.RenderSlide(slide, v.Theme)
		v.NotesHTML = render.RenderNotes(slide.Description)
	}
	if s.Analysis != "" {
		v.AnalysisHTML = render.RenderAnalysis(s.Analysis)
	}
	return v
}

// Page serves the workspace. With ?partial=1 only the body that changes with
// state is returned, for the client to swap in after a push. Partial renders
// never change state themselves.
func (h *WorkspaceHandler) Page(w http.ResponseWriter, r *http.Request) {
	ctrl := h.session(r)

	name := "page"
	if r.URL.Query().Get("partial") == "1" {
		name = "workspace"
	} else {
		ctrl.CheckKey(r.Context())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, newPageView(ctrl.State())); err != nil {
		h.log.Errorw("Failed to render workspace page", "error", err)
	}
}
