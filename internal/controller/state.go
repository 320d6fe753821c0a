package controller

import (
	"github.com/google/uuid"

	"slidecraft-backend/internal/models"
	"slidecraft-backend/internal/services"
)

const (
	StatusOutline  = "正在构思深度文稿结构 (使用 AI 联网与文档增强)..."
	StatusImage    = "正在生成视觉素材..."
	StatusAnalysis = "正在分析图片视觉资产..."
)

// State is the whole workspace of one session. Transitions below take a
// State by value and return a new one; the deck and source slices are
// copied before any change so earlier snapshots stay valid.
type State struct {
	Deck                 *models.PresentationDeck `json:"deck"`
	ActiveSlideIndex     int                      `json:"active_slide_index"`
	Generation           models.GenerationState   `json:"generation"`
	TemplateID           string                   `json:"template_id"`
	ImageSize            models.ImageSize         `json:"image_size"`
	UseSearch            bool                     `json:"use_search"`
	Document             *models.AttachedFile     `json:"document,omitempty"`
	Sources              []models.Source          `json:"sources,omitempty"`
	Analysis             string                   `json:"analysis,omitempty"`
	KeySelectionRequired bool                     `json:"key_selection_required"`
}

func InitialState() State {
	return State{
		TemplateID: services.DefaultTemplateID,
		ImageSize:  models.ImageSize1K,
	}
}

// ActiveSlide returns the selected slide, or false when there is no deck.
func (s State) ActiveSlide() (models.Slide, bool) {
	if s.Deck == nil || s.ActiveSlideIndex < 0 || s.ActiveSlideIndex >= len(s.Deck.Slides) {
		return models.Slide{}, false
	}
	return s.Deck.Slides[s.ActiveSlideIndex], true
}

func (s State) Template() models.Template {
	return services.TemplateOrDefault(s.TemplateID)
}

func startGeneration(s State, status string) State {
	s.Generation = models.GenerationState{IsGenerating: true, Status: status}
	return s
}

func failGeneration(s State, message string) State {
	s.Generation = models.GenerationState{Error: message}
	return s
}

func generationCleared(s State) State {
	s.Generation = models.GenerationState{}
	return s
}

func deckGenerated(s State, topic string, outline *services.Outline) State {
	slides := make([]models.Slide, len(outline.Slides))
	copy(slides, outline.Slides)

	s.Deck = &models.PresentationDeck{
		ID:         "deck-" + uuid.NewString(),
		Title:      topic,
		TemplateID: s.TemplateID,
		Slides:     slides,
	}
	s.Sources = nil
	if len(outline.Sources) > 0 {
		s.Sources = append([]models.Source(nil), outline.Sources...)
	}
	s.ActiveSlideIndex = 0
	s.Generation = models.GenerationState{}
	return s
}

// imageGenerated attaches url to the slide that was active when the request
// started. The slide is looked up by id if it moved.
func imageGenerated(s State, index int, slideID, url string) State {
	s.Generation = models.GenerationState{}
	if s.Deck == nil {
		return s
	}
	if index < 0 || index >= len(s.Deck.Slides) || s.Deck.Slides[index].ID != slideID {
		index = -1
		for i, slide := range s.Deck.Slides {
			if slide.ID == slideID {
				index = i
				break
			}
		}
		if index < 0 {
			return s
		}
	}

	deck := s.Deck.Clone()
	deck.Slides[index].ImageURL = url
	s.Deck = deck
	return s
}

func analysisCompleted(s State, text string) State {
	s.Analysis = text
	s.Generation = models.GenerationState{}
	return s
}

func documentAttached(s State, file *models.AttachedFile) State {
	s.Document = file
	return s
}

func documentCleared(s State) State {
	s.Document = nil
	return s
}

func searchToggled(s State, on bool) State {
	s.UseSearch = on
	return s
}

func slideSelected(s State, index int) State {
	s.ActiveSlideIndex = index
	return s
}

func templateSelected(s State, id string) State {
	s.TemplateID = id
	return s
}

func imageSizeSelected(s State, size models.ImageSize) State {
	s.ImageSize = size
	return s
}

func slideEdited(s State, title, content string) State {
	if _, ok := s.ActiveSlide(); !ok {
		return s
	}
	deck := s.Deck.Clone()
	deck.Slides[s.ActiveSlideIndex].Title = title
	deck.Slides[s.ActiveSlideIndex].Content = content
	s.Deck = deck
	return s
}

func errorDismissed(s State) State {
	s.Generation.Error = ""
	return s
}

func analysisDismissed(s State) State {
	s.Analysis = ""
	return s
}

func keySelectionOpened(s State) State {
	s.KeySelectionRequired = true
	return s
}

func keySelectionClosed(s State) State {
	s.KeySelectionRequired = false
	return s
}
