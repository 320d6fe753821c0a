package controller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"slidecraft-backend/internal/models"
	"slidecraft-backend/internal/services"
)

var (
	ErrBusy             = errors.New("a generation is already in progress")
	ErrSelectionPending = errors.New("API key selection is pending")
	ErrNoDeck           = errors.New("no slide is selected")
)

const (
	outlineFailedMessage  = "生成失败，请重试"
	imageFailedMessage    = "图片生成失败"
	analysisFailedMessage = "分析失败"
	keySelectFailed       = "API 密钥选择失败"
)

// Studio is the set of remote calls a session can make.
type Studio interface {
	GenerateOutline(ctx context.Context, p services.OutlineParams) (*services.Outline, error)
	GenerateSlideImage(ctx context.Context, prompt string, size models.ImageSize) (string, error)
	AnalyzeImage(ctx context.Context, data []byte, mimeType string) (string, error)
}

// StudioFunc resolves the Studio bound to an API key.
type StudioFunc func(ctx context.Context, apiKey string) (Studio, error)

type Options struct {
	// Timeout bounds each remote call; zero means only the caller's context applies.
	Timeout time.Duration
	Log     *zap.SugaredLogger
	// OnChange receives every new state after a transition.
	OnChange func(State)
	// OnClose runs once when the session ends.
	OnClose func()
}

// Controller owns the state of one workspace session. One generation may
// run at a time; other actions proceed while it is in flight.
type Controller struct {
	mu    sync.RWMutex
	state State

	studio  StudioFunc
	keys    KeySelector
	busy    *semaphore.Weighted
	timeout time.Duration
	log     *zap.SugaredLogger
	notify  func(State)

	closeOnce sync.Once
	onClose   func()
}

func New(studio StudioFunc, keys KeySelector, opts Options) *Controller {
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Controller{
		state:   InitialState(),
		studio:  studio,
		keys:    keys,
		busy:    semaphore.NewWeighted(1),
		timeout: opts.Timeout,
		log:     log,
		notify:  opts.OnChange,
		onClose: opts.OnClose,
	}
}

// Close releases what the session holds outside the controller.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		if c.onClose != nil {
			c.onClose()
		}
	})
}

// State returns a snapshot. Callers must not modify the deck it points to.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) apply(transition func(State) State) State {
	c.mu.Lock()
	c.state = transition(c.state)
	next := c.state
	c.mu.Unlock()

	if c.notify != nil {
		c.notify(next)
	}
	return next
}

// openKeySelection raises the key dialog. An already open dialog produces no
// new state, so no push reaches the session.
func (c *Controller) openKeySelection() {
	c.mu.Lock()
	if c.state.KeySelectionRequired {
		c.mu.Unlock()
		return
	}
	c.state = keySelectionOpened(c.state)
	next := c.state
	c.mu.Unlock()

	if c.notify != nil {
		c.notify(next)
	}
}

// CheckKey raises the key dialog when the session has no credential yet.
func (c *Controller) CheckKey(ctx context.Context) {
	if _, err := c.ensureKey(ctx); err != nil && !errors.Is(err, ErrSelectionPending) {
		c.log.Warnw("Initial API key check failed", "error", err)
	}
}

// ensureKey runs the credential gate and returns the key to use.
func (c *Controller) ensureKey(ctx context.Context) (string, error) {
	ok, err := c.keys.HasSelectedKey(ctx)
	if err != nil {
		return "", &services.CredentialError{Message: keySelectFailed, Err: err}
	}
	if !ok {
		c.openKeySelection()
		if err := c.keys.OpenSelectKey(ctx); err != nil {
			if errors.Is(err, ErrSelectionPending) {
				return "", err
			}
			return "", &services.CredentialError{Message: keySelectFailed, Err: err}
		}
		c.apply(keySelectionClosed)
	}
	return c.keys.SelectedKey(), nil
}

func (c *Controller) acquire(ctx context.Context) (Studio, error) {
	key, err := c.ensureKey(ctx)
	if err != nil {
		return nil, err
	}
	if !c.busy.TryAcquire(1) {
		return nil, ErrBusy
	}
	studio, err := c.studio(ctx, key)
	if err != nil {
		c.busy.Release(1)
		return nil, err
	}
	return studio, nil
}

func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// GenerateDeck replaces the deck with a fresh outline for topic. On failure
// the previous deck is left as it was.
func (c *Controller) GenerateDeck(ctx context.Context, topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return &services.ValidationError{Fields: map[string]string{"topic": "Topic is required"}}
	}

	studio, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer c.busy.Release(1)

	current := c.apply(func(s State) State { return startGeneration(s, StatusOutline) })

	params := services.OutlineParams{Topic: topic, UseSearch: current.UseSearch}
	if doc := current.Document; doc != nil {
		params.Document = &services.DocumentPart{Data: doc.Data, MimeType: doc.MimeType}
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	outline, err := studio.GenerateOutline(callCtx, params)
	if err != nil {
		c.log.Errorw("Deck generation failed", "topic", topic, "error", err)
		c.apply(func(s State) State { return failGeneration(s, userMessage(err, outlineFailedMessage)) })
		return err
	}

	next := c.apply(func(s State) State { return deckGenerated(s, topic, outline) })
	c.log.Infow("Deck generated", "deck_id", next.Deck.ID, "slides", len(next.Deck.Slides))
	return nil
}

// GenerateImage requests imagery for the active slide. A failure leaves the
// slide's current image in place.
func (c *Controller) GenerateImage(ctx context.Context) error {
	if _, ok := c.State().ActiveSlide(); !ok {
		return ErrNoDeck
	}

	studio, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer c.busy.Release(1)

	current := c.apply(func(s State) State { return startGeneration(s, StatusImage) })
	slide, ok := current.ActiveSlide()
	if !ok {
		c.apply(generationCleared)
		return ErrNoDeck
	}
	index := current.ActiveSlideIndex

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	url, err := studio.GenerateSlideImage(callCtx, slide.ImageRequestPrompt(), current.ImageSize)
	if err != nil {
		c.log.Errorw("Slide image generation failed", "slide_id", slide.ID, "error", err)
		c.apply(func(s State) State { return failGeneration(s, userMessage(err, imageFailedMessage)) })

		var imgErr *services.ImageGenerationError
		if errors.As(err, &imgErr) && imgErr.StaleCredential {
			c.openKeySelection()
			if err := c.keys.OpenSelectKey(ctx); err != nil && !errors.Is(err, ErrSelectionPending) {
				c.log.Warnw("Could not reopen API key selection", "error", err)
			}
		}
		return err
	}

	c.apply(func(s State) State { return imageGenerated(s, index, slide.ID, url) })
	c.log.Infow("Slide image generated", "slide_id", slide.ID, "size", current.ImageSize)
	return nil
}

// AnalyzeImage stores a written analysis of an uploaded image.
func (c *Controller) AnalyzeImage(ctx context.Context, data []byte, mimeType string) error {
	if len(data) == 0 {
		return &services.ValidationError{Fields: map[string]string{"file": "Image is empty"}}
	}

	studio, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer c.busy.Release(1)

	c.apply(func(s State) State { return startGeneration(s, StatusAnalysis) })

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	text, err := studio.AnalyzeImage(callCtx, data, mimeType)
	if err != nil {
		c.log.Errorw("Image analysis failed", "mime_type", mimeType, "error", err)
		c.apply(func(s State) State { return failGeneration(s, userMessage(err, analysisFailedMessage)) })
		return err
	}

	c.apply(func(s State) State { return analysisCompleted(s, text) })
	return nil
}

func (c *Controller) AttachDocument(file *models.AttachedFile) error {
	if file == nil || len(file.Data) == 0 {
		return &services.ValidationError{Fields: map[string]string{"file": "文档内容为空"}}
	}
	c.apply(func(s State) State { return documentAttached(s, file) })
	c.log.Infow("Reference document attached", "name", file.Name, "mime_type", file.MimeType, "pages", file.Pages)
	return nil
}

func (c *Controller) ClearDocument() {
	c.apply(documentCleared)
}

func (c *Controller) SetUseSearch(on bool) {
	c.apply(func(s State) State { return searchToggled(s, on) })
}

func (c *Controller) SelectSlide(index int) error {
	s := c.State()
	if s.Deck == nil {
		return ErrNoDeck
	}
	if index < 0 || index >= len(s.Deck.Slides) {
		return &services.ValidationError{Fields: map[string]string{"index": "Slide index out of range"}}
	}
	c.apply(func(s State) State { return slideSelected(s, index) })
	return nil
}

func (c *Controller) SelectTemplate(id string) error {
	if _, ok := services.TemplateByID(id); !ok {
		return &services.NotFoundError{Message: "Template not found"}
	}
	c.apply(func(s State) State { return templateSelected(s, id) })
	return nil
}

func (c *Controller) SelectImageSize(size string) error {
	parsed, err := models.ParseImageSize(size)
	if err != nil {
		return &services.ValidationError{Fields: map[string]string{"image_size": err.Error()}}
	}
	c.apply(func(s State) State { return imageSizeSelected(s, parsed) })
	return nil
}

// EditSlide overwrites the active slide's title and content.
func (c *Controller) EditSlide(title, content string) error {
	if _, ok := c.State().ActiveSlide(); !ok {
		return ErrNoDeck
	}
	c.apply(func(s State) State { return slideEdited(s, title, content) })
	return nil
}

func (c *Controller) DismissError() {
	c.apply(errorDismissed)
}

func (c *Controller) DismissAnalysis() {
	c.apply(analysisDismissed)
}

// SelectKey completes a pending key selection.
func (c *Controller) SelectKey(key string) error {
	if err := c.keys.Select(key); err != nil {
		return err
	}
	c.apply(keySelectionClosed)
	c.log.Infow("API key selected")
	return nil
}

// userMessage picks the text shown in the error banner. Typed service errors
// carry their own message; anything else gets the fallback.
func userMessage(err error, fallback string) string {
	var (
		genErr   *services.GenerationError
		imgErr   *services.ImageGenerationError
		anErr    *services.AnalysisError
		credErr  *services.CredentialError
		validErr *services.ValidationError
	)
	switch {
	case errors.As(err, &genErr):
		return nonEmpty(genErr.Message, fallback)
	case errors.As(err, &imgErr):
		return nonEmpty(imgErr.Message, fallback)
	case errors.As(err, &anErr):
		return nonEmpty(anErr.Message, fallback)
	case errors.As(err, &credErr):
		return nonEmpty(credErr.Message, fallback)
	case errors.As(err, &validErr):
		return validErr.Error()
	default:
		return fallback
	}
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
