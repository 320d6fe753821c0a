package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"slidecraft-backend/internal/models"
)

const (
	imagePromptPreamble   = "High-end professional slide background, cinematic, minimalistic, professional aesthetics, 4k, ultra-detailed: "
	imageAspectRatio      = "16:9"
	imageFailedMessage    = "图片生成失败"
	outlineFailedMessage  = "生成失败，请重试"
	entityNotFoundMessage = "Requested entity was not found"
)

type GeminiOptions struct {
	OutlineModel   string
	ImageModel     string
	AnalysisModel  string
	ThinkingBudget int32
}

// contentGenerator is the slice of genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiService issues outline and slide image requests for one credential.
type GeminiService struct {
	models contentGenerator
	opts   GeminiOptions
	rate   *RateGate
	log    *zap.SugaredLogger
}

func NewGeminiService(ctx context.Context, apiKey string, opts GeminiOptions, rate *RateGate, log *zap.SugaredLogger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGeminiService(client.Models, opts, rate, log), nil
}

func newGeminiService(gen contentGenerator, opts GeminiOptions, rate *RateGate, log *zap.SugaredLogger) *GeminiService {
	if rate == nil {
		rate = NewRateGate(1)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &GeminiService{models: gen, opts: opts, rate: rate, log: log}
}

// GenerateOutline requests a whole deck outline in one call.
func (s *GeminiService) GenerateOutline(ctx context.Context, p OutlineParams) (*Outline, error) {
	contents, config, err := BuildOutlineRequest(p, s.opts.ThinkingBudget)
	if err != nil {
		return nil, err
	}

	if err := s.rate.Acquire(ctx); err != nil {
		return nil, &GenerationError{Message: outlineFailedMessage, Err: err}
	}
	defer s.rate.Release()

	resp, err := s.models.GenerateContent(ctx, s.opts.OutlineModel, contents, config)
	if err != nil {
		return nil, &GenerationError{Message: outlineFailedMessage, Err: fmt.Errorf("Gemini API error: %w", err)}
	}

	outline, err := ParseOutlineResponse(resp)
	if err != nil {
		return nil, err
	}

	for i, cand := range resp.Candidates {
		if cand != nil && cand.FinishReason != "" && cand.FinishReason != genai.FinishReasonStop {
			s.log.Warnw("Gemini outline candidate stopped early", "candidate", i, "finish_reason", cand.FinishReason)
		}
	}

	if n := len(outline.Slides); n < MinOutlineSlides || n > MaxOutlineSlides {
		s.log.Warnw("Outline slide count outside requested range", "slides", n)
	}
	for _, slide := range outline.Slides {
		if !slide.Layout.Valid() {
			s.log.Warnw("Outline contains unsupported layout", "slide_id", slide.ID, "layout", slide.Layout)
		}
	}

	s.log.Infow("Outline generated", "slides", len(outline.Slides), "sources", len(outline.Sources), "search", p.UseSearch)
	return outline, nil
}

func buildImageRequest(prompt string, size models.ImageSize) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(imagePromptPreamble + prompt)}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{
			AspectRatio: imageAspectRatio,
			ImageSize:   string(size),
		},
	}
	return contents, config
}

// GenerateSlideImage returns the first inline image of the response as a data URI.
func (s *GeminiService) GenerateSlideImage(ctx context.Context, prompt string, size models.ImageSize) (string, error) {
	if _, err := models.ParseImageSize(string(size)); err != nil {
		return "", &ValidationError{Fields: map[string]string{"image_size": err.Error()}}
	}

	contents, config := buildImageRequest(prompt, size)

	if err := s.rate.Acquire(ctx); err != nil {
		return "", &ImageGenerationError{Message: imageFailedMessage, Err: err}
	}
	defer s.rate.Release()

	resp, err := s.models.GenerateContent(ctx, s.opts.ImageModel, contents, config)
	if err != nil {
		if strings.Contains(err.Error(), entityNotFoundMessage) {
			return "", &ImageGenerationError{Message: err.Error(), StaleCredential: true, Err: err}
		}
		return "", &ImageGenerationError{Message: imageFailedMessage, Err: fmt.Errorf("Gemini API error: %w", err)}
	}

	dataURI, ok := firstInlineImage(resp)
	if !ok {
		return "", &ImageGenerationError{Message: imageFailedMessage}
	}
	return dataURI, nil
}

// firstInlineImage scans the first candidate's parts in order.
func firstInlineImage(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return "", false
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mimeType := part.InlineData.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data), true
	}
	return "", false
}
