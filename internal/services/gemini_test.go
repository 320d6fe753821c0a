package services

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"

	"slidecraft-backend/internal/models"
)

type generateCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	calls []generateCall
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls = append(f.calls, generateCall{model: model, contents: contents, config: config})
	return f.resp, f.err
}

func newTestGemini(t *testing.T, gen *fakeGenerator) *GeminiService {
	opts := GeminiOptions{OutlineModel: "outline-model", ImageModel: "image-model", ThinkingBudget: 1024}
	return newGeminiService(gen, opts, NewRateGate(1), zaptest.NewLogger(t).Sugar())
}

func TestGeminiService_GenerateOutline(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(outlineJSON(t, 22))}
	svc := newTestGemini(t, gen)

	outline, err := svc.GenerateOutline(context.Background(), OutlineParams{Topic: "Renewable Energy 2024"})
	require.NoError(t, err)
	assert.Len(t, outline.Slides, 22)

	require.Len(t, gen.calls, 1)
	assert.Equal(t, "outline-model", gen.calls[0].model)
	assert.Empty(t, gen.calls[0].config.Tools)
	assert.Len(t, gen.calls[0].contents[0].Parts, 1)
}

func TestGeminiService_GenerateOutline_SlideCountOutsideRangeIsKept(t *testing.T) {
	for _, n := range []int{MinOutlineSlides - 1, MaxOutlineSlides + 1} {
		core, logs := observer.New(zap.WarnLevel)
		gen := &fakeGenerator{resp: textResponse(outlineJSON(t, n))}
		svc := newGeminiService(gen, GeminiOptions{OutlineModel: "outline-model"}, NewRateGate(1), zap.New(core).Sugar())

		outline, err := svc.GenerateOutline(context.Background(), OutlineParams{Topic: "topic"})
		require.NoError(t, err, "%d slides", n)
		assert.Len(t, outline.Slides, n)
		assert.Equal(t, 1, logs.FilterMessage("Outline slide count outside requested range").Len(), "%d slides", n)
	}
}

func TestGeminiService_GenerateOutline_RemoteFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	svc := newTestGemini(t, gen)

	_, err := svc.GenerateOutline(context.Background(), OutlineParams{Topic: "topic"})
	var gErr *GenerationError
	require.ErrorAs(t, err, &gErr)
	assert.Equal(t, outlineFailedMessage, gErr.Message)
	assert.ErrorContains(t, gErr.Unwrap(), "quota exceeded")
}

func TestGeminiService_GenerateOutline_EmptyTopicSkipsRemote(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newTestGemini(t, gen)

	_, err := svc.GenerateOutline(context.Background(), OutlineParams{Topic: ""})
	require.Error(t, err)
	assert.Empty(t, gen.calls)
}

func TestGeminiService_GenerateSlideImage_FirstImagePartWins(t *testing.T) {
	first := []byte{0x89, 'P', 'N', 'G', 1}
	second := []byte{0xFF, 0xD8, 0xFF, 2}
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "Here is your image"},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: first}},
				{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: second}},
			}},
		}},
	}}
	svc := newTestGemini(t, gen)

	uri, err := svc.GenerateSlideImage(context.Background(), "solar farm", models.ImageSize2K)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(first), uri)

	require.Len(t, gen.calls, 1)
	call := gen.calls[0]
	assert.Equal(t, "image-model", call.model)
	assert.Equal(t, imagePromptPreamble+"solar farm", call.contents[0].Parts[0].Text)
	require.NotNil(t, call.config.ImageConfig)
	assert.Equal(t, "16:9", call.config.ImageConfig.AspectRatio)
	assert.Equal(t, "2K", call.config.ImageConfig.ImageSize)
}

func TestGeminiService_GenerateSlideImage_DefaultsMimeType(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{Data: []byte("img")}}}},
		}},
	}}
	uri, err := newTestGemini(t, gen).GenerateSlideImage(context.Background(), "p", models.ImageSize1K)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}

func TestGeminiService_GenerateSlideImage_NoImagePart(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("I cannot draw that")}
	_, err := newTestGemini(t, gen).GenerateSlideImage(context.Background(), "p", models.ImageSize1K)

	var iErr *ImageGenerationError
	require.ErrorAs(t, err, &iErr)
	assert.Equal(t, imageFailedMessage, iErr.Message)
	assert.False(t, iErr.StaleCredential)
}

func TestGeminiService_GenerateSlideImage_StaleCredential(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("Error 404, Message: Requested entity was not found., Status: NOT_FOUND")}
	_, err := newTestGemini(t, gen).GenerateSlideImage(context.Background(), "p", models.ImageSize4K)

	var iErr *ImageGenerationError
	require.ErrorAs(t, err, &iErr)
	assert.True(t, iErr.StaleCredential)
	assert.Contains(t, iErr.Message, "Requested entity was not found")
}

func TestGeminiService_GenerateSlideImage_InvalidSize(t *testing.T) {
	gen := &fakeGenerator{}
	_, err := newTestGemini(t, gen).GenerateSlideImage(context.Background(), "p", models.ImageSize("8K"))

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, gen.calls)
}
