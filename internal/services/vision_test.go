package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVisionModel struct {
	resp  *genai.GenerateContentResponse
	err   error
	parts []genai.Part
}

func (f *fakeVisionModel) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func visionText(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}},
		}},
	}
}

func TestVisionService_AnalyzeImage(t *testing.T) {
	model := &fakeVisionModel{resp: visionText("### 1. 图片内容概述\n- 风车")}
	svc := newVisionService(model, nil, nil)

	report, err := svc.AnalyzeImage(context.Background(), []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "### 1. 图片内容概述\n- 风车", report)

	require.Len(t, model.parts, 2)
	blob, ok := model.parts[0].(genai.Blob)
	require.True(t, ok, "image must be sent first")
	assert.Equal(t, "image/png", blob.MIMEType)
	assert.Equal(t, genai.Text(analysisInstruction), model.parts[1])
}

func TestVisionService_AnalyzeImage_FallbackMimeType(t *testing.T) {
	model := &fakeVisionModel{resp: visionText("ok")}
	_, err := newVisionService(model, nil, nil).AnalyzeImage(context.Background(), []byte("x"), "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", model.parts[0].(genai.Blob).MIMEType)
}

func TestVisionService_AnalyzeImage_EmptyReply(t *testing.T) {
	model := &fakeVisionModel{resp: &genai.GenerateContentResponse{}}
	report, err := newVisionService(model, nil, nil).AnalyzeImage(context.Background(), []byte("x"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, analysisPlaceholder, report)
}

func TestVisionService_AnalyzeImage_Failure(t *testing.T) {
	model := &fakeVisionModel{err: errors.New("permission denied")}
	_, err := newVisionService(model, nil, nil).AnalyzeImage(context.Background(), []byte("x"), "image/jpeg")

	var aErr *AnalysisError
	require.ErrorAs(t, err, &aErr)
	assert.Equal(t, analysisFailed, aErr.Message)
}

func TestVisionService_AnalyzeImage_EmptyImage(t *testing.T) {
	model := &fakeVisionModel{}
	_, err := newVisionService(model, nil, nil).AnalyzeImage(context.Background(), nil, "image/png")

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Nil(t, model.parts)
}
