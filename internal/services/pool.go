package services

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Studio bundles every generation capability bound to one credential.
type Studio struct {
	*GeminiService
	*VisionService
}

func (s *Studio) Close() {
	if s.VisionService != nil {
		s.VisionService.Close()
	}
}

type pooledStudio struct {
	studio  *Studio
	holders map[string]struct{}
}

// StudioPool hands out one Studio per API key and tracks which sessions hold
// it. A studio is closed once its last holder releases it. All studios share
// the same rate gate so the concurrency cap holds across sessions.
type StudioPool struct {
	mu      sync.Mutex
	studios map[string]*pooledStudio // by API key
	held    map[string]string        // holder -> API key

	build func(ctx context.Context, apiKey string) (*Studio, error)
	close func(*Studio)
	log   *zap.SugaredLogger
}

func NewStudioPool(opts GeminiOptions, concurrentReqs int, log *zap.SugaredLogger) *StudioPool {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	rate := NewRateGate(concurrentReqs)
	return &StudioPool{
		studios: make(map[string]*pooledStudio),
		held:    make(map[string]string),
		build: func(ctx context.Context, apiKey string) (*Studio, error) {
			gemini, err := NewGeminiService(ctx, apiKey, opts, rate, log)
			if err != nil {
				return nil, err
			}
			vision, err := NewVisionService(ctx, apiKey, opts.AnalysisModel, rate, log)
			if err != nil {
				return nil, err
			}
			return &Studio{GeminiService: gemini, VisionService: vision}, nil
		},
		close: (*Studio).Close,
		log:   log,
	}
}

// Get returns the studio for apiKey and records holder as using it. A holder
// that switches keys gives up its previous studio.
func (p *StudioPool) Get(ctx context.Context, holder, apiKey string) (*Studio, error) {
	if apiKey == "" {
		return nil, &CredentialError{Message: "请先选择可用的 API 密钥"}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.held[holder]; ok && prev != apiKey {
		p.releaseLocked(holder)
	}

	entry, ok := p.studios[apiKey]
	if !ok {
		studio, err := p.build(ctx, apiKey)
		if err != nil {
			return nil, &CredentialError{Message: "无法初始化 Gemini 客户端", Err: err}
		}
		entry = &pooledStudio{studio: studio, holders: make(map[string]struct{})}
		p.studios[apiKey] = entry
		p.log.Infow("Gemini studio initialized", "studios", len(p.studios))
	}

	entry.holders[holder] = struct{}{}
	p.held[holder] = apiKey
	return entry.studio, nil
}

// Release drops holder's claim. Unknown holders are ignored.
func (p *StudioPool) Release(holder string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked(holder)
}

func (p *StudioPool) releaseLocked(holder string) {
	key, ok := p.held[holder]
	if !ok {
		return
	}
	delete(p.held, holder)

	entry, ok := p.studios[key]
	if !ok {
		return
	}
	delete(entry.holders, holder)
	if len(entry.holders) == 0 {
		p.close(entry.studio)
		delete(p.studios, key)
		p.log.Infow("Gemini studio released", "studios", len(p.studios))
	}
}

// Len reports how many studios are open.
func (p *StudioPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.studios)
}

func (p *StudioPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, entry := range p.studios {
		p.close(entry.studio)
		delete(p.studios, key)
	}
	p.held = make(map[string]string)
}
