package services

import (
	"context"
	"fmt"
	"time"
)

// RateGate is a token bucket bounding concurrent Gemini calls across all
// sessions.
type RateGate struct {
	tokens chan struct{}
}

func NewRateGate(concurrentReqs int) *RateGate {
	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}
	tokens := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		tokens <- struct{}{}
	}
	return &RateGate{tokens: tokens}
}

// Acquire blocks until a rate slot is available
func (g *RateGate) Acquire(ctx context.Context) error {
	select {
	case <-g.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (g *RateGate) Release() {
	g.tokens <- struct{}{}
}
