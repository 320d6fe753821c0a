package controller

import (
	"context"
	"strings"
	"sync"

	"slidecraft-backend/internal/services"
)

// KeySelector is the credential gate in front of every remote call.
type KeySelector interface {
	HasSelectedKey(ctx context.Context) (bool, error)
	// OpenSelectKey asks the user to pick a key. It returns nil only if a
	// key was selected before it returned.
	OpenSelectKey(ctx context.Context) error
	SelectedKey() string
	Select(key string) error
}

// SessionKeys holds the key a browser session selected. Selection happens in
// a later request, so OpenSelectKey only raises the prompt.
type SessionKeys struct {
	mu        sync.RWMutex
	key       string
	fallback  string
	prompting bool
}

// NewSessionKeys falls back to the server-wide key when the session has not
// selected its own.
func NewSessionKeys(fallback string) *SessionKeys {
	return &SessionKeys{fallback: strings.TrimSpace(fallback)}
}

func (k *SessionKeys) HasSelectedKey(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return k.SelectedKey() != "", nil
}

func (k *SessionKeys) OpenSelectKey(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.prompting = true
	return ErrSelectionPending
}

func (k *SessionKeys) SelectedKey() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.key != "" {
		return k.key
	}
	return k.fallback
}

func (k *SessionKeys) Select(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return &services.ValidationError{Fields: map[string]string{"api_key": "API key is required"}}
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.key = key
	k.prompting = false
	return nil
}

func (k *SessionKeys) Prompting() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.prompting
}
