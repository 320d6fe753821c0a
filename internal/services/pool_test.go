package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestPool(t *testing.T) (*StudioPool, *[]string, map[*Studio]string) {
	t.Helper()
	var closed []string
	keys := map[*Studio]string{}

	p := NewStudioPool(GeminiOptions{}, 2, zaptest.NewLogger(t).Sugar())
	p.build = func(ctx context.Context, apiKey string) (*Studio, error) {
		if apiKey == "broken" {
			return nil, errors.New("bad key")
		}
		s := &Studio{}
		keys[s] = apiKey
		return s, nil
	}
	p.close = func(s *Studio) { closed = append(closed, keys[s]) }
	return p, &closed, keys
}

func TestStudioPool_SharesStudioPerKey(t *testing.T) {
	p, closed, _ := newTestPool(t)
	ctx := context.Background()

	a, err := p.Get(ctx, "s1", "key-a")
	require.NoError(t, err)
	b, err := p.Get(ctx, "s2", "key-a")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, p.Len())

	p.Release("s1")
	assert.Empty(t, *closed, "still held by s2")
	assert.Equal(t, 1, p.Len())

	p.Release("s2")
	assert.Equal(t, []string{"key-a"}, *closed)
	assert.Equal(t, 0, p.Len())

	c, err := p.Get(ctx, "s3", "key-a")
	require.NoError(t, err)
	assert.NotSame(t, a, c, "closed studio is rebuilt")
}

func TestStudioPool_SwitchingKeysReleasesPrevious(t *testing.T) {
	p, closed, _ := newTestPool(t)
	ctx := context.Background()

	_, err := p.Get(ctx, "s1", "key-a")
	require.NoError(t, err)
	_, err = p.Get(ctx, "s1", "key-a")
	require.NoError(t, err)
	assert.Empty(t, *closed)

	_, err = p.Get(ctx, "s1", "key-b")
	require.NoError(t, err)
	assert.Equal(t, []string{"key-a"}, *closed)
	assert.Equal(t, 1, p.Len())
}

func TestStudioPool_Errors(t *testing.T) {
	p, _, _ := newTestPool(t)

	var credErr *CredentialError
	_, err := p.Get(context.Background(), "s1", "")
	assert.ErrorAs(t, err, &credErr)

	_, err = p.Get(context.Background(), "s1", "broken")
	assert.ErrorAs(t, err, &credErr)
	assert.Equal(t, 0, p.Len())

	p.Release("unknown")
}

func TestStudioPool_CloseReleasesEverything(t *testing.T) {
	p, closed, _ := newTestPool(t)
	ctx := context.Background()

	_, _ = p.Get(ctx, "s1", "key-a")
	_, _ = p.Get(ctx, "s2", "key-b")
	p.Close()

	assert.ElementsMatch(t, []string{"key-a", "key-b"}, *closed)
	assert.Equal(t, 0, p.Len())
	p.Release("s1")
	assert.Len(t, *closed, 2)
}
