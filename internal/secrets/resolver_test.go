package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgsecrets "github.com/Checker-Finance/bond-monitor/pkg/secrets"
)

type mockProvider struct {
	secret map[string]string
	err    error
	calls  int
}

func (m *mockProvider) GetSecret(_ context.Context, _ string) (map[string]string, error) {
	m.calls++
	return m.secret, m.err
}

func TestResolve_StaticWins(t *testing.T) {
	p := &mockProvider{secret: map[string]string{"token": "from-aws"}}
	r := NewTokenResolver(zap.NewNop(), " static-token ", "prod/tushare", p, nil)

	tok, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static-token", tok)
	assert.Zero(t, p.calls)
}

func TestResolve_FromSecretAndCached(t *testing.T) {
	p := &mockProvider{secret: map[string]string{"token": "abcd1234efgh"}}
	r := NewTokenResolver(zap.NewNop(), "", "prod/tushare", p, pkgsecrets.NewCache[string](time.Hour))

	for i := 0; i < 3; i++ {
		tok, err := r.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "abcd1234efgh", tok)
	}
	assert.Equal(t, 1, p.calls)

	r.Invalidate()
	_, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls)
}

func TestResolve_Errors(t *testing.T) {
	_, err := NewTokenResolver(nil, "", "", nil, nil).Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)

	boom := errors.New("access denied")
	_, err = NewTokenResolver(nil, "", "prod/tushare", &mockProvider{err: boom}, nil).Resolve(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = NewTokenResolver(nil, "", "prod/tushare", &mockProvider{secret: map[string]string{"api_key": "x"}}, nil).Resolve(context.Background())
	assert.ErrorContains(t, err, `no "token" field`)
}
