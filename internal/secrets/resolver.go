package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/bond-monitor/internal/metrics"
	pkgsecrets "github.com/Checker-Finance/bond-monitor/pkg/secrets"
	"github.com/Checker-Finance/bond-monitor/pkg/utils"
)

// TokenField is the key of the provider token inside the secret JSON.
const TokenField = "token"

// ErrNoToken is returned when neither a static token nor a secret id is configured.
var ErrNoToken = errors.New("no provider token configured")

// TokenResolver yields the market-data provider credential. A static token
// wins; otherwise the token is read from Secrets Manager and cached locally.
type TokenResolver struct {
	logger   *zap.Logger
	static   string
	secretID string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[string]
}

// NewTokenResolver constructs a resolver. provider and cache may be nil when
// only a static token is used.
func NewTokenResolver(
	logger *zap.Logger,
	static string,
	secretID string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[string],
) *TokenResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenResolver{
		logger:   logger,
		static:   strings.TrimSpace(static),
		secretID: strings.TrimSpace(secretID),
		provider: provider,
		cache:    cache,
	}
}

// Resolve returns the provider token.
func (r *TokenResolver) Resolve(ctx context.Context) (string, error) {
	if r.static != "" {
		return r.static, nil
	}
	if r.secretID == "" || r.provider == nil {
		return "", ErrNoToken
	}

	// --- check in-memory cache first ---
	if r.cache != nil {
		if tok, ok := r.cache.Get(r.secretID); ok {
			metrics.IncCacheHit("hit")
			return tok, nil
		}
		metrics.IncCacheHit("miss")
	}

	// --- fetch from AWS Secrets Manager ---
	secretMap, err := r.provider.GetSecret(ctx, r.secretID)
	if err != nil {
		r.logger.Warn("aws.secret_fetch_failed",
			zap.String("key", r.secretID),
			zap.Error(err))
		return "", fmt.Errorf("resolve provider token: %w", err)
	}
	tok := strings.TrimSpace(secretMap[TokenField])
	if tok == "" {
		return "", fmt.Errorf("secret %q has no %q field", r.secretID, TokenField)
	}

	if r.cache != nil {
		r.cache.Put(r.secretID, tok)
	}
	r.logger.Info("aws.provider_token_resolved",
		zap.String("key", r.secretID),
		zap.String("token", utils.MaskToken(tok)))
	return tok, nil
}

// Invalidate drops the cached token, e.g. after the provider rejected it.
func (r *TokenResolver) Invalidate() {
	if r.cache != nil {
		r.cache.Bust(r.secretID)
	}
}
