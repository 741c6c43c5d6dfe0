package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/farmhub/internal/metrics"
)

// TokenPurger deletes refresh tokens that stopped being usable before
// cutoff.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenCleanup deletes refresh tokens that expired or were revoked more
// than retention ago.
type TokenCleanup struct {
	tokens    TokenPurger
	retention time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewTokenCleanup(tokens TokenPurger, retention time.Duration, log *zap.Logger) *TokenCleanup {
	return &TokenCleanup{tokens: tokens, retention: retention, log: log, now: time.Now}
}

// Run purges once and returns the number of deleted rows.
func (j *TokenCleanup) Run(ctx context.Context) (n int64, err error) {
	defer func() { metrics.RecordJobRun("token_cleanup", err == nil) }()

	n, err = j.tokens.PurgeExpired(ctx, j.now().Add(-j.retention))
	if err != nil {
		return 0, err
	}
	j.log.Info("token cleanup finished", zap.Int64("deleted", n))
	return n, nil
}
