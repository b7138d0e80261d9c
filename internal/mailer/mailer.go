// Package mailer defines the DigestMailer collaborator the weekly
// digest job (spec.md §4.12) dispatches composed emails through.
// spec.md keeps the transactional email sender out of scope (§1); this
// package is the thin seam the real mail provider plugs into, plus a
// no-op stub for local/dev and tests.
package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/pricelens/core/internal/logging"
)

// Digest is a fully composed weekly digest, ready to hand to whatever
// transport actually delivers mail.
type Digest struct {
	ToEmail  string
	Subject  string
	TextBody string
	HTMLBody string
}

// DigestMailer sends a composed weekly digest. The digest job calls
// this only after gating (canReceiveWeeklyDigest, lookback window,
// diff count) has already passed.
type DigestMailer interface {
	SendDigest(ctx context.Context, digest Digest) error
}

// NoopMailer logs the digest it would have sent and returns success.
// It's the default wiring for local development, where no real mail
// provider is configured.
type NoopMailer struct {
	Log *logging.Logger
}

// SendDigest logs the digest at info level and returns nil.
func (n NoopMailer) SendDigest(ctx context.Context, digest Digest) error {
	if n.Log != nil {
		n.Log.Info("digest dispatched (noop mailer)",
			zap.String("toEmail", digest.ToEmail),
			zap.String("subject", digest.Subject),
		)
	}
	return nil
}
