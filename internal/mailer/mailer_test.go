package mailer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pricelens/core/internal/logging"
	"github.com/pricelens/core/internal/mailer"
)

func TestNoopMailerSendsWithoutError(t *testing.T) {
	m := mailer.NoopMailer{Log: logging.New(logging.Config{})}
	err := m.SendDigest(context.Background(), mailer.Digest{
		ToEmail:  "user@example.com",
		Subject:  "Your weekly competitor pricing digest",
		TextBody: "3 verified changes this week.",
		HTMLBody: "<p>3 verified changes this week.</p>",
	})
	assert.NoError(t, err)
}

func TestNoopMailerToleratesNilLogger(t *testing.T) {
	m := mailer.NoopMailer{}
	err := m.SendDigest(context.Background(), mailer.Digest{ToEmail: "user@example.com"})
	assert.NoError(t, err)
}

func TestNoopMailerSatisfiesDigestMailerInterface(t *testing.T) {
	var _ mailer.DigestMailer = mailer.NoopMailer{}
}
