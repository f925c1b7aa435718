package mail

import (
	"context"
	"log/slog"

	"github.com/solsticehq/solstice/pkg/cryptox"
)

// LogSender writes mail to the log instead of a relay. Used in local
// development where no SMTP relay is configured. Only the secret's
// fingerprint appears at Info; the cleartext needs debug logging turned on.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) SendVerification(ctx context.Context, to, name, secret string) error {
	s.logSecret(ctx, "mail: verification", to, name, secret)
	return nil
}

func (s *LogSender) SendPasswordReset(ctx context.Context, to, name, secret string) error {
	s.logSecret(ctx, "mail: password reset", to, name, secret)
	return nil
}

func (s *LogSender) SendWelcome(ctx context.Context, to, name string) error {
	s.logger().InfoContext(ctx, "mail: welcome",
		slog.String("to", to),
		slog.String("name", name),
	)
	return nil
}

func (s *LogSender) logSecret(ctx context.Context, msg, to, name, secret string) {
	s.logger().InfoContext(ctx, msg,
		slog.String("to", to),
		slog.String("name", name),
		slog.String("secret_sha256", cryptox.HashActionSecret(secret)),
	)
	s.logger().DebugContext(ctx, msg+" secret",
		slog.String("to", to),
		slog.String("secret", secret),
	)
}

func (s *LogSender) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
