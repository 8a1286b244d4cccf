package newsletter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/vctrpage/vctr/internal/email"
)

// Sentinel errors surfaced to the HTTP layer, which maps them to the
// user-facing pages.
var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrSendFailed   = errors.New("confirmation email could not be sent")
	ErrTokenInvalid = errors.New("confirmation token unknown")
	ErrTokenUsed    = errors.New("confirmation token no longer valid")
	ErrTokenExpired = errors.New("confirmation token expired")
)

// Deliberately simple: one non-space local part, one @, a dot in the domain.
// Anything stricter rejects real addresses; real validation is the
// confirmation email itself.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// maxEmailLength per RFC 3696 erratum.
const maxEmailLength = 320

// NormalizeEmail canonicalizes an address for storage and signing.
func NormalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// ValidEmail reports whether a normalized address is acceptable.
func ValidEmail(addr string) bool {
	return len(addr) <= maxEmailLength && emailRe.MatchString(addr)
}

// Service implements the double-opt-in subscription flow on top of Store.
type Service struct {
	Store  *Store
	Sender email.Sender
	Signer *Signer

	BaseURL        string // public origin for links in emails
	OwnerName      string
	ResendCooldown time.Duration
	ConfirmTTL     time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Subscribe registers an address and sends a confirmation email when one is
// due. Already-confirmed addresses and pending ones inside the resend
// cooldown produce no email and no error, so the caller's response never
// reveals whether the address was known.
func (s *Service) Subscribe(ctx context.Context, addr string) error {
	addr = NormalizeEmail(addr)
	if !ValidEmail(addr) {
		return ErrInvalidEmail
	}

	now := s.now()
	rawToken := NewConfirmationToken()

	inserted, err := s.Store.InsertPending(ctx, addr, HashToken(rawToken), now)
	if err != nil {
		return fmt.Errorf("register subscriber: %w", err)
	}

	if !inserted {
		sub, err := s.Store.GetByEmail(ctx, addr)
		if err != nil {
			return fmt.Errorf("load existing subscriber: %w", err)
		}
		if sub.Status != StatusPending {
			return nil
		}
		if !sub.ConfirmationSentAt.IsZero() && now.Sub(sub.ConfirmationSentAt) <= s.ResendCooldown {
			// Recent confirmation email still in flight.
			return nil
		}
		rawToken = NewConfirmationToken()
		if err := s.Store.RefreshToken(ctx, sub.ID, HashToken(rawToken), now); err != nil {
			return err
		}
	}

	if err := s.Sender.Send(ctx, s.confirmationEmail(addr, rawToken)); err != nil {
		s.Logger.Error("confirmation email failed", "error", err)
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

// Confirm resolves a raw confirmation token and marks the subscriber as
// confirmed. Tokens are single-use and expire ConfirmTTL after they were
// emailed.
func (s *Service) Confirm(ctx context.Context, rawToken string) error {
	sub, err := s.Store.GetByTokenHash(ctx, HashToken(rawToken))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTokenInvalid
	}
	if err != nil {
		return err
	}

	if sub.Status != StatusPending {
		return ErrTokenUsed
	}
	if sub.ConfirmationSentAt.IsZero() {
		return ErrTokenInvalid
	}
	if s.now().Sub(sub.ConfirmationSentAt) > s.ConfirmTTL {
		return ErrTokenExpired
	}

	ok, err := s.Store.Confirm(ctx, sub.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTokenUsed
	}

	s.Logger.Info("subscription confirmed", "subscriber", sub.ID)
	return nil
}

// Unsubscribe validates a signed link and removes the subscriber. The
// response is the same whether or not the address was subscribed.
func (s *Service) Unsubscribe(ctx context.Context, encodedEmail string, ts int64, sig string) error {
	addr, err := DecodeEmail(encodedEmail)
	if err != nil {
		return err
	}
	addr = NormalizeEmail(addr)
	if addr == "" {
		return ErrInvalidEmail
	}

	if err := s.Signer.Verify(addr, ts, sig); err != nil {
		return err
	}
	return s.Store.DeleteByEmail(ctx, addr)
}

// CleanupStale removes pending subscribers whose confirmation window has
// passed. These rows can never confirm anymore, so keeping them only retains
// addresses without consent.
func (s *Service) CleanupStale(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ConfirmTTL)
	n, err := s.Store.DeleteStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Logger.Info("removed stale pending subscribers", "count", n)
	}
	return n, nil
}

func (s *Service) confirmURL(rawToken string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/api/newsletter-confirm?token=" + url.QueryEscape(rawToken)
}

func (s *Service) confirmationEmail(to, rawToken string) email.Message {
	confirmURL := s.confirmURL(rawToken)

	html := fmt.Sprintf(`<div style="font-family: system-ui, -apple-system, Segoe UI, Roboto, Helvetica, Arial, sans-serif; line-height:1.5; color:#111;">
  <p>Para confirmar tu suscripción, haz clic en el siguiente botón:</p>
  <p>
    <a href="%[1]s" style="font-size:16px;background:#111;color:#fff;padding:12px 18px;border-radius:6px;text-decoration:none;display:inline-block">
      Confirmar suscripción
    </a>
  </p>
  <p>O utiliza el siguiente enlace:</p>
  <p><a href="%[1]s">%[1]s</a></p>
  <p>Gracias por suscribirte.</p>
  %[2]s
</div>`, confirmURL, s.emailSignature())

	text := fmt.Sprintf("Confirma tu suscripción\n\nAbre este enlace para confirmar:\n%s\n", confirmURL)

	return email.Message{
		To:      to,
		Subject: "Confirma tu suscripción",
		HTML:    html,
		Text:    text,
		Tags:    map[string]string{"list": "newsletter", "type": "confirmation"},
	}
}

// emailSignature is the site wordmark used at the bottom of every email.
func (s *Service) emailSignature() string {
	return fmt.Sprintf(`<a style="font-family: Georgia, 'Times New Roman', Times, serif;display:inline-block;font-variant:small-caps;font-weight:400;font-size:32px;color:black;text-decoration:none" href="%s" aria-label="%s">%s</a>`,
		s.BaseURL, s.OwnerName, s.OwnerName)
}
