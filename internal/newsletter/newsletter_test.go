package newsletter

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vctrpage/vctr/internal/email"
)

type fakeSender struct {
	sent []email.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (*Service, *fakeSender, *testClock) {
	t.Helper()

	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	sender := &fakeSender{}

	svc := &Service{
		Store:  store,
		Sender: sender,
		Signer: &Signer{
			Secret: "current-secret",
			TTL:    7 * 24 * time.Hour,
			Now:    func() time.Time { return clock.now },
		},
		BaseURL:        "https://vctr.page",
		OwnerName:      "Víctor",
		ResendCooldown: 10 * time.Minute,
		ConfirmTTL:     24 * time.Hour,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:            func() time.Time { return clock.now },
	}
	return svc, sender, clock
}

// tokenFrom extracts the raw confirmation token from a sent message.
func tokenFrom(t *testing.T, m email.Message) string {
	t.Helper()
	i := strings.Index(m.Text, "token=")
	require.GreaterOrEqual(t, i, 0, "confirmation email should carry a token link")
	token := strings.TrimSpace(m.Text[i+len("token="):])
	raw, err := url.QueryUnescape(token)
	require.NoError(t, err)
	return raw
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("a@b.co"))
	assert.True(t, ValidEmail("first.last+tag@example.org"))

	assert.False(t, ValidEmail(""))
	assert.False(t, ValidEmail("no-at.example.org"))
	assert.False(t, ValidEmail("spaces in@example.org"))
	assert.False(t, ValidEmail("a@nodot"))
	assert.False(t, ValidEmail("a@"+strings.Repeat("x", 320)+".com"))
}

func TestSubscribeSendsConfirmation(t *testing.T) {
	svc, sender, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, "  Ana@Example.ORG "))
	require.Len(t, sender.sent, 1)

	m := sender.sent[0]
	assert.Equal(t, "ana@example.org", m.To)
	assert.Equal(t, "Confirma tu suscripción", m.Subject)
	assert.Equal(t, "newsletter", m.Tags["list"])
	assert.Contains(t, m.Text, "https://vctr.page/api/newsletter-confirm?token=")

	sub, err := svc.Store.GetByEmail(ctx, "ana@example.org")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, sub.Status)
	assert.Equal(t, HashToken(tokenFrom(t, m)), sub.ConfirmationToken)
}

func TestSubscribeRejectsInvalidEmail(t *testing.T) {
	svc, sender, _ := newTestService(t)

	err := svc.Subscribe(context.Background(), "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.Empty(t, sender.sent)
}

func TestSubscribeCooldownSuppressesResend(t *testing.T) {
	svc, sender, clock := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, "ana@example.org"))
	before, err := svc.Store.GetByEmail(ctx, "ana@example.org")
	require.NoError(t, err)

	clock.advance(5 * time.Minute)
	require.NoError(t, svc.Subscribe(ctx, "ana@example.org"))

	after, err := svc.Store.GetByEmail(ctx, "ana@example.org")
	require.NoError(t, err)

	assert.Len(t, sender.sent, 1, "no resend inside the cooldown")
	assert.Equal(t, before.ConfirmationToken, after.ConfirmationToken)
	assert.Equal(t, before.ConfirmationSentAt, after.ConfirmationSentAt)
}

func TestSubscribeAfterCooldownRotatesToken(t *testing.T) {
	svc, sender, clock := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, "ana@example.org"))
	before, err := svc.Store.GetByEmail(ctx, "ana@example.org")
	require.NoError(t, err)

	clock.advance(11 * time.Minute)
	require.NoError(t, svc.Subscribe(ctx, "ana@example.org"))

	after, err := svc.Store.GetByEmail(ctx, "ana@example.org")
	require.NoError(t, err)

	require.Len(t, sender.sent, 2)
	assert.NotEqual(t, before.ConfirmationToken, after.ConfirmationToken)

	// The old link must be dead, the new one live.
	assert.ErrorIs(t, svc.Confirm(ctx, tokenFrom(t, sender.sent[0])), ErrTokenInvalid)
	assert.NoError(t, svc.Confirm(ctx, tokenFrom(t, sender.sent[1])))
}

func TestSubscribeConfirmedAddressSendsNothing(t *testing.T) {
	svc, sender, clock := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, "ana@example.org"))
	require.NoError(t, svc.Confirm(ctx, tokenFrom(t, sender.sent[0])))

	clock.advance(time.Hour)
	require.NoError(t, svc.Subscribe(ctx, "ana@example.org"))
	assert.Len(t, sender.sent, 1)
}

func TestSubscribeSendFailure(t *testing.T) {
	svc, sender, _ := newTestService(t)
	sender.err = assert.AnError

	err := svc.Subscribe(context.Background(), "ana@example.org")
	assert.ErrorIs(t, err, ErrSendFailed)
}

func TestConfirmIsSingleUse(t *testing.T) {
	svc, sender, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, "ana@example.org"))
	token := tokenFrom(t, sender.sent[0])

	require.NoError(t, svc.Confirm(ctx, token))

	sub, err := svc.Store.GetByEmail(ctx, "ana@example.org")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, sub.Status)
	assert.Empty(t, sub.ConfirmationToken)

	assert.ErrorIs(t, svc.Confirm(ctx, token), ErrTokenInvalid)
}

func TestConfirmExpiredToken(t *testing.T) {
	svc, sender, clock := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, "ana@example.org"))
	clock.advance(25 * time.Hour)

	assert.ErrorIs(t, svc.Confirm(ctx, tokenFrom(t, sender.sent[0])), ErrTokenExpired)
}

func TestConfirmUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	assert.ErrorIs(t, svc.Confirm(context.Background(), "nope"), ErrTokenInvalid)
}

func TestUnsubscribeSignedLink(t *testing.T) {
	svc, sender, clock := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, "ana@example.org"))
	require.NoError(t, svc.Confirm(ctx, tokenFrom(t, sender.sent[0])))

	ts := clock.now.UnixMilli()
	sig := svc.Signer.Sign("ana@example.org", ts)

	require.NoError(t, svc.Unsubscribe(ctx, EncodeEmail("ana@example.org"), ts, sig))

	emails, err := svc.Store.ConfirmedEmails(ctx)
	require.NoError(t, err)
	assert.Empty(t, emails)

	// Unsubscribing again is still fine.
	assert.NoError(t, svc.Unsubscribe(ctx, EncodeEmail("ana@example.org"), ts, sig))
}

func TestUnsubscribeRejectsTamperedSignature(t *testing.T) {
	svc, _, clock := newTestService(t)

	ts := clock.now.UnixMilli()
	sig := svc.Signer.Sign("other@example.org", ts)

	err := svc.Unsubscribe(context.Background(), EncodeEmail("ana@example.org"), ts, sig)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestUnsubscribeLinkExpiry(t *testing.T) {
	svc, _, clock := newTestService(t)

	ts := clock.now.UnixMilli()
	sig := svc.Signer.Sign("ana@example.org", ts)

	clock.advance(8 * 24 * time.Hour)
	err := svc.Unsubscribe(context.Background(), EncodeEmail("ana@example.org"), ts, sig)
	assert.ErrorIs(t, err, ErrLinkExpired)

	// A timestamp from the future is just as invalid.
	future := clock.now.Add(time.Minute).UnixMilli()
	err = svc.Unsubscribe(context.Background(), EncodeEmail("ana@example.org"), future, svc.Signer.Sign("ana@example.org", future))
	assert.ErrorIs(t, err, ErrLinkExpired)
}

func TestUnsubscribeAcceptsPreviousSecret(t *testing.T) {
	svc, _, clock := newTestService(t)

	old := &Signer{Secret: "old-secret", TTL: svc.Signer.TTL, Now: func() time.Time { return clock.now }}
	ts := clock.now.UnixMilli()
	sig := old.Sign("ana@example.org", ts)

	svc.Signer.PrevSecret = "old-secret"
	assert.NoError(t, svc.Unsubscribe(context.Background(), EncodeEmail("ana@example.org"), ts, sig))

	svc.Signer.PrevSecret = ""
	err := svc.Unsubscribe(context.Background(), EncodeEmail("ana@example.org"), ts, sig)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestCleanupStale(t *testing.T) {
	svc, sender, clock := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, "old@example.org"))
	clock.advance(12 * time.Hour)
	require.NoError(t, svc.Subscribe(ctx, "fresh@example.org"))
	require.NoError(t, svc.Subscribe(ctx, "kept@example.org"))
	require.NoError(t, svc.Confirm(ctx, tokenFrom(t, sender.sent[2])))

	clock.advance(13 * time.Hour)
	removed, err := svc.CleanupStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = svc.Store.GetByEmail(ctx, "old@example.org")
	assert.Error(t, err)

	fresh, err := svc.Store.GetByEmail(ctx, "fresh@example.org")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, fresh.Status)

	kept, err := svc.Store.GetByEmail(ctx, "kept@example.org")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, kept.Status)
}

func TestSignedURLRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)

	raw := svc.Signer.SignedURL("https://vctr.page", "ana@example.org")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/api/newsletter-unsubscribe", u.Path)

	q := u.Query()
	ts, err := strconv.ParseInt(q.Get("ts"), 10, 64)
	require.NoError(t, err)

	decoded, err := DecodeEmail(q.Get("e"))
	require.NoError(t, err)
	assert.Equal(t, "ana@example.org", decoded)

	assert.NoError(t, svc.Signer.Verify(decoded, ts, q.Get("s")))
}
