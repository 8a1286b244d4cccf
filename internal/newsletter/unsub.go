package newsletter

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

var (
	// ErrSignatureInvalid means the link signature does not match either the
	// current or the previous secret.
	ErrSignatureInvalid = errors.New("invalid unsubscribe signature")

	// ErrLinkExpired means the link timestamp is outside the accepted window.
	ErrLinkExpired = errors.New("unsubscribe link expired")

	// ErrMalformedLink means a link parameter could not be decoded at all.
	ErrMalformedLink = errors.New("malformed unsubscribe link")
)

// Signer signs and verifies one-click unsubscribe links. Links embed the
// subscriber email, a millisecond timestamp and an HMAC over both, so they
// work without any per-subscriber state. A previous secret is accepted during
// rotation so links issued before the rotation stay valid until they expire.
type Signer struct {
	Secret     string
	PrevSecret string
	TTL        time.Duration

	Now func() time.Time
}

// EncodeEmail returns the URL-safe form of an email for use in a link.
func EncodeEmail(email string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(email))
}

// DecodeEmail reverses EncodeEmail.
func DecodeEmail(encoded string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedLink, err)
	}
	return string(raw), nil
}

func (s *Signer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Signer) signWith(secret, email string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "unsubscribe|%s|%d", email, ts)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Sign returns the signature for an email and millisecond timestamp.
func (s *Signer) Sign(email string, ts int64) string {
	return s.signWith(s.Secret, email, ts)
}

// SignedURL builds a complete unsubscribe URL for a subscriber.
func (s *Signer) SignedURL(baseURL, email string) string {
	ts := s.now().UnixMilli()
	q := url.Values{}
	q.Set("e", EncodeEmail(email))
	q.Set("ts", strconv.FormatInt(ts, 10))
	q.Set("s", s.Sign(email, ts))
	return baseURL + "/api/newsletter-unsubscribe?" + q.Encode()
}

// Verify checks a link's age and signature. The current secret is tried
// first, then the previous one. Timestamps in the future are rejected.
func (s *Signer) Verify(email string, ts int64, sig string) error {
	age := s.now().UnixMilli() - ts
	if age < 0 || age > s.TTL.Milliseconds() {
		return ErrLinkExpired
	}

	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return ErrSignatureInvalid
	}

	ok := false
	for _, secret := range []string{s.Secret, s.PrevSecret} {
		if secret == "" {
			continue
		}
		want, err := base64.RawURLEncoding.DecodeString(s.signWith(secret, email, ts))
		if err != nil {
			continue
		}
		if hmac.Equal(got, want) {
			ok = true
			break
		}
	}
	if !ok {
		return ErrSignatureInvalid
	}
	return nil
}
