// Package token issues and checks the verification tokens embedded in email
// confirmation and password reset links.
//
// Tokens are stateless: nothing is persisted. A token is an HMAC over a
// fingerprint of the account's current state, and every purpose folds the
// exact field its redemption mutates into that fingerprint. Once redemption
// flips the confirmed flag (or replaces the password hash) the recomputed
// fingerprint no longer matches, so a token is single-use without a
// blacklist table. Any new purpose added here must keep that invariant.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-identity-api/internal/domain"
)

// Purposes bind a token to one flow so a confirmation token can never be
// replayed against the reset endpoint and vice versa.
const (
	PurposeConfirmEmail  = "confirm-email"
	PurposePasswordReset = "password-reset"
)

const bucket = 24 * time.Hour

// Generator derives and checks verification tokens. Construct it with the
// signing secret and max age from config; it holds no other state.
type Generator struct {
	secret []byte
	maxAge time.Duration

	// now is swapped out in tests to age tokens.
	now func() time.Time
}

func NewGenerator(secret string, maxAge time.Duration) *Generator {
	return &Generator{secret: []byte(secret), maxAge: maxAge, now: time.Now}
}

// Issue returns a token string of the form
//
//	<base64url(user id)>-<base36 day bucket>-<hex hmac>
//
// The day bucket is coarse on purpose: links are expected to live for hours,
// not seconds, and the coarse stamp keeps the token short.
func (g *Generator) Issue(u *domain.User, purpose string) (string, error) {
	state, err := stateFingerprint(u, purpose)
	if err != nil {
		return "", err
	}
	day := g.dayBucket(g.now())
	return EncodeUID(u.UserID) + "-" + strconv.FormatInt(day, 36) + "-" + g.mac(u.UserID, purpose, state, day), nil
}

// Check reports whether tok is valid for (u, purpose) right now. It recomputes
// the expected MAC from the account's *current* state, so a token issued
// before the state advanced fails closed. Every rejection looks identical to
// the caller: malformed string, wrong subject, expired bucket and fingerprint
// mismatch all return plain false.
func (g *Generator) Check(u *domain.User, purpose, tok string) bool {
	if u == nil || tok == "" {
		return false
	}
	macIdx := strings.LastIndexByte(tok, '-')
	if macIdx < 0 {
		return false
	}
	dayIdx := strings.LastIndexByte(tok[:macIdx], '-')
	if dayIdx < 0 {
		return false
	}
	uid, gotMAC := tok[:dayIdx], tok[macIdx+1:]

	subject, err := DecodeUID(uid)
	if err != nil || subject != u.UserID {
		return false
	}

	day, err := strconv.ParseInt(tok[dayIdx+1:macIdx], 36, 64)
	if err != nil {
		return false
	}
	if !g.bucketAlive(day) {
		return false
	}

	state, err := stateFingerprint(u, purpose)
	if err != nil {
		return false
	}
	want := g.mac(u.UserID, purpose, state, day)
	return hmac.Equal([]byte(gotMAC), []byte(want))
}

// stateFingerprint selects the mutable fields a purpose signs over. The
// redemption path for each purpose must mutate at least one of them.
func stateFingerprint(u *domain.User, purpose string) (string, error) {
	switch purpose {
	case PurposeConfirmEmail:
		return u.Email + "|" + strconv.FormatBool(u.EmailConfirmed), nil
	case PurposePasswordReset:
		return u.PasswordHash, nil
	default:
		return "", fmt.Errorf("unknown token purpose %q", purpose)
	}
}

func (g *Generator) mac(userID, purpose, state string, day int64) string {
	h := hmac.New(sha256.New, g.secret)
	fmt.Fprintf(h, "%s|%s|%d|%s", purpose, userID, day, state)
	return hex.EncodeToString(h.Sum(nil))
}

func (g *Generator) dayBucket(t time.Time) int64 {
	return t.Unix() / int64(bucket/time.Second)
}

// bucketAlive accepts the current bucket plus as many previous buckets as fit
// in maxAge (at least one, so a link issued just before midnight survives the
// rollover). Future buckets are rejected.
func (g *Generator) bucketAlive(day int64) bool {
	allowed := int64(g.maxAge / bucket)
	if allowed < 1 {
		allowed = 1
	}
	age := g.dayBucket(g.now()) - day
	return age >= 0 && age <= allowed
}

// EncodeUID encodes an account identifier for use as a URL path segment.
// The encoding is reversible and URL-safe; it hides nothing — the token next
// to it carries the security.
func EncodeUID(userID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userID))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(uid string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
