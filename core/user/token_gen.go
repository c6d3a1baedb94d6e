package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/jamii/core"
)

var (
	tokenSalt  = []byte("jamii.core.user.reset_token")
	tokenEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	dayB32     = base32.StdEncoding.WithPadding(base32.NoPadding)

	NowFunc = time.Now // mockable

	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// EncodeUID makes a URL-safe form of the user's ID for reset links.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// MakeToken issues a password reset token for usr.
// A token is "<day>-<signature>" and stops verifying once the user logs in or changes password.
func MakeToken(usr User, conf *core.Config) (string, error) {
	return resetToken{day: daysSinceEpoch(NowFunc())}.sign(usr, conf.SecretKey), nil
}

func verifyToken(usr User, token string, conf *core.Config) error {
	parsed, ok := parseResetToken(token)
	if !ok {
		return errInvalidToken
	}

	expected := parsed.sign(usr, conf.SecretKey)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return errInvalidToken
	}

	maxAge := int(conf.PasswordResetTimeoutDelta / (24 * time.Hour))
	if daysSinceEpoch(NowFunc())-parsed.day > maxAge {
		return errTokenExpired
	}
	return nil
}

type resetToken struct {
	day int
}

func parseResetToken(token string) (resetToken, bool) {
	head, _, found := strings.Cut(token, "-")
	if !found {
		return resetToken{}, false
	}
	raw, err := dayB32.DecodeString(head)
	if err != nil {
		return resetToken{}, false
	}
	day, err := strconv.Atoi(string(raw))
	if err != nil {
		return resetToken{}, false
	}
	return resetToken{day: day}, true
}

func (rt resetToken) sign(usr User, secretKey string) string {
	day := strconv.Itoa(rt.day)

	key := sha256.Sum256(append(append([]byte{}, tokenSalt...), secretKey...))
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(usr.ID))
	mac.Write(usr.PasswordHash)
	if !usr.LastLogin.IsZero() {
		mac.Write([]byte(usr.LastLogin.UTC().Format(time.RFC3339)))
	}
	mac.Write([]byte(day))

	return dayB32.EncodeToString([]byte(day)) + "-" + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func daysSinceEpoch(t time.Time) int {
	return int(t.Sub(tokenEpoch) / (24 * time.Hour))
}
