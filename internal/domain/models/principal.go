package models

import (
	"strings"

	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
)

// reservedUsernames may never be assigned to an account.
var reservedUsernames = map[string]struct{}{
	"admin":         {},
	"administrator": {},
	"root":          {},
	"system":        {},
	"support":       {},
	"api":           {},
	"null":          {},
	"undefined":     {},
	"anonymous":     {},
	"security":      {},
}

// User is the cached view of a principal.
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Enabled  bool     `json:"enabled"`
	Roles    []string `json:"roles,omitempty"`
}

// NormalizeEmail trims and lowercases an email address and checks its basic shape.
func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", errors.ErrInvalidArgument("email", "must not be blank")
	}
	if len(normalized) > constants.EmailMaxLength {
		return "", errors.ErrInvalidArgument("email", "exceeds 254 characters")
	}
	at := strings.Index(normalized, "@")
	if at <= 0 || at != strings.LastIndex(normalized, "@") || at == len(normalized)-1 {
		return "", errors.ErrInvalidArgument("email", "must contain exactly one @ between local part and domain")
	}
	return normalized, nil
}

// NormalizeUsername trims and lowercases a candidate username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateUsername checks an already normalized username.
func ValidateUsername(username string) error {
	if len(username) < constants.UsernameMinLength || len(username) > constants.UsernameMaxLength {
		return errors.ErrInvalidArgument("username", "must be between 3 and 64 characters")
	}
	for i := 0; i < len(username); i++ {
		c := username[i]
		if !isUsernameChar(c) {
			return errors.ErrInvalidArgument("username", "may only contain a-z, 0-9, '.' and '-'")
		}
		if isSeparator(c) {
			if i == 0 || i == len(username)-1 {
				return errors.ErrInvalidArgument("username", "must not start or end with '.' or '-'")
			}
			if isSeparator(username[i-1]) {
				return errors.ErrInvalidArgument("username", "must not contain consecutive '.' or '-'")
			}
		}
	}
	if _, reserved := reservedUsernames[username]; reserved {
		return errors.ErrInvalidArgument("username", "is reserved")
	}
	return nil
}

// DeriveUsernameBase builds a normalized username candidate from the local part of an email.
// Characters outside the username charset are dropped, separator runs collapse to the first
// separator and the result is padded with "user" when it is too short.
func DeriveUsernameBase(email string) string {
	local := NormalizeUsername(email)
	if at := strings.Index(local, "@"); at >= 0 {
		local = local[:at]
	}

	var b strings.Builder
	for i := 0; i < len(local); i++ {
		c := local[i]
		if c == '_' || c == '+' {
			c = '.'
		}
		if !isUsernameChar(c) {
			continue
		}
		if isSeparator(c) {
			if b.Len() == 0 {
				continue
			}
			last := b.String()[b.Len()-1]
			if isSeparator(last) {
				continue
			}
		}
		b.WriteByte(c)
	}

	base := strings.TrimRight(b.String(), ".-")
	if len(base) > constants.UsernameMaxLength {
		base = strings.TrimRight(base[:constants.UsernameMaxLength], ".-")
	}
	if len(base) < constants.UsernameMinLength {
		base = "user" + base
	}
	if _, reserved := reservedUsernames[base]; reserved {
		base = base + ".user"
	}
	return base
}

func isUsernameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || isSeparator(c)
}

func isSeparator(c byte) bool {
	return c == '.' || c == '-'
}
