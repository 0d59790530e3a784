package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

const (
	RoleSeller   = "seller"
	RoleCustomer = "customer"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID        string    `bun:"id,pk" json:"id"`
	Email     string    `bun:"email,unique,notnull" json:"email"`
	FullName  string    `bun:"full_name,notnull" json:"full_name"`
	Role      string    `bun:"role,notnull" json:"role"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// ProfileSlug is the public identifier used in URLs, derived from the
// display name. It is not guaranteed unique on its own, which is why the
// identity lookup keeps a slug index keyed by role+slug.
func (u *User) ProfileSlug() string {
	return Slugify(u.FullName)
}

// Slugify lowercases the input and collapses anything outside
// [a-z0-9] into single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
