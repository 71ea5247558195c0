package devapi

import (
	"crypto/subtle"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/me/storefront/pkg/model"
)

// User is an account known to the development backend.
type User struct {
	ID       string         `json:"id"`
	Username string         `json:"username"`
	Role     model.UserRole `json:"role"`
	password string
}

// Users is an immutable set of accounts keyed by username.
type Users struct {
	byName map[string]*User
}

// ParseUsers parses a comma-separated list of name:password[:role]
// entries. Ids are derived from the username so they are stable across
// restarts.
func ParseUsers(list string) (*Users, error) {
	u := &Users{byName: make(map[string]*User)}
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid user entry %q: want name:password[:role]", entry)
		}
		role := model.RoleUser
		if len(parts) == 3 {
			switch model.UserRole(parts[2]) {
			case model.RoleUser, model.RoleAdmin:
				role = model.UserRole(parts[2])
			default:
				return nil, fmt.Errorf("invalid role %q for user %q", parts[2], parts[0])
			}
		}
		if _, dup := u.byName[parts[0]]; dup {
			return nil, fmt.Errorf("duplicate user %q", parts[0])
		}
		u.byName[parts[0]] = &User{
			ID:       uuid.NewSHA1(uuid.NameSpaceOID, []byte("storefront:"+parts[0])).String(),
			Username: parts[0],
			Role:     role,
			password: parts[1],
		}
	}
	if len(u.byName) == 0 {
		return nil, fmt.Errorf("no users configured")
	}
	return u, nil
}

// Authenticate returns the user when the password matches.
func (u *Users) Authenticate(username, password string) (*User, bool) {
	user, ok := u.byName[username]
	if !ok {
		return nil, false
	}
	if subtle.ConstantTimeCompare([]byte(user.password), []byte(password)) != 1 {
		return nil, false
	}
	return user, true
}

// Lookup returns the user with the given name.
func (u *Users) Lookup(username string) (*User, bool) {
	user, ok := u.byName[username]
	return user, ok
}

// Names returns the usernames in sorted order.
func (u *Users) Names() []string {
	names := make([]string, 0, len(u.byName))
	for n := range u.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of accounts.
func (u *Users) Len() int {
	return len(u.byName)
}
