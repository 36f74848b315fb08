package session

import (
	"context"
	"maps"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/chefconnect/internal/kv"
	"github.com/roach88/chefconnect/internal/persisted"
)

// account is a registered user with a password hash.
type account struct {
	User         User   `json:"user"`
	PasswordHash string `json:"passwordHash"`
}

// accounts is the persisted registry, keyed by lower-cased email.
type accounts struct {
	b    *persisted.Binding[map[string]account]
	cost int
}

func newAccounts(ctx context.Context, store kv.Storage, cost int, opts ...persisted.Option) *accounts {
	return &accounts{
		b:    persisted.Bind(ctx, store, kv.KeyAccounts, map[string]account{}, opts...),
		cost: cost,
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *accounts) lookup(email string) (account, bool) {
	acct, ok := a.b.Get()[emailKey(email)]
	return acct, ok
}

func (a *accounts) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (a *accounts) check(acct account, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) == nil
}

func (a *accounts) put(ctx context.Context, acct account) {
	key := emailKey(acct.User.Email)
	a.b.Update(ctx, func(prev map[string]account) map[string]account {
		next := maps.Clone(prev)
		if next == nil {
			next = map[string]account{}
		}
		next[key] = acct
		return next
	})
}

func (a *accounts) updateUser(ctx context.Context, u User) {
	key := emailKey(u.Email)
	a.b.Modify(ctx, func(prev map[string]account) (map[string]account, bool) {
		acct, ok := prev[key]
		if !ok {
			return prev, false
		}
		next := maps.Clone(prev)
		acct.User = u
		next[key] = acct
		return next, true
	})
}

func (a *accounts) close() {
	a.b.Close()
}
