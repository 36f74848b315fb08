// Package session models the authentication lifecycle
// (anonymous, authenticating, authenticated) against simulated remote
// calls, persisting the token and user through the key-value store so a
// new process resumes the session.
package session

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/chefconnect/internal/clock"
	"github.com/roach88/chefconnect/internal/kv"
	"github.com/roach88/chefconnect/internal/persisted"
)

// mockCurrentPassword is accepted as the current password of users that
// never registered a real one.
const mockCurrentPassword = "current-password"

// Latency is the simulated round-trip time of each remote call.
type Latency struct {
	Login    time.Duration `yaml:"login"`
	Register time.Duration `yaml:"register"`
	Profile  time.Duration `yaml:"profile"`
	Password time.Duration `yaml:"password"`
	Recovery time.Duration `yaml:"recovery"`
	Validate time.Duration `yaml:"validate"`
}

// DefaultLatency matches the mocked backend.
var DefaultLatency = Latency{
	Login:    time.Second,
	Register: time.Second,
	Profile:  500 * time.Millisecond,
	Password: 800 * time.Millisecond,
	Recovery: time.Second,
	Validate: 200 * time.Millisecond,
}

// IDGenerator produces user ids.
type IDGenerator interface {
	Generate() string
}

// Options configures a Manager.
type Options struct {
	Clock      clock.Clock
	Logger     *slog.Logger
	Latency    Latency
	Secret     []byte
	TokenTTL   time.Duration
	BcryptCost int
	IDs        IDGenerator
	Observer   TransitionObserver
}

// Manager is the session state machine.
//
// Thread-safety: Manager is safe for concurrent use. Only one login or
// registration may be in flight; a second one gets ErrBusy.
type Manager struct {
	clock   clock.Clock
	log     *slog.Logger
	latency Latency
	ids     IDGenerator
	obs     TransitionObserver
	tokens  *tokens

	token    *persisted.Binding[string]
	user     *persisted.Binding[*User]
	accounts *accounts

	gen *clock.Sequence
	// persistMu orders generation bumps against session writes so a
	// superseded attempt never writes. Acquire before mu.
	persistMu sync.Mutex

	mu             sync.Mutex
	authenticating bool
	last           State
	watchers       map[int]func(from, to State)
	nextID         int
	stopWatch      []func()
}

// New restores the session persisted in store.
func New(ctx context.Context, store kv.Storage, opts Options) *Manager {
	opts.Clock = clock.Or(opts.Clock)
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Latency == (Latency{}) {
		opts.Latency = DefaultLatency
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("chefconnect-dev-secret")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.IDs == nil {
		opts.IDs = uuidIDs{}
	}
	popt := persisted.WithLogger(opts.Logger)

	m := &Manager{
		clock:    opts.Clock,
		log:      opts.Logger,
		latency:  opts.Latency,
		ids:      opts.IDs,
		obs:      opts.Observer,
		tokens:   &tokens{secret: opts.Secret, ttl: opts.TokenTTL, clock: opts.Clock},
		token:    persisted.Bind(ctx, store, kv.KeyAuthToken, "", popt),
		user:     persisted.Bind[*User](ctx, store, kv.KeyUserData, nil, popt),
		accounts: newAccounts(ctx, store, opts.BcryptCost, popt),
		gen:      clock.NewSequence(),
		watchers: make(map[int]func(from, to State)),
	}
	m.last = m.persistedState()
	if m.last == Anonymous && (m.token.Get() != "" || m.user.Get() != nil) {
		// Half a session is no session.
		m.token.Reset(ctx)
		m.user.Reset(ctx)
	}
	m.stopWatch = []func(){
		m.token.Watch(func(string, persisted.Source) { m.transition() }),
		m.user.Watch(func(*User, persisted.Source) { m.transition() }),
	}
	return m
}

// Close stops following changes made in other contexts.
func (m *Manager) Close() {
	for _, stop := range m.stopWatch {
		stop()
	}
	m.token.Close()
	m.user.Close()
	m.accounts.close()
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// User returns the signed-in user, or nil.
func (m *Manager) User() *User {
	if m.State() != Authenticated {
		return nil
	}
	return m.user.Get()
}

// Token returns the session token, or "" when signed out.
func (m *Manager) Token() string {
	if m.State() != Authenticated {
		return ""
	}
	return m.token.Get()
}

// Watch registers fn for every state transition.
func (m *Manager) Watch(fn func(from, to State)) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.watchers, id)
	}
}

// Login signs in. Unknown emails are accepted and get a synthesized
// profile; registered emails must match their password.
func (m *Manager) Login(ctx context.Context, c Credentials) Result {
	if errs := c.Validate(); errs != nil {
		return invalid(errs)
	}
	gen, err := m.begin(ctx)
	if err != nil {
		return failed(err)
	}
	if err := clock.Sleep(ctx, m.clock, m.latency.Login); err != nil {
		return m.fail(gen, err)
	}

	var u User
	if acct, ok := m.accounts.lookup(c.Email); ok {
		if !m.accounts.check(acct, c.Password) {
			return m.fail(gen, ErrInvalidCredentials)
		}
		u = acct.User
	} else {
		name := localPart(c.Email)
		u = User{
			ID:       m.ids.Generate(),
			Name:     name,
			Email:    c.Email,
			Username: name,
			Avatar:   avatarFor(name),
		}
	}
	return m.establish(ctx, gen, u)
}

// Register creates an account and signs in.
func (m *Manager) Register(ctx context.Context, r Registration) Result {
	if errs := r.Validate(); errs != nil {
		return invalid(errs)
	}
	if _, exists := m.accounts.lookup(r.Email); exists {
		return invalid(FieldErrors{"email": "An account with this email already exists"})
	}
	gen, err := m.begin(ctx)
	if err != nil {
		return failed(err)
	}
	if err := clock.Sleep(ctx, m.clock, m.latency.Register); err != nil {
		return m.fail(gen, err)
	}

	username := r.Username
	if username == "" {
		username = localPart(r.Email)
	}
	u := User{
		ID:       m.ids.Generate(),
		Name:     strings.TrimSpace(r.Name),
		Email:    r.Email,
		Username: username,
		Avatar:   avatarFor(r.Name),
	}
	hash, err := m.accounts.hash(r.Password)
	if err != nil {
		return m.fail(gen, err)
	}
	m.accounts.put(ctx, account{User: u, PasswordHash: hash})
	return m.establish(ctx, gen, u)
}

// Logout clears the session. It always succeeds, and an in-flight login
// that completes afterwards is discarded.
func (m *Manager) Logout(ctx context.Context) {
	m.persistMu.Lock()
	m.mu.Lock()
	m.gen.Next()
	m.authenticating = false
	m.mu.Unlock()
	m.persistMu.Unlock()

	m.token.Reset(ctx)
	m.user.Reset(ctx)
	m.log.Info("session: signed out")
	m.transition()
}

// ValidateToken probes the session token. An invalid token signs the
// user out.
func (m *Manager) ValidateToken(ctx context.Context) bool {
	raw := m.Token()
	if raw == "" {
		return false
	}
	if err := clock.Sleep(ctx, m.clock, m.latency.Validate); err != nil {
		return false
	}
	claims, err := m.tokens.parse(raw, purposeSession)
	if err == nil {
		if u := m.user.Get(); u == nil || u.ID != claims.Subject {
			err = ErrInvalidToken
		}
	}
	if err != nil {
		m.log.Warn("session: token rejected, signing out", "error", err)
		m.Logout(ctx)
		return false
	}
	return true
}

// UpdateProfile merges p into the signed-in user.
func (m *Manager) UpdateProfile(ctx context.Context, p ProfileUpdate) Result {
	cur := m.User()
	if cur == nil {
		return failed(ErrNotAuthenticated)
	}
	errs := FieldErrors{}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		errs.add("name", "Name is required")
	}
	if p.Username != nil {
		errs.add("username", ValidateUsername(*p.Username))
	}
	if errs = errs.orNil(); errs != nil {
		return invalid(errs)
	}
	if err := clock.Sleep(ctx, m.clock, m.latency.Profile); err != nil {
		return failed(err)
	}

	next := p.apply(*cur)
	m.user.Set(ctx, &next)
	m.accounts.updateUser(ctx, next)
	return ok(&next)
}

// ChangePassword replaces the signed-in user's password.
func (m *Manager) ChangePassword(ctx context.Context, current, next string) Result {
	u := m.User()
	if u == nil {
		return failed(ErrNotAuthenticated)
	}
	if msg := ValidatePassword(next); msg != "" {
		return invalid(FieldErrors{"newPassword": msg})
	}
	if err := clock.Sleep(ctx, m.clock, m.latency.Password); err != nil {
		return failed(err)
	}

	if acct, ok := m.accounts.lookup(u.Email); ok {
		if !m.accounts.check(acct, current) {
			return failed(ErrWrongPassword)
		}
	} else if current != mockCurrentPassword {
		return failed(ErrWrongPassword)
	}
	hash, err := m.accounts.hash(next)
	if err != nil {
		return failed(err)
	}
	m.accounts.put(ctx, account{User: *u, PasswordHash: hash})
	return Result{Success: true}
}

// ForgotPassword "emails" a reset token. The token is returned in the
// Result in place of delivery; unknown emails succeed without one.
func (m *Manager) ForgotPassword(ctx context.Context, email string) Result {
	if msg := ValidateEmail(email); msg != "" {
		return invalid(FieldErrors{"email": msg})
	}
	if err := clock.Sleep(ctx, m.clock, m.latency.Recovery); err != nil {
		return failed(err)
	}
	acct, ok := m.accounts.lookup(email)
	if !ok {
		return Result{Success: true}
	}
	token, err := m.tokens.issue(acct.User, purposeReset, resetTokenTTL)
	if err != nil {
		return failed(err)
	}
	m.log.Info("session: password reset requested", "email", email)
	return Result{Success: true, ResetToken: token}
}

// ResetPassword sets a new password using a token from ForgotPassword.
func (m *Manager) ResetPassword(ctx context.Context, token, next string) Result {
	if msg := ValidatePassword(next); msg != "" {
		return invalid(FieldErrors{"password": msg})
	}
	if err := clock.Sleep(ctx, m.clock, m.latency.Recovery); err != nil {
		return failed(err)
	}
	claims, err := m.tokens.parse(token, purposeReset)
	if err != nil {
		return failed(ErrInvalidToken)
	}
	acct, ok := m.accounts.lookup(claims.Email)
	if !ok {
		return failed(ErrInvalidToken)
	}
	hash, err := m.accounts.hash(next)
	if err != nil {
		return failed(err)
	}
	acct.PasswordHash = hash
	m.accounts.put(ctx, acct)
	return Result{Success: true}
}

// begin enters Authenticating. A session held from before is dropped,
// so a failed attempt always ends Anonymous.
func (m *Manager) begin(ctx context.Context) (int64, error) {
	m.persistMu.Lock()
	m.mu.Lock()
	if m.authenticating {
		m.mu.Unlock()
		m.persistMu.Unlock()
		return 0, ErrBusy
	}
	m.authenticating = true
	gen := m.gen.Next()
	m.mu.Unlock()
	m.persistMu.Unlock()

	m.transition()
	if m.token.Get() != "" || m.user.Get() != nil {
		m.token.Reset(ctx)
		m.user.Reset(ctx)
	}
	return gen, nil
}

// fail leaves Authenticating without a new session.
func (m *Manager) fail(gen int64, err error) Result {
	m.mu.Lock()
	if !m.gen.IsCurrent(gen) {
		m.mu.Unlock()
		return failed(ErrSuperseded)
	}
	m.authenticating = false
	m.mu.Unlock()

	m.log.Warn("session: authentication failed", "error", err)
	m.transition()
	return failed(err)
}

// establish persists the session and enters Authenticated.
func (m *Manager) establish(ctx context.Context, gen int64, u User) Result {
	token, err := m.tokens.issue(u, purposeSession, m.tokens.ttl)
	if err != nil {
		return m.fail(gen, err)
	}

	// Persist while still Authenticating so watchers never see a half
	// written session.
	m.persistMu.Lock()
	if !m.gen.IsCurrent(gen) {
		m.persistMu.Unlock()
		return failed(ErrSuperseded)
	}
	m.token.Set(ctx, token)
	m.user.Set(ctx, &u)
	m.mu.Lock()
	m.authenticating = false
	m.mu.Unlock()
	m.persistMu.Unlock()

	m.log.Info("session: signed in", "user", u.ID, "email", u.Email)
	m.transition()
	return ok(&u)
}

// transition notifies watchers if the state changed since the last
// notification. It also runs for token and user changes made in other
// contexts.
func (m *Manager) transition() {
	m.mu.Lock()
	to := m.stateLocked()
	from := m.last
	if from == to {
		m.mu.Unlock()
		return
	}
	m.last = to
	ids := make([]int, 0, len(m.watchers))
	for id := range m.watchers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(from, to State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.watchers[id])
	}
	m.mu.Unlock()

	if m.obs != nil {
		m.obs.ObserveTransition(from, to)
	}
	for _, fn := range fns {
		fn(from, to)
	}
}

func (m *Manager) stateLocked() State {
	if m.authenticating {
		return Authenticating
	}
	return m.persistedState()
}

func (m *Manager) persistedState() State {
	if m.token.Get() != "" && m.user.Get() != nil {
		return Authenticated
	}
	return Anonymous
}
