// Package session owns the authentication state of the app: it maps
// identity-provider sessions onto application user profiles and derives the
// role. Consumers observe it instead of talking to the provider directly.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/upscwallahhacker-cell/Desikart/internal/auth"
	"github.com/upscwallahhacker-cell/Desikart/internal/docstore"
	"github.com/upscwallahhacker-cell/Desikart/internal/models"

	"go.uber.org/zap"
)

const usersCollection = "users"

var (
	ErrNotSignedIn         = errors.New("not signed in")
	ErrProfileUpdateFailed = errors.New("profile update failed")
)

// ProfilePatch — частичное обновление профиля. Роль и email через публичный
// интерфейс не меняются.
type ProfilePatch struct {
	Name    *string
	Phone   *string
	Address *string
	Pin     *string
}

// Handler receives the current profile (nil when signed out) and a resolving
// flag. Consumers must not render login-gated UI while resolving is true.
type Handler func(user *models.UserProfile, resolving bool)

type Manager struct {
	provider   auth.Provider
	store      docstore.Store
	adminEmail string
	log        *zap.Logger

	mu        sync.Mutex
	current   *models.UserProfile
	resolving bool
	// suppress глушит события провайдера, пока операция сама доведёт
	// состояние до готовности (регистрация пишет профиль после SignUp).
	suppress bool
	watchers map[int]Handler
	nextSub  int
}

func NewManager(provider auth.Provider, store docstore.Store, adminEmail string, log *zap.Logger) *Manager {
	return &Manager{
		provider:   provider,
		store:      store,
		adminEmail: strings.ToLower(adminEmail),
		log:        log,
		resolving:  true,
		watchers:   map[int]Handler{},
	}
}

// Start подписывается на провайдера и запускает стартовую проверку сессии.
func (m *Manager) Start(ctx context.Context) error {
	m.provider.OnSessionChange(func(id *auth.Identity) {
		m.mu.Lock()
		suppressed := m.suppress
		m.mu.Unlock()
		if suppressed {
			return
		}
		if id == nil {
			m.setCurrent(nil)
			return
		}
		m.setCurrent(m.resolveProfile(ctx, *id))
	})
	return m.provider.Start(ctx)
}

// Snapshot возвращает текущий профиль (nil — не залогинен) и флаг resolving.
func (m *Manager) Snapshot() (*models.UserProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyProfile(m.current), m.resolving
}

func (m *Manager) Watch(fn Handler) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.watchers[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) SignIn(ctx context.Context, email, password string) (*models.UserProfile, error) {
	m.beginOp()
	defer m.endOp()

	id, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	profile := m.resolveProfile(ctx, id)
	m.setCurrent(profile)
	return copyProfile(profile), nil
}

// Register создаёт учётку у провайдера и гарантирует наличие профиля в
// сторе до того, как сессия станет готовой. Роль ADMIN достаётся только
// зарезервированному адресу.
func (m *Manager) Register(ctx context.Context, name, email, password string) (*models.UserProfile, error) {
	m.beginOp()
	defer m.endOp()

	id, err := m.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}

	profile := &models.UserProfile{
		UID:   id.UID,
		Name:  name,
		Email: strings.ToLower(email),
		Role:  m.roleFor(email),
	}
	if err := m.store.SetDoc(ctx, usersCollection, profile.UID, profile); err != nil {
		// Уже аутентифицирован у провайдера — не блокируем сессию на сторе.
		m.log.Error("failed to persist new profile", zap.String("uid", profile.UID), zap.Error(err))
	}

	m.setCurrent(profile)
	return copyProfile(profile), nil
}

// SignInFederated проводит provider-driven вход. Для первой федеративной
// авторизации синтезирует и сохраняет профиль с ролью USER.
func (m *Manager) SignInFederated(ctx context.Context) (*models.UserProfile, error) {
	m.beginOp()
	defer m.endOp()

	id, err := m.provider.SignInFederated(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := m.fetchProfile(ctx, id.UID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		profile = &models.UserProfile{
			UID:   id.UID,
			Name:  id.Name,
			Email: strings.ToLower(id.Email),
			Role:  models.RoleUser,
		}
		if setErr := m.store.SetDoc(ctx, usersCollection, profile.UID, profile); setErr != nil {
			m.log.Error("failed to persist federated profile", zap.String("uid", profile.UID), zap.Error(setErr))
		}
	case err != nil:
		// Провайдер вход подтвердил — деградируем до данных провайдера.
		m.log.Warn("profile fetch failed after federated sign-in", zap.Error(err))
		profile = degradedProfile(id)
	}

	m.setCurrent(profile)
	return copyProfile(profile), nil
}

// SignOut идемпотентен.
func (m *Manager) SignOut(ctx context.Context) error {
	return m.provider.SignOut(ctx)
}

// SignOutUser завершает сессию только если она принадлежит uid. Для чужого
// uid это no-op: stateless-токен отзывать нечем, клиент просто забывает его.
func (m *Manager) SignOutUser(ctx context.Context, uid string) error {
	m.mu.Lock()
	cur := m.current
	m.mu.Unlock()
	if cur == nil || cur.UID != uid {
		return nil
	}
	return m.provider.SignOut(ctx)
}

// UpdateProfile правит профиль текущей сессии.
func (m *Manager) UpdateProfile(ctx context.Context, patch ProfilePatch) (*models.UserProfile, error) {
	m.mu.Lock()
	cur := m.current
	m.mu.Unlock()
	if cur == nil {
		return nil, ErrNotSignedIn
	}
	return m.UpdateProfileFor(ctx, cur.UID, patch)
}

// UpdateProfileFor сначала пишет в стор; при ошибке записи сессия в памяти
// не трогается — никакого оптимистичного применения. Работает по uid из
// токена, а не по тому, кто последним логинился в процессе.
func (m *Manager) UpdateProfileFor(ctx context.Context, uid string, patch ProfilePatch) (*models.UserProfile, error) {
	base, err := m.fetchProfile(ctx, uid)
	if err != nil {
		m.log.Warn("profile read failed before update", zap.String("uid", uid), zap.Error(err))
		return nil, errors.Join(ErrProfileUpdateFailed, err)
	}

	fields := map[string]any{}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Phone != nil {
		fields["phone"] = *patch.Phone
	}
	if patch.Address != nil {
		fields["address"] = *patch.Address
	}
	if patch.Pin != nil {
		fields["pin"] = *patch.Pin
	}
	if len(fields) == 0 {
		return base, nil
	}

	if err := m.store.UpdateDoc(ctx, usersCollection, uid, fields); err != nil {
		m.log.Warn("profile update write failed", zap.String("uid", uid), zap.Error(err))
		return nil, errors.Join(ErrProfileUpdateFailed, err)
	}

	applyPatch(base, patch)
	m.mu.Lock()
	applied := false
	if m.current != nil && m.current.UID == uid {
		applyPatch(m.current, patch)
		applied = true
	}
	m.mu.Unlock()
	if applied {
		m.notify()
	}
	return base, nil
}

// ProfileByUID читает профиль напрямую из стора (для HTTP-middleware).
func (m *Manager) ProfileByUID(ctx context.Context, uid string) (*models.UserProfile, error) {
	return m.fetchProfile(ctx, uid)
}

func (m *Manager) roleFor(email string) models.Role {
	if strings.EqualFold(strings.TrimSpace(email), m.adminEmail) && m.adminEmail != "" {
		return models.RoleAdmin
	}
	return models.RoleUser
}

// resolveProfile никогда не возвращает nil: при недоступном сторе сессия
// становится готовой на данных провайдера с ролью USER.
func (m *Manager) resolveProfile(ctx context.Context, id auth.Identity) *models.UserProfile {
	profile, err := m.fetchProfile(ctx, id.UID)
	if err != nil {
		m.log.Warn("profile fetch failed, using provider identity", zap.String("uid", id.UID), zap.Error(err))
		return degradedProfile(id)
	}
	return profile
}

func (m *Manager) fetchProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	raw, err := m.store.GetDoc(ctx, usersCollection, uid)
	if err != nil {
		return nil, err
	}
	var p models.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *Manager) beginOp() {
	m.mu.Lock()
	m.suppress = true
	m.mu.Unlock()
}

func (m *Manager) endOp() {
	m.mu.Lock()
	m.suppress = false
	m.mu.Unlock()
}

func (m *Manager) setCurrent(p *models.UserProfile) {
	m.mu.Lock()
	m.current = p
	m.resolving = false
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) notify() {
	m.mu.Lock()
	cur := copyProfile(m.current)
	resolving := m.resolving
	fns := make([]Handler, 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(cur, resolving)
	}
}

func degradedProfile(id auth.Identity) *models.UserProfile {
	return &models.UserProfile{
		UID:   id.UID,
		Name:  id.Name,
		Email: strings.ToLower(id.Email),
		Role:  models.RoleUser,
	}
}

func applyPatch(p *models.UserProfile, patch ProfilePatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Phone != nil {
		p.Phone = *patch.Phone
	}
	if patch.Address != nil {
		p.Address = *patch.Address
	}
	if patch.Pin != nil {
		p.Pin = *patch.Pin
	}
}

func copyProfile(p *models.UserProfile) *models.UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
