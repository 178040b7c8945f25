package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/upscwallahhacker-cell/Desikart/internal/cache"
	"github.com/upscwallahhacker-cell/Desikart/internal/docstore"
	"github.com/upscwallahhacker-cell/Desikart/internal/localstore"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	credentialsCollection = "auth_users"
	sessionCacheKey       = "deshikart_session"
)

// credentialDoc — учётная запись у провайдера. Ключ документа — email в
// нижнем регистре, uid выдаётся один раз и больше не меняется.
type credentialDoc struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	PasswordHash string `json:"password_hash,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

type cachedSession struct {
	Token string `json:"token"`
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LocalProvider — identity-провайдер поверх документного стора: bcrypt-хэши,
// HS256 access-токены, опциональный redis для rate limit и blacklist.
type LocalProvider struct {
	store  docstore.Store
	local  localstore.KV
	tokens TokenProvider
	hasher PasswordHasher
	cache  cache.Client  // nil — rate limit и blacklist отключены
	flow   FederatedFlow // nil — федеративный вход не настроен

	accessTTL     time.Duration
	loginCooldown time.Duration
	now           func() time.Time
	log           *zap.Logger

	mu           sync.Mutex
	current      *Identity
	currentJTI   string
	currentToken string
	tokenExp     time.Time
	handlers     map[int]SessionHandler
	nextSub      int
}

func NewLocalProvider(
	store docstore.Store,
	local localstore.KV,
	tokens TokenProvider,
	hasher PasswordHasher,
	cacheClient cache.Client,
	flow FederatedFlow,
	accessTTL time.Duration,
	log *zap.Logger,
) *LocalProvider {
	return &LocalProvider{
		store:         store,
		local:         local,
		tokens:        tokens,
		hasher:        hasher,
		cache:         cacheClient,
		flow:          flow,
		accessTTL:     accessTTL,
		loginCooldown: 30 * time.Second,
		now:           time.Now,
		log:           log,
		handlers:      map[int]SessionHandler{},
	}
}

// Start восстанавливает сессию из локального кэша и рассылает первый
// SessionHandler. Невалидный или отозванный токен просто очищается.
func (p *LocalProvider) Start(ctx context.Context) error {
	raw, ok, err := p.local.Get(sessionCacheKey)
	if err != nil {
		p.log.Warn("failed to read cached session", zap.Error(err))
	}
	if ok && err == nil {
		var cs cachedSession
		if jsonErr := json.Unmarshal([]byte(raw), &cs); jsonErr == nil {
			if claims, parseErr := p.tokens.ParseAndValidateAccess(ctx, cs.Token); parseErr == nil {
				if !p.isBlacklisted(ctx, claims.JTI) {
					p.mu.Lock()
					p.current = &Identity{UID: cs.UID, Name: cs.Name, Email: cs.Email}
					p.currentJTI = claims.JTI
					p.currentToken = cs.Token
					p.tokenExp = claims.Exp
					p.mu.Unlock()
					p.fire()
					return nil
				}
			}
		}
		_ = p.local.Delete(sessionCacheKey)
	}
	p.fire()
	return nil
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !strings.Contains(email, "@") {
		return Identity{}, ErrInvalidEmail
	}
	if len(password) < 6 {
		return Identity{}, ErrWeakPassword
	}

	if _, err := p.store.GetDoc(ctx, credentialsCollection, email); err == nil {
		return Identity{}, ErrEmailInUse
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return Identity{}, err
	}

	hash, err := p.hasher.Hash(password)
	if err != nil {
		return Identity{}, err
	}

	cred := credentialDoc{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    p.now().UnixMilli(),
	}
	if err := p.store.SetDoc(ctx, credentialsCollection, email, cred); err != nil {
		return Identity{}, err
	}

	id := Identity{UID: cred.UID, Email: email}
	if err := p.establishSession(ctx, id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	if p.cache != nil {
		limited, err := p.cache.CheckRateLimit(ctx, "login:"+email)
		if err != nil {
			p.log.Warn("rate limit check failed", zap.Error(err))
		} else if limited {
			return Identity{}, ErrTooManyRequests
		}
	}

	raw, err := p.store.GetDoc(ctx, credentialsCollection, email)
	if errors.Is(err, docstore.ErrNotFound) {
		return Identity{}, ErrNotRegistered
	}
	if err != nil {
		return Identity{}, err
	}

	var cred credentialDoc
	if err := json.Unmarshal(raw, &cred); err != nil {
		return Identity{}, err
	}

	if cred.PasswordHash == "" || !p.hasher.Compare(cred.PasswordHash, password) {
		if p.cache != nil {
			if err := p.cache.SetRateLimit(ctx, "login:"+email, p.loginCooldown); err != nil {
				p.log.Warn("rate limit set failed", zap.Error(err))
			}
		}
		return Identity{}, ErrInvalidCredential
	}

	id := Identity{UID: cred.UID, Name: cred.Name, Email: cred.Email}
	if err := p.establishSession(ctx, id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func (p *LocalProvider) SignInFederated(ctx context.Context) (Identity, error) {
	if p.flow == nil {
		return Identity{}, ErrFederatedUnavailable
	}
	id, err := p.flow(ctx)
	if err != nil {
		return Identity{}, err
	}

	// Первый федеративный вход: заводим учётку без пароля, чтобы email
	// считался занятым. Ошибка не критична.
	email := strings.ToLower(id.Email)
	if _, getErr := p.store.GetDoc(ctx, credentialsCollection, email); errors.Is(getErr, docstore.ErrNotFound) {
		cred := credentialDoc{UID: id.UID, Email: email, Name: id.Name, CreatedAt: p.now().UnixMilli()}
		if setErr := p.store.SetDoc(ctx, credentialsCollection, email, cred); setErr != nil {
			p.log.Warn("failed to persist federated credential", zap.Error(setErr))
		}
	}

	if err := p.establishSession(ctx, id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	jti := p.currentJTI
	exp := p.tokenExp
	wasSignedIn := p.current != nil
	p.current = nil
	p.currentJTI = ""
	p.currentToken = ""
	p.mu.Unlock()

	if !wasSignedIn {
		return nil
	}

	if p.cache != nil && jti != "" {
		ttl := time.Until(exp)
		if ttl > 0 {
			if err := p.cache.BlacklistToken(ctx, jti, ttl); err != nil {
				p.log.Warn("token blacklist failed", zap.Error(err))
			}
		}
	}
	_ = p.local.Delete(sessionCacheKey)
	p.fire()
	return nil
}

func (p *LocalProvider) CurrentIdentity() (Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Identity{}, false
	}
	return *p.current, true
}

// AccessToken — токен текущей сессии для выдачи клиенту.
func (p *LocalProvider) AccessToken() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentToken, p.currentToken != ""
}

func (p *LocalProvider) OnSessionChange(fn SessionHandler) (cancel func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.handlers[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}
}

func (p *LocalProvider) Introspect(ctx context.Context, token string) (string, error) {
	claims, err := p.tokens.ParseAndValidateAccess(ctx, token)
	if err != nil {
		return "", err
	}
	if p.isBlacklisted(ctx, claims.JTI) {
		return "", ErrNoSession
	}
	return claims.UID, nil
}

func (p *LocalProvider) establishSession(ctx context.Context, id Identity) error {
	token, jti, exp, err := p.tokens.SignAccess(ctx, id.UID, p.accessTTL)
	if err != nil {
		return err
	}

	cs := cachedSession{Token: token, UID: id.UID, Name: id.Name, Email: id.Email}
	raw, _ := json.Marshal(cs)
	if err := p.local.Set(sessionCacheKey, string(raw)); err != nil {
		p.log.Warn("failed to cache session locally", zap.Error(err))
	}

	p.mu.Lock()
	p.current = &id
	p.currentJTI = jti
	p.currentToken = token
	p.tokenExp = exp
	p.mu.Unlock()
	p.fire()
	return nil
}

func (p *LocalProvider) isBlacklisted(ctx context.Context, jti string) bool {
	if p.cache == nil || jti == "" {
		return false
	}
	revoked, err := p.cache.IsTokenBlacklisted(ctx, jti)
	if err != nil {
		p.log.Warn("blacklist check failed", zap.Error(err))
		return false
	}
	return revoked
}

func (p *LocalProvider) fire() {
	p.mu.Lock()
	cur := p.current
	var snapshot *Identity
	if cur != nil {
		c := *cur
		snapshot = &c
	}
	fns := make([]SessionHandler, 0, len(p.handlers))
	for _, fn := range p.handlers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}
