// Package session хранит сессию сотрудника: токен API магазина и данные,
// полученные при проверке /auth/me.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/flowershop-admin/internal/model"
)

// CookieName ключ, под которым токен сессии хранится в браузере.
const CookieName = "flora_session"

const cookieTTL = 7 * 24 * time.Hour

// ErrNoSession возвращается, если cookie сессии отсутствует или не прошла проверку подписи.
var ErrNoSession = errors.New("session: no valid session")

// Session описывает открытую сессию сотрудника.
type Session struct {
	Token      string
	Admin      model.Admin
	VerifiedAt time.Time
}

// Key возвращает короткий отпечаток токена для разделения кэша между сессиями.
func (s *Session) Key() string {
	sum := sha256.Sum256([]byte(s.Token))
	return hex.EncodeToString(sum[:8])
}

// Actor возвращает имя сотрудника для журнала аудита.
func (s *Session) Actor() string {
	if s.Admin.Username != "" {
		return s.Admin.Username
	}
	return fmt.Sprintf("admin#%d", s.Admin.ID)
}

// Verifier проверяет токен через API магазина.
type Verifier interface {
	Me(ctx context.Context, token string) (*model.Admin, error)
}

type claims struct {
	Token    string `json:"tok"`
	AdminID  int64  `json:"aid"`
	Username string `json:"usr"`
	Name     string `json:"nam,omitempty"`
	jwt.RegisteredClaims
}

// Manager выпускает, проверяет и отзывает cookie сессии.
type Manager struct {
	secret   []byte
	verifier Verifier
	recheck  time.Duration
	secure   bool
	sameSite http.SameSite
	now      func() time.Time
}

// NewManager создаёт Manager. Пустой secret заменяется случайным ключом:
// сессии тогда не переживают перезапуск процесса.
func NewManager(secret string, verifier Verifier, recheck time.Duration) *Manager {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			key = []byte("flowershop-admin-default-secret")
		}
	}

	return &Manager{
		secret:   key,
		verifier: verifier,
		recheck:  recheck,
		sameSite: http.SameSiteLaxMode,
		now:      time.Now,
	}
}

// SetSecure включает флаг Secure у cookie сессии.
func (m *Manager) SetSecure(secure bool) {
	m.secure = secure
}

// SetCrossSite разрешает отправку cookie с других origin: SameSite=None
// вместе с обязательным для браузеров флагом Secure.
func (m *Manager) SetCrossSite(crossSite bool) {
	if !crossSite {
		m.sameSite = http.SameSiteLaxMode
		return
	}
	m.sameSite = http.SameSiteNoneMode
	m.secure = true
}

// Establish проверяет токен через /auth/me, записывает cookie и возвращает сессию.
func (m *Manager) Establish(ctx context.Context, w http.ResponseWriter, token string) (*Session, error) {
	admin, err := m.verifier.Me(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	s := &Session{
		Token:      token,
		Admin:      *admin,
		VerifiedAt: m.now(),
	}
	if err := m.write(w, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Load читает сессию из cookie запроса без обращения к API.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNoSession
	}

	var c claims
	token, err := jwt.ParseWithClaims(cookie.Value, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid || c.Token == "" {
		return nil, ErrNoSession
	}

	s := &Session{
		Token: c.Token,
		Admin: model.Admin{ID: c.AdminID, Username: c.Username, Name: c.Name},
	}
	if c.IssuedAt != nil {
		s.VerifiedAt = c.IssuedAt.Time
	}
	return s, nil
}

// NeedsRefresh сообщает, что сессию пора перепроверить через /auth/me.
func (m *Manager) NeedsRefresh(s *Session) bool {
	return m.recheck > 0 && m.now().Sub(s.VerifiedAt) >= m.recheck
}

// Refresh повторно проверяет токен сессии и перевыпускает cookie.
func (m *Manager) Refresh(ctx context.Context, w http.ResponseWriter, s *Session) (*Session, error) {
	return m.Establish(ctx, w, s.Token)
}

// Invalidate удаляет cookie сессии.
func (m *Manager) Invalidate(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: m.sameSite,
	})
}

func (m *Manager) write(w http.ResponseWriter, s *Session) error {
	c := claims{
		Token:    s.Token,
		AdminID:  s.Admin.ID,
		Username: s.Admin.Username,
		Name:     s.Admin.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(s.VerifiedAt),
			ExpiresAt: jwt.NewNumericDate(s.VerifiedAt.Add(cookieTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  s.VerifiedAt.Add(cookieTTL),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: m.sameSite,
	})
	return nil
}

type contextKey struct{}

// WithSession кладёт сессию в контекст запроса.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext извлекает сессию из контекста запроса.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}
