// Package middleware содержит HTTP middleware панели администратора.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/flowershop-admin/internal/session"
	"github.com/mmeshcher/flowershop-admin/internal/upstream"
)

// LoginPath адрес страницы входа.
const LoginPath = "/login"

// Sessions читает, перепроверяет и отзывает сессии сотрудников.
type Sessions interface {
	Load(r *http.Request) (*session.Session, error)
	NeedsRefresh(s *session.Session) bool
	Refresh(ctx context.Context, w http.ResponseWriter, s *session.Session) (*session.Session, error)
	Invalidate(w http.ResponseWriter)
}

// AuthMiddleware пропускает к разделам панели только запросы с действующей сессией.
type AuthMiddleware struct {
	sessions Sessions
	logger   *zap.Logger
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware.
func NewAuthMiddleware(sessions Sessions, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		logger:   logger,
	}
}

// Middleware читает сессию из cookie, при необходимости перепроверяет токен
// через /auth/me и кладёт сессию и токен в контекст запроса. Любая ошибка
// проверки удаляет cookie и отправляет на страницу входа, повтора нет.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := a.sessions.Load(r)
		if err != nil {
			a.Reject(w, r)
			return
		}

		if a.sessions.NeedsRefresh(s) {
			refreshed, err := a.sessions.Refresh(r.Context(), w, s)
			if err != nil {
				a.logger.Info("session check failed",
					zap.String("admin", s.Actor()),
					zap.Error(err))
				a.Reject(w, r)
				return
			}
			s = refreshed
		}

		ctx := session.WithSession(r.Context(), s)
		ctx = upstream.WithToken(ctx, s.Token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Reject удаляет cookie сессии и отвечает 401 для API или перенаправляет на
// страницу входа для остальных запросов.
func (a *AuthMiddleware) Reject(w http.ResponseWriter, r *http.Request) {
	a.sessions.Invalidate(w)

	if IsAPIRequest(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "требуется вход"})
		return
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// IsAPIRequest сообщает, что запрос обращается к JSON API или ждёт JSON в ответ.
func IsAPIRequest(r *http.Request) bool {
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
