// Package handler содержит HTML-страницы и JSON API панели администратора.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/flowershop-admin/internal/middleware"
	"github.com/mmeshcher/flowershop-admin/internal/model"
	"github.com/mmeshcher/flowershop-admin/internal/service"
	"github.com/mmeshcher/flowershop-admin/internal/session"
	"github.com/mmeshcher/flowershop-admin/internal/settings"
	"github.com/mmeshcher/flowershop-admin/internal/upstream"
	"github.com/mmeshcher/flowershop-admin/internal/validation"
)

// Service определяет контракт логики разделов, используемой обработчиками.
type Service interface {
	Login(ctx context.Context, username, password string) (string, error)
	DashboardStats(ctx context.Context) (*model.DashboardStats, error)

	ListOrders(ctx context.Context, f service.OrderFilter) ([]model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	UpdateOrder(ctx context.Context, id int64, upd model.OrderUpdate) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	RequestTransition(ctx context.Context, id int64, target model.OrderStatus) (*model.Order, error)

	ListUsers(ctx context.Context, search string) ([]model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	UserOrders(ctx context.Context, id int64) ([]model.Order, error)
	UpdateUser(ctx context.Context, id int64, upd model.UserUpdate) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error

	GetLoyalty(ctx context.Context, userID int64) (*model.Loyalty, error)
	AdjustLoyalty(ctx context.Context, userID int64, adj model.LoyaltyAdjustment) (*service.AdjustResult, error)

	ListBouquets(ctx context.Context, f service.BouquetFilter) ([]model.Bouquet, error)
	BouquetCategories(ctx context.Context) ([]string, error)
	GetBouquet(ctx context.Context, id int64) (*model.Bouquet, error)
	CreateBouquet(ctx context.Context, in model.BouquetInput) (*model.Bouquet, error)
	UpdateBouquet(ctx context.Context, id int64, in model.BouquetInput) (*model.Bouquet, error)
	DeleteBouquet(ctx context.Context, id int64) error
	ToggleBouquet(ctx context.Context, id int64, flag model.BouquetFlag) (bool, error)

	ListConstructorItems(ctx context.Context, kind model.ConstructorKind) ([]model.ConstructorItem, error)
	CreateConstructorItem(ctx context.Context, kind model.ConstructorKind, in model.ConstructorItemInput) (*model.ConstructorItem, error)
	UpdateConstructorItem(ctx context.Context, kind model.ConstructorKind, id int64, in model.ConstructorItemInput) (*model.ConstructorItem, error)
	DeleteConstructorItem(ctx context.Context, kind model.ConstructorKind, id int64) error
	ToggleConstructorStock(ctx context.Context, kind model.ConstructorKind, id int64) (bool, error)

	ListSettings(ctx context.Context) ([]settings.Field, error)
	UpdateSetting(ctx context.Context, key, value string) error
	UpdateSettings(ctx context.Context, values map[string]string) (int, error)

	SendBroadcast(ctx context.Context, b model.Broadcast) (*model.BroadcastResult, error)
}

// SessionIssuer открывает и закрывает сессии сотрудников.
type SessionIssuer interface {
	Establish(ctx context.Context, w http.ResponseWriter, token string) (*session.Session, error)
	Invalidate(w http.ResponseWriter)
}

// Handler реализует HTTP-обработчики панели администратора.
type Handler struct {
	service        Service
	sessions       SessionIssuer
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	views          *views
	live           http.Handler
	allowedOrigins []string
}

// Option настраивает Handler.
type Option func(*Handler)

// WithLiveUpdates подключает обработчик websocket с событиями об устаревших данных.
func WithLiveUpdates(live http.Handler) Option {
	return func(h *Handler) {
		h.live = live
	}
}

// WithAllowedOrigins включает CORS для JSON API с перечисленных адресов.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) {
		h.allowedOrigins = origins
	}
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, sessions SessionIssuer, logger *zap.Logger, auth *middleware.AuthMiddleware, opts ...Option) *Handler {
	h := &Handler{
		service:        s,
		sessions:       sessions,
		logger:         logger,
		authMiddleware: auth,
		views:          mustLoadViews(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

const (
	msgStatusFailed   = "Не удалось изменить статус заказа"
	msgUpstreamDown   = "API магазина недоступно, попробуйте позже"
	msgCheckForm      = "Проверьте заполнение формы"
	msgNotFound       = "Запись не найдена"
	msgBadRequest     = "Некорректный запрос"
	msgNotAllowed     = "Переход в этот статус недоступен"
	msgUnknownSetting = "Такой настройки нет"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// classify сопоставляет ошибку с HTTP-статусом и текстом для сотрудника.
// Сообщение API магазина передаётся без изменений.
func classify(err error, fallback string) (int, string) {
	var (
		verrs validation.Errors
		apiErr *upstream.APIError
	)

	switch {
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity, msgCheckForm
	case errors.Is(err, service.ErrTransitionNotAllowed):
		return http.StatusBadRequest, msgNotAllowed
	case errors.Is(err, settings.ErrUnknownKey):
		return http.StatusBadRequest, msgUnknownSetting
	case errors.Is(err, service.ErrUnknownKind),
		errors.Is(err, service.ErrUnknownFlag):
		return http.StatusBadRequest, msgBadRequest
	case errors.Is(err, service.ErrItemNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.As(err, &apiErr):
		msg := apiErr.Message
		if msg == "" {
			msg = fallback
		}
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			if apiErr.Message == "" {
				msg = msgNotFound
			}
			return http.StatusNotFound, msg
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return apiErr.StatusCode, msg
		default:
			return http.StatusBadGateway, msg
		}
	case errors.Is(err, upstream.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	default:
		return http.StatusBadGateway, msgUpstreamDown
	}
}

func fieldErrors(err error) validation.Errors {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return verrs
	}
	return nil
}

// handleAuthError закрывает сессию, если API магазина отклонило токен.
func (h *Handler) handleAuthError(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, upstream.ErrUnauthorized) {
		return false
	}
	h.logger.Info("upstream rejected session token", zap.String("path", r.URL.Path))
	h.authMiddleware.Reject(w, r)
	return true
}

func (h *Handler) logFailure(r *http.Request, msg string, err error, fields ...zap.Field) {
	if errors.Is(err, context.Canceled) {
		return
	}
	status, _ := classify(err, "")
	fields = append(fields, zap.Error(err), zap.String("path", r.URL.Path))
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, fields...)
		return
	}
	h.logger.Info(msg, fields...)
}

// apiError отвечает на ошибку JSON API.
func (h *Handler) apiError(w http.ResponseWriter, r *http.Request, err error, msg string, fields ...zap.Field) {
	if h.handleAuthError(w, r, err) {
		return
	}
	h.logFailure(r, msg, err, fields...)

	status, text := classify(err, msgUpstreamDown)
	writeJSON(w, status, errorResponse{Error: text, Fields: fieldErrors(err)})
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func kindParam(r *http.Request) (model.ConstructorKind, bool) {
	kind := model.ConstructorKind(chi.URLParam(r, "kind"))
	return kind, kind.Valid()
}

func currentAdmin(r *http.Request) *model.Admin {
	if s, ok := session.FromContext(r.Context()); ok {
		return &s.Admin
	}
	return nil
}
