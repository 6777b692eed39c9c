// Package service реализует логику разделов панели администратора поверх API магазина.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/flowershop-admin/internal/cache"
	"github.com/mmeshcher/flowershop-admin/internal/model"
	"github.com/mmeshcher/flowershop-admin/internal/session"
	"github.com/mmeshcher/flowershop-admin/internal/settings"
	"github.com/mmeshcher/flowershop-admin/internal/validation"
)

// API описывает вызовы API магазина, используемые сервисом.
type API interface {
	Login(ctx context.Context, username, password string) (string, error)

	ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	UpdateOrder(ctx context.Context, id int64, upd model.OrderUpdate) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error
	DeleteOrder(ctx context.Context, id int64) error

	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	UpdateUser(ctx context.Context, id int64, upd model.UserUpdate) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error
	ListUserOrders(ctx context.Context, userID int64) ([]model.Order, error)

	GetLoyalty(ctx context.Context, userID int64) (*model.Loyalty, error)
	AdjustLoyalty(ctx context.Context, userID int64, adj model.LoyaltyAdjustment) (int64, error)

	ListBouquets(ctx context.Context) ([]model.Bouquet, error)
	GetBouquet(ctx context.Context, id int64) (*model.Bouquet, error)
	CreateBouquet(ctx context.Context, in model.BouquetInput) (*model.Bouquet, error)
	UpdateBouquet(ctx context.Context, id int64, in model.BouquetInput) (*model.Bouquet, error)
	SetBouquetFlag(ctx context.Context, id int64, flag model.BouquetFlag, value bool) error
	DeleteBouquet(ctx context.Context, id int64) error

	ListConstructorItems(ctx context.Context, kind model.ConstructorKind) ([]model.ConstructorItem, error)
	CreateConstructorItem(ctx context.Context, kind model.ConstructorKind, in model.ConstructorItemInput) (*model.ConstructorItem, error)
	UpdateConstructorItem(ctx context.Context, kind model.ConstructorKind, id int64, in model.ConstructorItemInput) (*model.ConstructorItem, error)
	SetConstructorItemStock(ctx context.Context, kind model.ConstructorKind, id int64, inStock bool) error
	DeleteConstructorItem(ctx context.Context, kind model.ConstructorKind, id int64) error

	ListSettings(ctx context.Context) ([]model.Setting, error)
	UpdateSetting(ctx context.Context, key, value string) error

	SendBroadcast(ctx context.Context, b model.Broadcast) (*model.BroadcastResult, error)
}

// Auditor записывает действия администраторов.
type Auditor interface {
	Record(ctx context.Context, actor, action, target, details string)
	Recent(ctx context.Context, limit int) ([]model.AuditEntry, error)
}

var (
	// ErrNoSession возвращается, если в контексте нет сессии сотрудника.
	ErrNoSession = errors.New("no admin session in context")
	// ErrUnknownKind возвращается для неизвестного раздела конструктора.
	ErrUnknownKind = errors.New("unknown constructor kind")
	// ErrUnknownFlag возвращается для неизвестного признака букета.
	ErrUnknownFlag = errors.New("unknown bouquet flag")
	// ErrItemNotFound возвращается, если компонента нет в списке раздела.
	ErrItemNotFound = errors.New("item not found")
)

// Service содержит логику разделов панели.
type Service struct {
	api      API
	cache    *cache.Cache
	audit    Auditor
	catalog  *settings.Catalog
	validate *validation.Validator
	logger   *zap.Logger
}

// NewService создаёт сервис.
func NewService(api API, c *cache.Cache, audit Auditor, catalog *settings.Catalog, logger *zap.Logger) *Service {
	return &Service{
		api:      api,
		cache:    c,
		audit:    audit,
		catalog:  catalog,
		validate: validation.New(),
		logger:   logger,
	}
}

// key строит ключ кэша раздела для сессии из контекста. Ключи разных
// сотрудников не пересекаются, а префикс раздела общий.
func (s *Service) key(ctx context.Context, resource string) (string, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return "", ErrNoSession
	}
	return resource + "|" + sess.Key(), nil
}

func (s *Service) actor(ctx context.Context) string {
	if sess, ok := session.FromContext(ctx); ok {
		return sess.Actor()
	}
	return "unknown"
}

func (s *Service) record(ctx context.Context, action, target, details string) {
	s.audit.Record(ctx, s.actor(ctx), action, target, details)
}

// invalidate сбрасывает разделы для всех сессий: изменения видят все сотрудники.
func (s *Service) invalidate(resources ...string) {
	for _, r := range resources {
		s.cache.InvalidatePrefix(r)
	}
}

func load[T any](ctx context.Context, s *Service, resource string, loader func(ctx context.Context) (T, error)) (T, error) {
	key, err := s.key(ctx, resource)
	if err != nil {
		var zero T
		return zero, err
	}
	return cache.Load(ctx, s.cache, key, loader)
}

func orderTarget(id int64) string {
	return fmt.Sprintf("order#%d", id)
}

func userTarget(id int64) string {
	return fmt.Sprintf("user#%d", id)
}

// Login обменивает логин и пароль сотрудника на токен API.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	token, err := s.api.Login(ctx, username, password)
	if err != nil {
		return "", err
	}
	s.audit.Record(ctx, username, "auth.login", "admin:"+username, "")
	return token, nil
}

// phoneQuery возвращает цифры строки поиска, если она похожа на фрагмент
// номера телефона, иначе пустую строку.
func phoneQuery(query string) string {
	for _, ch := range query {
		if !strings.ContainsRune("0123456789+-() ", ch) {
			return ""
		}
	}
	digits := validation.NormalizePhone(query)
	if len(digits) < 3 {
		return ""
	}
	return digits
}
