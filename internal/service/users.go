package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmeshcher/flowershop-admin/internal/model"
	"github.com/mmeshcher/flowershop-admin/internal/validation"
)

// ListUsers возвращает пользователей, подходящих под строку поиска.
// Поиск не зависит от регистра и проверяет имя, фамилию, username и телефон.
func (s *Service) ListUsers(ctx context.Context, search string) ([]model.User, error) {
	users, err := load(ctx, s, "users", s.api.ListUsers)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	query := strings.ToLower(strings.TrimSpace(search))
	if query == "" {
		return append([]model.User(nil), users...), nil
	}

	digits := phoneQuery(query)
	result := make([]model.User, 0, len(users))
	for _, u := range users {
		if userMatches(u, query, digits) {
			result = append(result, u)
		}
	}
	return result, nil
}

func userMatches(u model.User, query, digits string) bool {
	for _, field := range []string{u.FirstName, u.LastName, u.FullName(), u.Username} {
		if strings.Contains(strings.ToLower(field), strings.TrimPrefix(query, "@")) {
			return true
		}
	}
	if u.Phone != "" && strings.Contains(strings.ToLower(u.Phone), query) {
		return true
	}
	return digits != "" && strings.Contains(validation.NormalizePhone(u.Phone), digits)
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := load(ctx, s, fmt.Sprintf("users/%d", id), func(ctx context.Context) (*model.User, error) {
		return s.api.GetUser(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

// UserOrders возвращает заказы пользователя.
func (s *Service) UserOrders(ctx context.Context, id int64) ([]model.Order, error) {
	orders, err := load(ctx, s, fmt.Sprintf("users/%d/orders", id), func(ctx context.Context) ([]model.Order, error) {
		return s.api.ListUserOrders(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("list orders of user %d: %w", id, err)
	}
	return orders, nil
}

// UpdateUser изменяет имя и телефон пользователя.
func (s *Service) UpdateUser(ctx context.Context, id int64, upd model.UserUpdate) (*model.User, error) {
	upd.FirstName = strings.TrimSpace(upd.FirstName)
	upd.LastName = strings.TrimSpace(upd.LastName)
	upd.Phone = strings.TrimSpace(upd.Phone)
	if err := s.validate.Struct(upd); err != nil {
		return nil, err
	}

	user, err := s.api.UpdateUser(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}

	s.invalidate("users")
	s.record(ctx, "user.update", userTarget(id), "")
	return user, nil
}

// DeleteUser удаляет пользователя.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.api.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}

	s.invalidate("users", "orders", fmt.Sprintf("loyalty/%d|", id))
	s.record(ctx, "user.delete", userTarget(id), "")
	return nil
}
