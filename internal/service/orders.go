package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/flowershop-admin/internal/model"
	"github.com/mmeshcher/flowershop-admin/internal/validation"
	"github.com/mmeshcher/flowershop-admin/internal/workflow"
)

// ErrTransitionNotAllowed возвращается, если переход отсутствует в таблице статусов.
var ErrTransitionNotAllowed = errors.New("order status transition not allowed")

// TransitionError описывает отклонённый локально переход статуса.
type TransitionError struct {
	OrderID int64
	From    model.OrderStatus
	To      model.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %d: transition %s -> %s not allowed", e.OrderID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrTransitionNotAllowed
}

// OrderFilter задаёт фильтр списка заказов.
type OrderFilter struct {
	Status model.OrderStatus
	Search string
}

// ListOrders возвращает заказы, новые первыми.
func (s *Service) ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	orders, err := load(ctx, s, "orders", func(ctx context.Context) ([]model.Order, error) {
		return s.api.ListOrders(ctx, "")
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	query := strings.ToLower(strings.TrimSpace(f.Search))
	digits := phoneQuery(query)

	result := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if query != "" && !orderMatches(o, query, digits) {
			continue
		}
		result = append(result, o)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func orderMatches(o model.Order, query, digits string) bool {
	if strings.Contains(strings.ToLower(o.RecipientName), query) ||
		strings.Contains(strings.ToLower(o.Address), query) ||
		strings.TrimPrefix(query, "#") == strconv.FormatInt(o.ID, 10) {
		return true
	}
	return digits != "" && strings.Contains(validation.NormalizePhone(o.RecipientPhone), digits)
}

// GetOrder возвращает заказ по номеру.
func (s *Service) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	order, err := load(ctx, s, fmt.Sprintf("orders/%d", id), func(ctx context.Context) (*model.Order, error) {
		return s.api.GetOrder(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return order, nil
}

// UpdateOrder изменяет поля доставки и оплаты заказа.
func (s *Service) UpdateOrder(ctx context.Context, id int64, upd model.OrderUpdate) (*model.Order, error) {
	upd.RecipientPhone = strings.TrimSpace(upd.RecipientPhone)
	if err := s.validate.Struct(upd); err != nil {
		return nil, err
	}

	order, err := s.api.UpdateOrder(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("update order %d: %w", id, err)
	}

	s.invalidate("orders", "users")
	s.record(ctx, "order.update", orderTarget(id), "")
	return order, nil
}

// DeleteOrder удаляет заказ.
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	if err := s.api.DeleteOrder(ctx, id); err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}

	s.invalidate("orders", "users")
	s.record(ctx, "order.delete", orderTarget(id), "")
	return nil
}

// RequestTransition переводит заказ в статус target. Переход, которого нет в
// таблице статусов, отклоняется без обращения к API. После успешного перехода
// сбрасываются заказы, пользователи и бонусы владельца заказа: магазин может
// начислить баллы при завершении.
func (s *Service) RequestTransition(ctx context.Context, id int64, target model.OrderStatus) (*model.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if !workflow.CanTransition(order.Status, target) {
		return nil, &TransitionError{OrderID: id, From: order.Status, To: target}
	}

	if err := s.api.UpdateOrderStatus(ctx, id, target); err != nil {
		s.logger.Info("order transition rejected",
			zap.Int64("order", id),
			zap.String("from", string(order.Status)),
			zap.String("to", string(target)),
			zap.Error(err))
		return nil, fmt.Errorf("transition order %d: %w", id, err)
	}

	s.invalidate("orders", "users", fmt.Sprintf("loyalty/%d|", order.UserID))
	s.record(ctx, "order.status", orderTarget(id), fmt.Sprintf("%s -> %s", order.Status, target))

	updated, err := s.GetOrder(ctx, id)
	if err != nil {
		// статус уже изменён в магазине, ошибка перечитывания не отменяет перехода
		s.logger.Warn("reload order after transition",
			zap.Int64("order", id),
			zap.String("status", string(target)),
			zap.Error(err))
		applied := *order
		applied.Status = target
		return &applied, nil
	}
	return updated, nil
}
