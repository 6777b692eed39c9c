package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/flowershop-admin/internal/model"
)

// AdjustResult содержит итог корректировки бонусного баланса.
type AdjustResult struct {
	// Optimistic баланс, рассчитанный локально до подтверждения магазином.
	Optimistic int64 `json:"optimistic"`
	// Loyalty баланс и история после повторной загрузки из API.
	Loyalty *model.Loyalty `json:"loyalty"`
}

// Reconciled сообщает, совпал ли локальный расчёт с балансом магазина.
func (r *AdjustResult) Reconciled() bool {
	return r.Loyalty != nil && r.Loyalty.Balance == r.Optimistic
}

func loyaltyKey(userID int64) string {
	return fmt.Sprintf("loyalty/%d", userID)
}

// GetLoyalty возвращает баланс и историю операций, новые первыми.
func (s *Service) GetLoyalty(ctx context.Context, userID int64) (*model.Loyalty, error) {
	loyalty, err := load(ctx, s, loyaltyKey(userID), func(ctx context.Context) (*model.Loyalty, error) {
		l, err := s.api.GetLoyalty(ctx, userID)
		if err != nil {
			return nil, err
		}
		history := append([]model.LoyaltyEntry(nil), l.History...)
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].CreatedAt.After(history[j].CreatedAt)
		})
		return &model.Loyalty{Balance: l.Balance, History: history}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get loyalty of user %d: %w", userID, err)
	}
	return loyalty, nil
}

// AdjustLoyalty начисляет или списывает баллы. Сумма со знаком, ноль
// отклоняется, нижней границы баланса здесь нет: её проверяет магазин.
// Возвращается баланс, перечитанный после подтверждения.
func (s *Service) AdjustLoyalty(ctx context.Context, userID int64, adj model.LoyaltyAdjustment) (*AdjustResult, error) {
	adj.Description = strings.TrimSpace(adj.Description)
	if err := s.validate.Struct(adj); err != nil {
		return nil, err
	}

	before, err := s.GetLoyalty(ctx, userID)
	if err != nil {
		return nil, err
	}
	optimistic := before.Balance + adj.Amount

	confirmed, err := s.api.AdjustLoyalty(ctx, userID, adj)
	if err != nil {
		return nil, fmt.Errorf("adjust loyalty of user %d: %w", userID, err)
	}

	s.invalidate(loyaltyKey(userID)+"|", "users")
	s.record(ctx, "loyalty.adjust", userTarget(userID), fmt.Sprintf("%+d %s", adj.Amount, adj.Description))

	after, err := s.GetLoyalty(ctx, userID)
	if err != nil {
		return nil, err
	}

	if after.Balance != optimistic {
		s.logger.Warn("loyalty balance differs from local calculation",
			zap.Int64("user", userID),
			zap.Int64("optimistic", optimistic),
			zap.Int64("confirmed", confirmed),
			zap.Int64("reloaded", after.Balance))
	}

	return &AdjustResult{Optimistic: optimistic, Loyalty: after}, nil
}
