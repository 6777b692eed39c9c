package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/flowershop-admin/internal/audit"
	"github.com/mmeshcher/flowershop-admin/internal/model"
)

const (
	latestOrdersLimit  = 5
	recentActionsLimit = 10
)

// DashboardStats собирает сводку главной страницы. Заказы, пользователи и
// букеты загружаются параллельно.
func (s *Service) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	var (
		orders   []model.Order
		users    []model.User
		bouquets []model.Bouquet
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.ListOrders(gctx, OrderFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.ListUsers(gctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		bouquets, err = s.ListBouquets(gctx, BouquetFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	stats := Aggregate(orders)
	stats.UsersTotal = len(users)
	stats.BouquetsTotal = len(bouquets)

	recent, err := s.audit.Recent(ctx, recentActionsLimit)
	switch {
	case err == nil:
		stats.RecentActions = recent
	case errors.Is(err, audit.ErrNoStorage):
	default:
		s.logger.Warn("load recent admin actions", zap.Error(err))
	}

	return stats, nil
}

// Aggregate считает заказы по статусам и выручку завершённых заказов.
func Aggregate(orders []model.Order) *model.DashboardStats {
	stats := &model.DashboardStats{
		OrdersByStatus: make(map[model.OrderStatus]int, len(model.OrderStatuses)),
		OrdersTotal:    len(orders),
		Revenue:        decimal.Zero,
	}
	for _, st := range model.OrderStatuses {
		stats.OrdersByStatus[st] = 0
	}

	for _, o := range orders {
		stats.OrdersByStatus[o.Status]++
		if o.Status == model.OrderStatusCompleted {
			stats.Revenue = stats.Revenue.Add(o.TotalPrice)
		}
	}

	latest := append([]model.Order(nil), orders...)
	sort.SliceStable(latest, func(i, j int) bool {
		return latest[i].CreatedAt.After(latest[j].CreatedAt)
	})
	if len(latest) > latestOrdersLimit {
		latest = latest[:latestOrdersLimit]
	}
	stats.LatestOrders = latest
	return stats
}
