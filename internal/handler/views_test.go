package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/flowershop-admin/internal/model"
	"github.com/mmeshcher/flowershop-admin/internal/service"
	"github.com/mmeshcher/flowershop-admin/internal/settings"
	"github.com/mmeshcher/flowershop-admin/internal/validation"
)

func TestViews_RenderEveryPage(t *testing.T) {
	v, err := loadViews()
	require.NoError(t, err)

	order := sampleOrder()
	user := &model.User{ID: 3, FirstName: "Анна", LastName: "Петрова", Username: "anna", BonusBalance: 150,
		Addresses: []model.Address{{ID: 1, Address: "ул. Садовая, 1", Label: "Дом"}}}
	old := decimal.RequireFromString("3500")
	bouquet := model.Bouquet{ID: 4, Name: "Пионы", Price: decimal.RequireFromString("3000"), OldPrice: &old, InStock: true}

	pages := map[string]any{
		"login": loginData{Username: "florist"},
		"dashboard": dashboardData{
			Stats: &model.DashboardStats{
				OrdersByStatus: map[model.OrderStatus]int{model.OrderStatusNew: 1},
				OrdersTotal:    1,
				LatestOrders:   []model.Order{*order},
				RecentActions:  []model.AuditEntry{{Actor: "florist", Action: "order.status", Target: "order:7"}},
			},
			Statuses: model.OrderStatuses,
		},
		"orders": ordersData{
			Orders:   []model.Order{*order},
			Statuses: model.OrderStatuses,
			Errors:   map[int64]string{7: "ошибка"},
			Back:     "/orders",
		},
		"order": orderData{Order: order, Form: orderUpdateOf(order), Fields: validation.Errors{"address": "слишком длинный"}},
		"users": usersData{Users: []model.User{*user}, Search: "анна"},
		"user":  userData{User: user, Orders: []model.Order{*order}},
		"loyalty": loyaltyData{
			User:    user,
			Loyalty: &model.Loyalty{Balance: 150, History: []model.LoyaltyEntry{{Amount: -20, Type: "spend"}}},
			Result:  &service.AdjustResult{Optimistic: 170, Loyalty: &model.Loyalty{Balance: 150}},
		},
		"bouquets": bouquetsData{
			Bouquets:   []model.Bouquet{bouquet},
			Categories: []string{"Пионы"},
			Back:       "/bouquets",
		},
		"bouquet": bouquetData{ID: 4, Form: bouquetFormOf(&bouquet)},
		"constructor": constructorData{
			Kind:  model.ConstructorGreenery,
			Kinds: model.ConstructorKinds,
			Items: []model.ConstructorItem{{ID: 2, Name: "Эвкалипт", Price: decimal.RequireFromString("150.5")}},
		},
		"settings": settingsData{Fields: settings.Default().Merge([]model.Setting{{Key: "delivery_enabled", Value: "true"}})},
		"broadcast": broadcastData{Result: &model.BroadcastResult{Sent: 10, Failed: 1}},
		"notfound":  nil,
	}

	for _, name := range pageFiles {
		t.Run(name, func(t *testing.T) {
			data, ok := pages[name]
			require.True(t, ok, "no sample data for page %s", name)

			rec := httptest.NewRecorder()
			err := v.render(rec, http.StatusOK, name, page{
				Title:  name,
				Active: "orders",
				Admin:  &model.Admin{Username: "florist"},
				Data:   data,
			})
			require.NoError(t, err)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), "florist")
		})
	}
}

func TestViews_UnknownPage(t *testing.T) {
	v, err := loadViews()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	assert.Error(t, v.render(rec, http.StatusOK, "missing", page{}))
	assert.Zero(t, rec.Body.Len())
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "1500.00 ₽", formatMoney(decimal.RequireFromString("1500")))
	assert.Equal(t, "99.90 ₽", formatMoney(decimal.RequireFromString("99.9")))
}

func TestFormatSigned(t *testing.T) {
	assert.Equal(t, "+100", string(formatSigned(100)))
	assert.Equal(t, "-30", string(formatSigned(-30)))
	assert.Equal(t, "+0", string(formatSigned(0)))
}
