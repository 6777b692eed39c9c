package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mmeshcher/flowershop-admin/internal/model"
)

// ListOrders возвращает заказы, отфильтрованные по статусу на стороне API.
func (c *Client) ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	var res list[model.Order]
	if err := c.do(ctx, http.MethodGet, "/orders", q, nil, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

// GetOrder возвращает заказ по идентификатору.
func (c *Client) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	var o model.Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOrder сохраняет изменённые поля заказа.
func (c *Client) UpdateOrder(ctx context.Context, id int64, upd model.OrderUpdate) (*model.Order, error) {
	var o model.Order
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d", id), nil, upd, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// UpdateOrderStatus просит API перевести заказ в новый статус.
func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d/status", id), nil, statusRequest{Status: status}, nil)
}

// DeleteOrder удаляет заказ.
func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/orders/%d", id), nil, nil, nil)
}

// ListUsers возвращает всех пользователей.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var res list[model.User]
	if err := c.do(ctx, http.MethodGet, "/users", nil, nil, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

// GetUser возвращает пользователя с адресами.
func (c *Client) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser сохраняет изменённые поля пользователя.
func (c *Client) UpdateUser(ctx context.Context, id int64, upd model.UserUpdate) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), nil, upd, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser удаляет пользователя.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil, nil)
}

// ListUserOrders возвращает заказы пользователя.
func (c *Client) ListUserOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	var res list[model.Order]
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/orders", userID), nil, nil, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

// GetLoyalty возвращает бонусный баланс пользователя и историю операций.
func (c *Client) GetLoyalty(ctx context.Context, userID int64) (*model.Loyalty, error) {
	var l model.Loyalty
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/loyalty", userID), nil, nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

type adjustResponse struct {
	Balance int64 `json:"balance"`
}

// AdjustLoyalty начисляет или списывает баллы и возвращает новый баланс.
func (c *Client) AdjustLoyalty(ctx context.Context, userID int64, adj model.LoyaltyAdjustment) (int64, error) {
	var resp adjustResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/loyalty/adjust", userID), nil, adj, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

// ListBouquets возвращает каталог букетов.
func (c *Client) ListBouquets(ctx context.Context) ([]model.Bouquet, error) {
	var res list[model.Bouquet]
	if err := c.do(ctx, http.MethodGet, "/bouquets", nil, nil, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

// GetBouquet возвращает букет по идентификатору.
func (c *Client) GetBouquet(ctx context.Context, id int64) (*model.Bouquet, error) {
	var b model.Bouquet
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/bouquets/%d", id), nil, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBouquet добавляет букет в каталог.
func (c *Client) CreateBouquet(ctx context.Context, in model.BouquetInput) (*model.Bouquet, error) {
	var b model.Bouquet
	if err := c.do(ctx, http.MethodPost, "/bouquets", nil, in, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBouquet сохраняет изменения букета.
func (c *Client) UpdateBouquet(ctx context.Context, id int64, in model.BouquetInput) (*model.Bouquet, error) {
	var b model.Bouquet
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/bouquets/%d", id), nil, in, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// SetBouquetFlag меняет один булев признак букета частичным обновлением.
func (c *Client) SetBouquetFlag(ctx context.Context, id int64, flag model.BouquetFlag, value bool) error {
	body := map[string]bool{string(flag): value}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/bouquets/%d", id), nil, body, nil)
}

// DeleteBouquet удаляет букет из каталога.
func (c *Client) DeleteBouquet(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/bouquets/%d", id), nil, nil, nil)
}

// ListConstructorItems возвращает компоненты раздела конструктора.
func (c *Client) ListConstructorItems(ctx context.Context, kind model.ConstructorKind) ([]model.ConstructorItem, error) {
	var res list[model.ConstructorItem]
	if err := c.do(ctx, http.MethodGet, "/constructor/"+string(kind), nil, nil, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

// CreateConstructorItem добавляет компонент в раздел конструктора.
func (c *Client) CreateConstructorItem(ctx context.Context, kind model.ConstructorKind, in model.ConstructorItemInput) (*model.ConstructorItem, error) {
	var item model.ConstructorItem
	if err := c.do(ctx, http.MethodPost, "/constructor/"+string(kind), nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateConstructorItem сохраняет изменения компонента.
func (c *Client) UpdateConstructorItem(ctx context.Context, kind model.ConstructorKind, id int64, in model.ConstructorItemInput) (*model.ConstructorItem, error) {
	var item model.ConstructorItem
	path := fmt.Sprintf("/constructor/%s/%d", kind, id)
	if err := c.do(ctx, http.MethodPut, path, nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// SetConstructorItemStock меняет признак наличия компонента.
func (c *Client) SetConstructorItemStock(ctx context.Context, kind model.ConstructorKind, id int64, inStock bool) error {
	path := fmt.Sprintf("/constructor/%s/%d", kind, id)
	return c.do(ctx, http.MethodPatch, path, nil, map[string]bool{"in_stock": inStock}, nil)
}

// DeleteConstructorItem удаляет компонент.
func (c *Client) DeleteConstructorItem(ctx context.Context, kind model.ConstructorKind, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/constructor/%s/%d", kind, id), nil, nil, nil)
}

// ListSettings возвращает все сохранённые настройки магазина.
func (c *Client) ListSettings(ctx context.Context) ([]model.Setting, error) {
	var res list[model.Setting]
	if err := c.do(ctx, http.MethodGet, "/settings", nil, nil, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

type settingRequest struct {
	Value string `json:"value"`
}

// UpdateSetting сохраняет значение настройки.
func (c *Client) UpdateSetting(ctx context.Context, key, value string) error {
	return c.do(ctx, http.MethodPut, "/settings/"+url.PathEscape(key), nil, settingRequest{Value: value}, nil)
}

// SendBroadcast отправляет сообщение всем пользователям через мессенджер.
func (c *Client) SendBroadcast(ctx context.Context, b model.Broadcast) (*model.BroadcastResult, error) {
	var res model.BroadcastResult
	if err := c.do(ctx, http.MethodPost, "/broadcast", nil, b, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
