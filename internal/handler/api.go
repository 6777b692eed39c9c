package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/flowershop-admin/internal/model"
	"github.com/mmeshcher/flowershop-admin/internal/service"
	"github.com/mmeshcher/flowershop-admin/internal/workflow"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgBadRequest})
		return false
	}
	return true
}

func (h *Handler) apiID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, ok := idParam(r, name)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgBadRequest})
	}
	return id, ok
}

func (h *Handler) apiKind(w http.ResponseWriter, r *http.Request) (model.ConstructorKind, bool) {
	kind, ok := kindParam(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: msgNotFound})
	}
	return kind, ok
}

// APIMe возвращает сотрудника текущей сессии.
func (h *Handler) APIMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentAdmin(r))
}

// APIDashboard возвращает сводку главной страницы.
func (h *Handler) APIDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		h.apiError(w, r, err, "dashboard error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// APIListOrders возвращает заказы с фильтром по статусу и строке поиска.
func (h *Handler) APIListOrders(w http.ResponseWriter, r *http.Request) {
	f := service.OrderFilter{
		Status: model.OrderStatus(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("q"),
	}
	if f.Status != "" && !workflow.IsKnown(f.Status) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgBadRequest})
		return
	}
	orders, err := h.service.ListOrders(r.Context(), f)
	if err != nil {
		h.apiError(w, r, err, "list orders error")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

type orderResponse struct {
	*model.Order
	StatusLabel string              `json:"status_label"`
	Allowed     []model.OrderStatus `json:"allowed_next"`
	Terminal    bool                `json:"terminal"`
}

func newOrderResponse(o *model.Order) orderResponse {
	return orderResponse{
		Order:       o,
		StatusLabel: workflow.Label(o.Status),
		Allowed:     workflow.AllowedNext(o.Status),
		Terminal:    workflow.IsTerminal(o.Status),
	}
}

// APIGetOrder возвращает заказ вместе с доступными переходами статуса.
func (h *Handler) APIGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.apiError(w, r, err, "get order error", zap.Int64("order", id))
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

// APIUpdateOrder сохраняет поля доставки и оплаты заказа.
func (h *Handler) APIUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	var upd model.OrderUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}

	order, err := h.service.UpdateOrder(r.Context(), id, upd)
	if err != nil {
		h.apiError(w, r, err, "update order error", zap.Int64("order", id))
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// APIOrderStatus переводит заказ в новый статус.
func (h *Handler) APIOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.service.RequestTransition(r.Context(), id, req.Status)
	if err != nil {
		h.apiError(w, r, err, "order transition error", zap.Int64("order", id), zap.String("status", string(req.Status)))
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

// APIDeleteOrder удаляет заказ.
func (h *Handler) APIDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		h.apiError(w, r, err, "delete order error", zap.Int64("order", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// APIListUsers возвращает пользователей с поиском без учёта регистра.
func (h *Handler) APIListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.apiError(w, r, err, "list users error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// APIGetUser возвращает пользователя.
func (h *Handler) APIGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.apiError(w, r, err, "get user error", zap.Int64("user", id))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// APIUserOrders возвращает заказы пользователя.
func (h *Handler) APIUserOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	orders, err := h.service.UserOrders(r.Context(), id)
	if err != nil {
		h.apiError(w, r, err, "user orders error", zap.Int64("user", id))
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// APIUpdateUser сохраняет имя и телефон пользователя.
func (h *Handler) APIUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	var upd model.UserUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	user, err := h.service.UpdateUser(r.Context(), id, upd)
	if err != nil {
		h.apiError(w, r, err, "update user error", zap.Int64("user", id))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// APIDeleteUser удаляет пользователя.
func (h *Handler) APIDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		h.apiError(w, r, err, "delete user error", zap.Int64("user", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// APIGetLoyalty возвращает бонусный баланс и историю пользователя.
func (h *Handler) APIGetLoyalty(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	loyalty, err := h.service.GetLoyalty(r.Context(), id)
	if err != nil {
		h.apiError(w, r, err, "get loyalty error", zap.Int64("user", id))
		return
	}
	writeJSON(w, http.StatusOK, loyalty)
}

// APIAdjustLoyalty начисляет или списывает баллы.
func (h *Handler) APIAdjustLoyalty(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	var adj model.LoyaltyAdjustment
	if !decodeJSON(w, r, &adj) {
		return
	}
	res, err := h.service.AdjustLoyalty(r.Context(), id, adj)
	if err != nil {
		h.apiError(w, r, err, "adjust loyalty error", zap.Int64("user", id), zap.Int64("amount", adj.Amount))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// APIListBouquets возвращает каталог букетов.
func (h *Handler) APIListBouquets(w http.ResponseWriter, r *http.Request) {
	f := service.BouquetFilter{
		Search:   r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	}
	bouquets, err := h.service.ListBouquets(r.Context(), f)
	if err != nil {
		h.apiError(w, r, err, "list bouquets error")
		return
	}
	writeJSON(w, http.StatusOK, bouquets)
}

// APIGetBouquet возвращает букет.
func (h *Handler) APIGetBouquet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.service.GetBouquet(r.Context(), id)
	if err != nil {
		h.apiError(w, r, err, "get bouquet error", zap.Int64("bouquet", id))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// APICreateBouquet добавляет букет.
func (h *Handler) APICreateBouquet(w http.ResponseWriter, r *http.Request) {
	var in model.BouquetInput
	if !decodeJSON(w, r, &in) {
		return
	}
	b, err := h.service.CreateBouquet(r.Context(), in)
	if err != nil {
		h.apiError(w, r, err, "create bouquet error")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// APIUpdateBouquet сохраняет букет.
func (h *Handler) APIUpdateBouquet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	var in model.BouquetInput
	if !decodeJSON(w, r, &in) {
		return
	}
	b, err := h.service.UpdateBouquet(r.Context(), id, in)
	if err != nil {
		h.apiError(w, r, err, "update bouquet error", zap.Int64("bouquet", id))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// APIDeleteBouquet удаляет букет.
func (h *Handler) APIDeleteBouquet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteBouquet(r.Context(), id); err != nil {
		h.apiError(w, r, err, "delete bouquet error", zap.Int64("bouquet", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type toggleResponse struct {
	ID    int64  `json:"id"`
	Flag  string `json:"flag"`
	Value bool   `json:"value"`
}

// APIToggleBouquet переключает признак букета: in_stock, is_hit или is_new.
func (h *Handler) APIToggleBouquet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	flag := model.BouquetFlag(r.URL.Query().Get("flag"))

	value, err := h.service.ToggleBouquet(r.Context(), id, flag)
	if err != nil {
		h.apiError(w, r, err, "toggle bouquet error", zap.Int64("bouquet", id), zap.String("flag", string(flag)))
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{ID: id, Flag: string(flag), Value: value})
}

// APIListConstructor возвращает компоненты раздела конструктора.
func (h *Handler) APIListConstructor(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.apiKind(w, r)
	if !ok {
		return
	}
	items, err := h.service.ListConstructorItems(r.Context(), kind)
	if err != nil {
		h.apiError(w, r, err, "list constructor error", zap.String("kind", string(kind)))
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// APICreateConstructor добавляет компонент.
func (h *Handler) APICreateConstructor(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.apiKind(w, r)
	if !ok {
		return
	}
	var in model.ConstructorItemInput
	if !decodeJSON(w, r, &in) {
		return
	}
	item, err := h.service.CreateConstructorItem(r.Context(), kind, in)
	if err != nil {
		h.apiError(w, r, err, "create constructor item error", zap.String("kind", string(kind)))
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// APIUpdateConstructor сохраняет компонент.
func (h *Handler) APIUpdateConstructor(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.apiKind(w, r)
	if !ok {
		return
	}
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	var in model.ConstructorItemInput
	if !decodeJSON(w, r, &in) {
		return
	}
	item, err := h.service.UpdateConstructorItem(r.Context(), kind, id, in)
	if err != nil {
		h.apiError(w, r, err, "update constructor item error", zap.String("kind", string(kind)), zap.Int64("item", id))
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// APIDeleteConstructor удаляет компонент.
func (h *Handler) APIDeleteConstructor(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.apiKind(w, r)
	if !ok {
		return
	}
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteConstructorItem(r.Context(), kind, id); err != nil {
		h.apiError(w, r, err, "delete constructor item error", zap.String("kind", string(kind)), zap.Int64("item", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// APIToggleConstructor переключает наличие компонента.
func (h *Handler) APIToggleConstructor(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.apiKind(w, r)
	if !ok {
		return
	}
	id, ok := h.apiID(w, r, "id")
	if !ok {
		return
	}
	value, err := h.service.ToggleConstructorStock(r.Context(), kind, id)
	if err != nil {
		h.apiError(w, r, err, "toggle constructor item error", zap.String("kind", string(kind)), zap.Int64("item", id))
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{ID: id, Flag: string(model.BouquetFlagInStock), Value: value})
}

// APIListSettings возвращает настройки магазина по перечню.
func (h *Handler) APIListSettings(w http.ResponseWriter, r *http.Request) {
	fields, err := h.service.ListSettings(r.Context())
	if err != nil {
		h.apiError(w, r, err, "list settings error")
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

type settingRequest struct {
	Value string `json:"value"`
}

// APIUpdateSetting сохраняет одну настройку.
func (h *Handler) APIUpdateSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req settingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.UpdateSetting(r.Context(), key, req.Value); err != nil {
		h.apiError(w, r, err, "update setting error", zap.String("key", key))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// APIBroadcast отправляет рассылку и возвращает счётчики доставки.
func (h *Handler) APIBroadcast(w http.ResponseWriter, r *http.Request) {
	var b model.Broadcast
	if !decodeJSON(w, r, &b) {
		return
	}
	res, err := h.service.SendBroadcast(r.Context(), b)
	if err != nil {
		h.apiError(w, r, err, "broadcast error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
