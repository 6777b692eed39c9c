package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/flowershop-admin/internal/model"
	"github.com/mmeshcher/flowershop-admin/internal/service"
	"github.com/mmeshcher/flowershop-admin/internal/settings"
	"github.com/mmeshcher/flowershop-admin/internal/upstream"
	"github.com/mmeshcher/flowershop-admin/internal/validation"
)

type loginData struct {
	Username string
}

// LoginPage показывает форму входа.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", page{Title: "Вход", Data: loginData{}})
}

// Login обменивает логин и пароль на токен API магазина и открывает сессию.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	p := page{Title: "Вход", Data: loginData{Username: username}}

	if username == "" || password == "" {
		p.Error = "Введите логин и пароль"
		h.render(w, r, http.StatusBadRequest, "login", p)
		return
	}

	token, err := h.service.Login(r.Context(), username, password)
	if err != nil {
		h.loginFailed(w, r, p, err)
		return
	}

	if _, err := h.sessions.Establish(r.Context(), w, token); err != nil {
		h.loginFailed(w, r, p, err)
		return
	}

	h.logger.Info("admin logged in", zap.String("admin", username))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request, p page, err error) {
	h.logFailure(r, "login error", err)

	status := http.StatusBadGateway
	p.Error = msgUpstreamDown
	if msg, ok := upstream.Message(err); ok && msg != "" {
		p.Error = msg
	}
	if errors.Is(err, upstream.ErrUnauthorized) {
		status = http.StatusUnauthorized
		if p.Error == msgUpstreamDown {
			p.Error = "Неверный логин или пароль"
		}
	}
	h.render(w, r, status, "login", p)
}

// Logout закрывает сессию сотрудника.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Invalidate(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type dashboardData struct {
	Stats    *model.DashboardStats
	Statuses []model.OrderStatus
}

// Dashboard показывает сводку по заказам, пользователям и каталогу.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	p := page{Title: "Главная", Active: "dashboard"}

	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		p.Data = dashboardData{Stats: &model.DashboardStats{}, Statuses: model.OrderStatuses}
		h.renderError(w, r, err, "dashboard", p, "dashboard error")
		return
	}

	p.Data = dashboardData{Stats: stats, Statuses: model.OrderStatuses}
	h.render(w, r, http.StatusOK, "dashboard", p)
}

type ordersData struct {
	Orders   []model.Order
	Filter   service.OrderFilter
	Statuses []model.OrderStatus
	Errors   map[int64]string
	Back     string
}

func orderFilterOf(q url.Values) service.OrderFilter {
	return service.OrderFilter{
		Status: model.OrderStatus(q.Get("status")),
		Search: q.Get("q"),
	}
}

// Orders показывает список заказов с фильтром по статусу и поиском.
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	h.renderOrders(w, r, http.StatusOK, orderFilterOf(r.URL.Query()), r.URL.RequestURI(), nil)
}

func (h *Handler) renderOrders(w http.ResponseWriter, r *http.Request, status int, f service.OrderFilter, back string, errs map[int64]string) {
	p := page{Title: "Заказы", Active: "orders"}
	data := ordersData{Filter: f, Statuses: model.OrderStatuses, Errors: errs, Back: back}

	orders, err := h.service.ListOrders(r.Context(), f)
	if err != nil {
		p.Data = data
		h.renderError(w, r, err, "orders", p, "list orders error")
		return
	}

	data.Orders = orders
	p.Data = data
	h.render(w, r, status, "orders", p)
}

// transitionMessage возвращает текст ошибки перехода для строки заказа:
// сообщение API магазина, если оно есть, иначе общий текст.
func transitionMessage(err error) string {
	if msg, ok := upstream.Message(err); ok && msg != "" {
		return msg
	}
	return msgStatusFailed
}

// OrderStatus переводит заказ в выбранный статус. Ошибка показывается в
// строке заказа, статус на странице остаётся прежним.
func (h *Handler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	target := model.OrderStatus(r.PostFormValue("status"))
	back := localPath(r.PostFormValue("back"), "/orders")

	_, err := h.service.RequestTransition(r.Context(), id, target)
	if err == nil {
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	if h.handleAuthError(w, r, err) {
		return
	}
	h.logFailure(r, "order transition error", err, zap.Int64("order", id), zap.String("status", string(target)))

	status, _ := classify(err, msgStatusFailed)
	msg := transitionMessage(err)

	if strings.HasPrefix(back, "/orders/") {
		h.renderOrder(w, r, status, id, msg, nil, nil)
		return
	}

	f := service.OrderFilter{}
	if u, perr := url.Parse(back); perr == nil {
		f = orderFilterOf(u.Query())
	}
	h.renderOrders(w, r, status, f, back, map[int64]string{id: msg})
}

type orderData struct {
	Order  *model.Order
	Form   model.OrderUpdate
	Fields validation.Errors
}

// OrderPage показывает карточку заказа.
func (h *Handler) OrderPage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.render(w, r, http.StatusNotFound, "notfound", page{Title: "Не найдено", Active: "orders"})
		return
	}
	notice := ""
	if r.URL.Query().Get("saved") != "" {
		notice = "Изменения сохранены"
	}
	h.renderOrder(w, r, http.StatusOK, id, "", nil, nil, withNotice(notice))
}

type renderOption func(*page)

func withNotice(notice string) renderOption {
	return func(p *page) {
		p.Notice = notice
	}
}

func (h *Handler) renderOrder(w http.ResponseWriter, r *http.Request, status int, id int64, errText string, form *model.OrderUpdate, fields validation.Errors, opts ...renderOption) {
	p := page{Title: fmt.Sprintf("Заказ #%d", id), Active: "orders", Error: errText}
	for _, opt := range opts {
		opt(&p)
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err, "order", p, "get order error")
		return
	}

	data := orderData{Order: order, Form: orderUpdateOf(order), Fields: fields}
	if form != nil {
		data.Form = *form
	}
	p.Data = data
	h.render(w, r, status, "order", p)
}

// OrderUpdate сохраняет поля доставки и оплаты заказа.
func (h *Handler) OrderUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := readOrderUpdate(r)

	if _, err := h.service.UpdateOrder(r.Context(), id, form); err != nil {
		if h.handleAuthError(w, r, err) {
			return
		}
		h.logFailure(r, "update order error", err, zap.Int64("order", id))
		status, text := classify(err, msgUpstreamDown)
		h.renderOrder(w, r, status, id, text, &form, fieldErrors(err))
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/orders/%d?saved=1", id), http.StatusSeeOther)
}

// OrderDelete удаляет заказ.
func (h *Handler) OrderDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		if h.handleAuthError(w, r, err) {
			return
		}
		h.logFailure(r, "delete order error", err, zap.Int64("order", id))
		status, text := classify(err, msgUpstreamDown)
		h.renderOrder(w, r, status, id, text, nil, nil)
		return
	}

	http.Redirect(w, r, "/orders", http.StatusSeeOther)
}

type usersData struct {
	Users  []model.User
	Search string
}

// Users показывает список пользователей с поиском.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("q")
	p := page{Title: "Пользователи", Active: "users"}
	data := usersData{Search: search}

	users, err := h.service.ListUsers(r.Context(), search)
	if err != nil {
		p.Data = data
		h.renderError(w, r, err, "users", p, "list users error")
		return
	}

	data.Users = users
	p.Data = data
	h.render(w, r, http.StatusOK, "users", p)
}

type userData struct {
	User   *model.User
	Orders []model.Order
	Form   model.UserUpdate
	Fields validation.Errors
}

// UserPage показывает карточку пользователя и его заказы.
func (h *Handler) UserPage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.render(w, r, http.StatusNotFound, "notfound", page{Title: "Не найдено", Active: "users"})
		return
	}
	notice := ""
	if r.URL.Query().Get("saved") != "" {
		notice = "Изменения сохранены"
	}
	h.renderUser(w, r, http.StatusOK, id, page{Notice: notice}, nil, nil)
}

func (h *Handler) renderUser(w http.ResponseWriter, r *http.Request, status int, id int64, p page, form *model.UserUpdate, fields validation.Errors) {
	p.Title = "Пользователь"
	p.Active = "users"

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err, "user", p, "get user error")
		return
	}
	orders, err := h.service.UserOrders(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err, "user", p, "user orders error")
		return
	}

	data := userData{
		User:   user,
		Orders: orders,
		Form:   model.UserUpdate{FirstName: user.FirstName, LastName: user.LastName, Phone: user.Phone},
		Fields: fields,
	}
	if form != nil {
		data.Form = *form
	}
	p.Title = user.FullName()
	p.Data = data
	h.render(w, r, status, "user", p)
}

// UserUpdate сохраняет имя и телефон пользователя.
func (h *Handler) UserUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := model.UserUpdate{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Phone:     r.PostFormValue("phone"),
	}

	if _, err := h.service.UpdateUser(r.Context(), id, form); err != nil {
		if h.handleAuthError(w, r, err) {
			return
		}
		h.logFailure(r, "update user error", err, zap.Int64("user", id))
		status, text := classify(err, msgUpstreamDown)
		h.renderUser(w, r, status, id, page{Error: text}, &form, fieldErrors(err))
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/users/%d?saved=1", id), http.StatusSeeOther)
}

// UserDelete удаляет пользователя.
func (h *Handler) UserDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		if h.handleAuthError(w, r, err) {
			return
		}
		h.logFailure(r, "delete user error", err, zap.Int64("user", id))
		status, text := classify(err, msgUpstreamDown)
		h.renderUser(w, r, status, id, page{Error: text}, nil, nil)
		return
	}

	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

type loyaltyData struct {
	User        *model.User
	Loyalty     *model.Loyalty
	Result      *service.AdjustResult
	Amount      string
	Description string
	Fields      validation.Errors
}

// LoyaltyPage показывает бонусный баланс и историю операций пользователя.
func (h *Handler) LoyaltyPage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.render(w, r, http.StatusNotFound, "notfound", page{Title: "Не найдено", Active: "users"})
		return
	}
	h.renderLoyalty(w, r, http.StatusOK, id, page{}, loyaltyData{})
}

func (h *Handler) renderLoyalty(w http.ResponseWriter, r *http.Request, status int, id int64, p page, data loyaltyData) {
	p.Title = "Бонусы"
	p.Active = "users"

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err, "loyalty", p, "get user error")
		return
	}
	data.User = user

	if data.Result != nil {
		data.Loyalty = data.Result.Loyalty
	} else {
		loyalty, err := h.service.GetLoyalty(r.Context(), id)
		if err != nil {
			h.renderError(w, r, err, "loyalty", p, "get loyalty error")
			return
		}
		data.Loyalty = loyalty
	}

	p.Data = data
	h.render(w, r, status, "loyalty", p)
}

// LoyaltyAdjust начисляет или списывает баллы и показывает баланс,
// подтверждённый магазином.
func (h *Handler) LoyaltyAdjust(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	data := loyaltyData{
		Amount:      strings.TrimSpace(r.PostFormValue("amount")),
		Description: r.PostFormValue("description"),
	}
	amount, err := strconv.ParseInt(data.Amount, 10, 64)
	if err != nil {
		data.Fields = validation.Errors{"amount": "введите целое число баллов"}
		h.renderLoyalty(w, r, http.StatusUnprocessableEntity, id, page{Error: msgCheckForm}, data)
		return
	}

	res, err := h.service.AdjustLoyalty(r.Context(), id, model.LoyaltyAdjustment{Amount: amount, Description: data.Description})
	if err != nil {
		if h.handleAuthError(w, r, err) {
			return
		}
		h.logFailure(r, "adjust loyalty error", err, zap.Int64("user", id), zap.Int64("amount", amount))
		status, text := classify(err, msgUpstreamDown)
		data.Fields = fieldErrors(err)
		h.renderLoyalty(w, r, status, id, page{Error: text}, data)
		return
	}

	h.renderLoyalty(w, r, http.StatusOK, id,
		page{Notice: fmt.Sprintf("Баланс обновлён: %d", res.Loyalty.Balance)},
		loyaltyData{Result: res})
}

type bouquetsData struct {
	Bouquets   []model.Bouquet
	Filter     service.BouquetFilter
	Categories []string
	Errors     map[int64]string
	Back       string
}

func bouquetFilterOf(q url.Values) service.BouquetFilter {
	return service.BouquetFilter{Search: q.Get("q"), Category: q.Get("category")}
}

// Bouquets показывает каталог букетов с переключателями признаков.
func (h *Handler) Bouquets(w http.ResponseWriter, r *http.Request) {
	h.renderBouquets(w, r, http.StatusOK, bouquetFilterOf(r.URL.Query()), r.URL.RequestURI(), nil)
}

func (h *Handler) renderBouquets(w http.ResponseWriter, r *http.Request, status int, f service.BouquetFilter, back string, errs map[int64]string) {
	p := page{Title: "Букеты", Active: "bouquets"}
	data := bouquetsData{Filter: f, Errors: errs, Back: back}

	bouquets, err := h.service.ListBouquets(r.Context(), f)
	if err != nil {
		p.Data = data
		h.renderError(w, r, err, "bouquets", p, "list bouquets error")
		return
	}
	categories, err := h.service.BouquetCategories(r.Context())
	if err != nil {
		p.Data = data
		h.renderError(w, r, err, "bouquets", p, "bouquet categories error")
		return
	}

	data.Bouquets = bouquets
	data.Categories = categories
	p.Data = data
	h.render(w, r, status, "bouquets", p)
}

// BouquetToggle переключает один признак букета.
func (h *Handler) BouquetToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	flag := model.BouquetFlag(r.PostFormValue("flag"))
	back := localPath(r.PostFormValue("back"), "/bouquets")

	if _, err := h.service.ToggleBouquet(r.Context(), id, flag); err != nil {
		if h.handleAuthError(w, r, err) {
			return
		}
		h.logFailure(r, "toggle bouquet error", err, zap.Int64("bouquet", id), zap.String("flag", string(flag)))
		status, text := classify(err, msgUpstreamDown)

		f := service.BouquetFilter{}
		if u, perr := url.Parse(back); perr == nil {
			f = bouquetFilterOf(u.Query())
		}
		h.renderBouquets(w, r, status, f, back, map[int64]string{id: text})
		return
	}

	http.Redirect(w, r, back, http.StatusSeeOther)
}

type bouquetData struct {
	ID     int64
	Form   bouquetForm
	Fields validation.Errors
}

// BouquetNew показывает пустую форму букета.
func (h *Handler) BouquetNew(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "bouquet", page{
		Title:  "Новый букет",
		Active: "bouquets",
		Data:   bouquetData{Form: bouquetForm{InStock: true, SortOrder: "0"}},
	})
}

// BouquetPage показывает форму редактирования букета.
func (h *Handler) BouquetPage(w http.ResponseWriter, r *http.Request) {
	p := page{Title: "Букет", Active: "bouquets"}
	id, ok := idParam(r, "id")
	if !ok {
		h.render(w, r, http.StatusNotFound, "notfound", p)
		return
	}

	b, err := h.service.GetBouquet(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err, "bouquet", p, "get bouquet error")
		return
	}

	if r.URL.Query().Get("saved") != "" {
		p.Notice = "Изменения сохранены"
	}
	p.Title = b.Name
	p.Data = bouquetData{ID: id, Form: bouquetFormOf(b)}
	h.render(w, r, http.StatusOK, "bouquet", p)
}

// BouquetCreate добавляет букет из формы.
func (h *Handler) BouquetCreate(w http.ResponseWriter, r *http.Request) {
	h.saveBouquet(w, r, 0)
}

// BouquetUpdate сохраняет букет из формы.
func (h *Handler) BouquetUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	h.saveBouquet(w, r, id)
}

func (h *Handler) saveBouquet(w http.ResponseWriter, r *http.Request, id int64) {
	form := readBouquetForm(r)
	p := page{Title: "Букет", Active: "bouquets"}

	in, errs := form.input()
	if errs != nil {
		p.Error = msgCheckForm
		p.Data = bouquetData{ID: id, Form: form, Fields: errs}
		h.render(w, r, http.StatusUnprocessableEntity, "bouquet", p)
		return
	}

	var (
		saved *model.Bouquet
		err   error
	)
	if id == 0 {
		saved, err = h.service.CreateBouquet(r.Context(), in)
	} else {
		saved, err = h.service.UpdateBouquet(r.Context(), id, in)
	}
	if err != nil {
		if h.handleAuthError(w, r, err) {
			return
		}
		h.logFailure(r, "save bouquet error", err, zap.Int64("bouquet", id))
		status, text := classify(err, msgUpstreamDown)
		p.Error = text
		p.Data = bouquetData{ID: id, Form: form, Fields: fieldErrors(err)}
		h.render(w, r, status, "bouquet", p)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/bouquets/%d?saved=1", saved.ID), http.StatusSeeOther)
}

// BouquetDelete удаляет букет.
func (h *Handler) BouquetDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteBouquet(r.Context(), id); err != nil {
		if h.handleAuthError(w, r, err) {
			return
		}
		h.logFailure(r, "delete bouquet error", err, zap.Int64("bouquet", id))
		status, text := classify(err, msgUpstreamDown)
		h.renderBouquets(w, r, status, service.BouquetFilter{}, "/bouquets", map[int64]string{id: text})
		return
	}

	http.Redirect(w, r, "/bouquets", http.StatusSeeOther)
}

type constructorData struct {
	Kind   model.ConstructorKind
	Kinds  []model.ConstructorKind
	Items  []model.ConstructorItem
	Form   itemForm
	Fields validation.Errors
	Errors map[int64]string
}

// ConstructorRoot открывает первый раздел конструктора.
func (h *Handler) ConstructorRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/constructor/"+string(model.ConstructorFlowers), http.StatusSeeOther)
}

// Constructor показывает компоненты раздела конструктора.
func (h *Handler) Constructor(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		h.render(w, r, http.StatusNotFound, "notfound", page{Title: "Не найдено", Active: "constructor"})
		return
	}
	h.renderConstructor(w, r, http.StatusOK, page{}, constructorData{Kind: kind, Form: itemForm{InStock: true}})
}

func (h *Handler) renderConstructor(w http.ResponseWriter, r *http.Request, status int, p page, data constructorData) {
	p.Title = "Конструктор: " + kindLabel(data.Kind)
	p.Active = "constructor"
	data.Kinds = model.ConstructorKinds

	items, err := h.service.ListConstructorItems(r.Context(), data.Kind)
	if err != nil {
		p.Data = data
		h.renderError(w, r, err, "constructor", p, "list constructor error")
		return
	}

	data.Items = items
	p.Data = data
	h.render(w, r, status, "constructor", p)
}

// ConstructorCreate добавляет компонент в раздел.
func (h *Handler) ConstructorCreate(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	form := readItemForm(r)
	data := constructorData{Kind: kind, Form: form}

	in, errs := form.input()
	if errs != nil {
		data.Fields = errs
		h.renderConstructor(w, r, http.StatusUnprocessableEntity, page{Error: msgCheckForm}, data)
		return
	}

	if _, err := h.service.CreateConstructorItem(r.Context(), kind, in); err != nil {
		h.constructorFailed(w, r, err, data, 0)
		return
	}
	http.Redirect(w, r, "/constructor/"+string(kind), http.StatusSeeOther)
}

// ConstructorUpdate сохраняет название и цену компонента.
func (h *Handler) ConstructorUpdate(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	data := constructorData{Kind: kind, Form: itemForm{InStock: true}}

	in, errs := readItemForm(r).input()
	if errs != nil {
		data.Errors = map[int64]string{id: errs["price"]}
		h.renderConstructor(w, r, http.StatusUnprocessableEntity, page{Error: msgCheckForm}, data)
		return
	}

	if _, err := h.service.UpdateConstructorItem(r.Context(), kind, id, in); err != nil {
		h.constructorFailed(w, r, err, data, id)
		return
	}
	http.Redirect(w, r, "/constructor/"+string(kind), http.StatusSeeOther)
}

// ConstructorToggle переключает наличие компонента.
func (h *Handler) ConstructorToggle(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if _, err := h.service.ToggleConstructorStock(r.Context(), kind, id); err != nil {
		h.constructorFailed(w, r, err, constructorData{Kind: kind, Form: itemForm{InStock: true}}, id)
		return
	}
	http.Redirect(w, r, "/constructor/"+string(kind), http.StatusSeeOther)
}

// ConstructorDelete удаляет компонент.
func (h *Handler) ConstructorDelete(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteConstructorItem(r.Context(), kind, id); err != nil {
		h.constructorFailed(w, r, err, constructorData{Kind: kind, Form: itemForm{InStock: true}}, id)
		return
	}
	http.Redirect(w, r, "/constructor/"+string(kind), http.StatusSeeOther)
}

// constructorFailed показывает ошибку в строке компонента или над формой
// добавления, если id равен нулю.
func (h *Handler) constructorFailed(w http.ResponseWriter, r *http.Request, err error, data constructorData, id int64) {
	if h.handleAuthError(w, r, err) {
		return
	}
	h.logFailure(r, "constructor error", err, zap.String("kind", string(data.Kind)), zap.Int64("item", id))

	status, text := classify(err, msgUpstreamDown)
	p := page{}
	if id == 0 {
		p.Error = text
		data.Fields = fieldErrors(err)
	} else {
		data.Errors = map[int64]string{id: text}
	}
	if status == http.StatusNotFound {
		status = http.StatusOK
	}
	h.renderConstructor(w, r, status, p, data)
}

type settingsData struct {
	Fields []settings.Field
	Errors validation.Errors
}

// Settings показывает настройки магазина.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	p := page{Title: "Настройки", Active: "settings"}

	fields, err := h.service.ListSettings(r.Context())
	if err != nil {
		p.Data = settingsData{}
		h.renderError(w, r, err, "settings", p, "list settings error")
		return
	}

	p.Data = settingsData{Fields: fields}
	h.render(w, r, http.StatusOK, "settings", p)
}

// SettingsSave сохраняет изменённые настройки. Флажок, которого нет в форме,
// означает выключенную настройку.
func (h *Handler) SettingsSave(w http.ResponseWriter, r *http.Request) {
	p := page{Title: "Настройки", Active: "settings"}

	fields, err := h.service.ListSettings(r.Context())
	if err != nil {
		p.Data = settingsData{}
		h.renderError(w, r, err, "settings", p, "list settings error")
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		if f.Type == settings.TypeBool {
			if checked(r, f.Key) {
				values[f.Key] = "true"
			} else {
				values[f.Key] = "false"
			}
			continue
		}
		if vs, ok := r.PostForm[f.Key]; ok && len(vs) > 0 {
			values[f.Key] = vs[0]
		}
	}

	saved, err := h.service.UpdateSettings(r.Context(), values)
	if err != nil {
		if h.handleAuthError(w, r, err) {
			return
		}
		h.logFailure(r, "update settings error", err)
		status, text := classify(err, msgUpstreamDown)
		for i := range fields {
			if v, ok := values[fields[i].Key]; ok {
				fields[i].Value = v
			}
		}
		p.Error = text
		p.Data = settingsData{Fields: fields, Errors: fieldErrors(err)}
		h.render(w, r, status, "settings", p)
		return
	}

	fields, err = h.service.ListSettings(r.Context())
	if err != nil {
		p.Data = settingsData{}
		h.renderError(w, r, err, "settings", p, "list settings error")
		return
	}
	p.Notice = "Настройки не изменились"
	if saved > 0 {
		p.Notice = fmt.Sprintf("Сохранено настроек: %d", saved)
	}
	p.Data = settingsData{Fields: fields}
	h.render(w, r, http.StatusOK, "settings", p)
}

type broadcastData struct {
	Text     string
	ImageURL string
	Result   *model.BroadcastResult
	Fields   validation.Errors
}

// BroadcastPage показывает форму рассылки.
func (h *Handler) BroadcastPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "broadcast", page{Title: "Рассылка", Active: "broadcast", Data: broadcastData{}})
}

// BroadcastSend отправляет сообщение всем пользователям и показывает счётчики.
func (h *Handler) BroadcastSend(w http.ResponseWriter, r *http.Request) {
	p := page{Title: "Рассылка", Active: "broadcast"}
	data := broadcastData{
		Text:     r.PostFormValue("text"),
		ImageURL: r.PostFormValue("image_url"),
	}

	res, err := h.service.SendBroadcast(r.Context(), model.Broadcast{Text: data.Text, ImageURL: data.ImageURL})
	if err != nil {
		if h.handleAuthError(w, r, err) {
			return
		}
		h.logFailure(r, "broadcast error", err)
		status, text := classify(err, msgUpstreamDown)
		p.Error = text
		data.Fields = fieldErrors(err)
		p.Data = data
		h.render(w, r, status, "broadcast", p)
		return
	}

	p.Data = broadcastData{Result: res}
	h.render(w, r, http.StatusOK, "broadcast", p)
}
