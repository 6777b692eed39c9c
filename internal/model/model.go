// Package model содержит доменные сущности панели администратора цветочного магазина.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus описывает статус заказа в магазине.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusPreparing  OrderStatus = "preparing"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCanceled   OrderStatus = "canceled"
)

// OrderStatuses перечисляет все статусы заказа в порядке их прохождения.
var OrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusDelivering,
	OrderStatusCompleted,
	OrderStatusCanceled,
}

// DeliveryType описывает способ получения заказа.
type DeliveryType string

const (
	DeliveryTypePickup   DeliveryType = "pickup"
	DeliveryTypeDelivery DeliveryType = "delivery"
)

// PaymentStatus описывает статус оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusCanceled PaymentStatus = "canceled"
)

// OrderItem описывает одну позицию заказа.
type OrderItem struct {
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	BouquetID *int64          `json:"bouquet_id,omitempty"`
}

// Order описывает заказ покупателя так, как его возвращает API магазина.
type Order struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	Items          []OrderItem     `json:"items"`
	Status         OrderStatus     `json:"status"`
	DeliveryType   DeliveryType    `json:"delivery_type"`
	Address        string          `json:"address,omitempty"`
	DeliveryDate   string          `json:"delivery_date,omitempty"`
	DeliveryTime   string          `json:"delivery_time,omitempty"`
	RecipientName  string          `json:"recipient_name,omitempty"`
	RecipientPhone string          `json:"recipient_phone,omitempty"`
	Comment        string          `json:"comment,omitempty"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	BonusUsed      int64           `json:"bonus_used"`
	BonusEarned    int64           `json:"bonus_earned"`
	CreatedAt      time.Time       `json:"created_at"`
}

// OrderUpdate содержит изменяемые администратором поля заказа.
type OrderUpdate struct {
	DeliveryType   DeliveryType  `json:"delivery_type" validate:"omitempty,oneof=pickup delivery"`
	Address        string        `json:"address" validate:"max=500"`
	DeliveryDate   string        `json:"delivery_date" validate:"omitempty,datetime=2006-01-02"`
	DeliveryTime   string        `json:"delivery_time" validate:"max=32"`
	RecipientName  string        `json:"recipient_name" validate:"max=200"`
	RecipientPhone string        `json:"recipient_phone" validate:"omitempty,phone"`
	Comment        string        `json:"comment" validate:"max=1000"`
	PaymentStatus  PaymentStatus `json:"payment_status" validate:"omitempty,oneof=pending paid canceled"`
}

// Address описывает сохранённый адрес доставки пользователя.
type Address struct {
	ID      int64  `json:"id"`
	Address string `json:"address"`
	Label   string `json:"label,omitempty"`
}

// User представляет покупателя, зарегистрированного через мессенджер.
type User struct {
	ID           int64     `json:"id"`
	TelegramID   int64     `json:"telegram_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name,omitempty"`
	Username     string    `json:"username,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	BonusBalance int64     `json:"bonus_balance"`
	OrdersCount  int       `json:"orders_count"`
	CreatedAt    time.Time `json:"created_at"`
	Addresses    []Address `json:"addresses,omitempty"`
}

// FullName возвращает имя и фамилию пользователя через пробел.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserUpdate содержит изменяемые администратором поля пользователя.
type UserUpdate struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Phone     string `json:"phone" validate:"omitempty,phone"`
}

// Bouquet описывает букет из каталога.
type Bouquet struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Price       decimal.Decimal  `json:"price"`
	OldPrice    *decimal.Decimal `json:"old_price,omitempty"`
	Category    string           `json:"category,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	InStock     bool             `json:"in_stock"`
	IsHit       bool             `json:"is_hit"`
	IsNew       bool             `json:"is_new"`
	SortOrder   int              `json:"sort_order"`
	Images      []string         `json:"images,omitempty"`
}

// BouquetInput содержит поля для создания и редактирования букета.
type BouquetInput struct {
	Name        string           `json:"name" validate:"required,min=2,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	Price       decimal.Decimal  `json:"price" validate:"dpositive"`
	OldPrice    *decimal.Decimal `json:"old_price,omitempty" validate:"omitempty,dpositive"`
	Category    string           `json:"category" validate:"max=100"`
	Tags        []string         `json:"tags" validate:"dive,max=50"`
	InStock     bool             `json:"in_stock"`
	IsHit       bool             `json:"is_hit"`
	IsNew       bool             `json:"is_new"`
	SortOrder   int              `json:"sort_order" validate:"gte=0"`
	Images      []string         `json:"images" validate:"dive,url"`
}

// BouquetFlag описывает переключаемый булев признак букета.
type BouquetFlag string

const (
	BouquetFlagInStock BouquetFlag = "in_stock"
	BouquetFlagIsHit   BouquetFlag = "is_hit"
	BouquetFlagIsNew   BouquetFlag = "is_new"
)

// Valid сообщает, можно ли переключать признак.
func (f BouquetFlag) Valid() bool {
	return f == BouquetFlagInStock || f == BouquetFlagIsHit || f == BouquetFlagIsNew
}

// LoyaltyEntry описывает запись в журнале бонусных баллов пользователя.
type LoyaltyEntry struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Amount      int64     `json:"amount"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Loyalty содержит текущий бонусный баланс и историю операций.
type Loyalty struct {
	Balance int64          `json:"balance"`
	History []LoyaltyEntry `json:"history"`
}

// LoyaltyAdjustment описывает ручную корректировку баланса.
type LoyaltyAdjustment struct {
	Amount      int64  `json:"amount" validate:"required,ne=0"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

// ConstructorKind описывает раздел конструктора букетов.
type ConstructorKind string

const (
	ConstructorFlowers   ConstructorKind = "flowers"
	ConstructorGreenery  ConstructorKind = "greenery"
	ConstructorPackaging ConstructorKind = "packaging"
)

// ConstructorKinds перечисляет разделы конструктора.
var ConstructorKinds = []ConstructorKind{ConstructorFlowers, ConstructorGreenery, ConstructorPackaging}

// Valid сообщает, входит ли раздел в перечень известных.
func (k ConstructorKind) Valid() bool {
	for _, v := range ConstructorKinds {
		if v == k {
			return true
		}
	}
	return false
}

// ConstructorItem описывает компонент конструктора: цветок, зелень или упаковку.
type ConstructorItem struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	InStock bool            `json:"in_stock"`
}

// ConstructorItemInput содержит поля для создания и редактирования компонента.
type ConstructorItemInput struct {
	Name    string          `json:"name" validate:"required,max=200"`
	Price   decimal.Decimal `json:"price" validate:"dpositive"`
	InStock bool            `json:"in_stock"`
}

// Setting описывает пару ключ-значение настроек магазина.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Broadcast описывает рассылку сообщения всем пользователям.
type Broadcast struct {
	Text     string `json:"text" validate:"required,max=4096"`
	ImageURL string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// BroadcastResult содержит итог рассылки, посчитанный API магазина.
type BroadcastResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Admin описывает сотрудника, от имени которого открыта сессия.
type Admin struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// DashboardStats содержит сводку для главной страницы панели.
type DashboardStats struct {
	OrdersByStatus map[OrderStatus]int `json:"orders_by_status"`
	OrdersTotal    int                 `json:"orders_total"`
	Revenue        decimal.Decimal     `json:"revenue"`
	UsersTotal     int                 `json:"users_total"`
	BouquetsTotal  int                 `json:"bouquets_total"`
	LatestOrders   []Order             `json:"latest_orders"`
	RecentActions  []AuditEntry        `json:"recent_actions,omitempty"`
}

// AuditEntry описывает действие администратора, записанное в журнал аудита.
type AuditEntry struct {
	ID        uuid.UUID `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
