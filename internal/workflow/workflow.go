// Package workflow содержит таблицу допустимых переходов статусов заказа.
package workflow

import "github.com/mmeshcher/flowershop-admin/internal/model"

var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusNew:        {model.OrderStatusConfirmed, model.OrderStatusCanceled},
	model.OrderStatusConfirmed:  {model.OrderStatusPreparing, model.OrderStatusCanceled},
	model.OrderStatusPreparing:  {model.OrderStatusDelivering, model.OrderStatusCanceled},
	model.OrderStatusDelivering: {model.OrderStatusCompleted, model.OrderStatusCanceled},
	model.OrderStatusCompleted:  {},
	model.OrderStatusCanceled:   {},
}

var labels = map[model.OrderStatus]string{
	model.OrderStatusNew:        "Новый",
	model.OrderStatusConfirmed:  "Подтверждён",
	model.OrderStatusPreparing:  "Собирается",
	model.OrderStatusDelivering: "Доставляется",
	model.OrderStatusCompleted:  "Выполнен",
	model.OrderStatusCanceled:   "Отменён",
}

var actionLabels = map[model.OrderStatus]string{
	model.OrderStatusConfirmed:  "Подтвердить",
	model.OrderStatusPreparing:  "Начать сборку",
	model.OrderStatusDelivering: "Передать в доставку",
	model.OrderStatusCompleted:  "Завершить",
	model.OrderStatusCanceled:   "Отменить",
}

// NoActionsLabel выводится вместо кнопок, если переходов нет.
const NoActionsLabel = "Нет доступных действий"

// Action описывает кнопку перехода заказа в следующий статус.
type Action struct {
	Target model.OrderStatus
	Label  string
}

// AllowedNext возвращает статусы, в которые можно перевести заказ из текущего.
// Для конечных и неизвестных статусов возвращается пустой срез.
func AllowedNext(current model.OrderStatus) []model.OrderStatus {
	next := transitions[current]
	res := make([]model.OrderStatus, len(next))
	copy(res, next)
	return res
}

// CanTransition проверяет, допустим ли переход from -> to.
func CanTransition(from, to model.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, что из статуса нет переходов.
func IsTerminal(status model.OrderStatus) bool {
	return len(transitions[status]) == 0
}

// IsKnown сообщает, входит ли статус в перечень статусов заказа.
func IsKnown(status model.OrderStatus) bool {
	_, ok := transitions[status]
	return ok
}

// Label возвращает название статуса для отображения.
func Label(status model.OrderStatus) string {
	if l, ok := labels[status]; ok {
		return l
	}
	return string(status)
}

// Actions возвращает кнопки переходов для заказа в указанном статусе.
func Actions(current model.OrderStatus) []Action {
	next := transitions[current]
	res := make([]Action, 0, len(next))
	for _, s := range next {
		res = append(res, Action{Target: s, Label: actionLabels[s]})
	}
	return res
}
