package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/flowershop-admin/internal/model"
	"github.com/mmeshcher/flowershop-admin/internal/validation"
)

const msgBadNumber = "введите число"

func parseMoney(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."))
}

func checked(r *http.Request, name string) bool {
	v := r.PostFormValue(name)
	return v != "" && v != "false" && v != "0"
}

// localPath возвращает адрес для возврата после формы, только внутри панели.
func localPath(raw, fallback string) string {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, "\\") {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	return raw
}

// bouquetForm хранит введённые значения формы букета для повторного показа.
type bouquetForm struct {
	Name        string
	Description string
	Price       string
	OldPrice    string
	Category    string
	Tags        string
	SortOrder   string
	Images      string
	InStock     bool
	IsHit       bool
	IsNew       bool
}

func bouquetFormOf(b *model.Bouquet) bouquetForm {
	f := bouquetForm{
		Name:        b.Name,
		Description: b.Description,
		Price:       b.Price.String(),
		Category:    b.Category,
		Tags:        strings.Join(b.Tags, ", "),
		SortOrder:   strconv.Itoa(b.SortOrder),
		Images:      strings.Join(b.Images, "\n"),
		InStock:     b.InStock,
		IsHit:       b.IsHit,
		IsNew:       b.IsNew,
	}
	if b.OldPrice != nil {
		f.OldPrice = b.OldPrice.String()
	}
	return f
}

func readBouquetForm(r *http.Request) bouquetForm {
	return bouquetForm{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Price:       r.PostFormValue("price"),
		OldPrice:    r.PostFormValue("old_price"),
		Category:    r.PostFormValue("category"),
		Tags:        r.PostFormValue("tags"),
		SortOrder:   r.PostFormValue("sort_order"),
		Images:      r.PostFormValue("images"),
		InStock:     checked(r, "in_stock"),
		IsHit:       checked(r, "is_hit"),
		IsNew:       checked(r, "is_new"),
	}
}

// input разбирает числовые поля формы. Ошибки разбора возвращаются в том же
// виде, что и ошибки проверки.
func (f bouquetForm) input() (model.BouquetInput, validation.Errors) {
	errs := validation.Errors{}
	in := model.BouquetInput{
		Name:        f.Name,
		Description: f.Description,
		Category:    f.Category,
		InStock:     f.InStock,
		IsHit:       f.IsHit,
		IsNew:       f.IsNew,
	}

	price, err := parseMoney(f.Price)
	if err != nil {
		errs["price"] = msgBadNumber
	}
	in.Price = price

	if strings.TrimSpace(f.OldPrice) != "" {
		old, err := parseMoney(f.OldPrice)
		if err != nil {
			errs["old_price"] = msgBadNumber
		} else {
			in.OldPrice = &old
		}
	}

	if s := strings.TrimSpace(f.SortOrder); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			errs["sort_order"] = msgBadNumber
		}
		in.SortOrder = n
	}

	for _, t := range strings.Split(f.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			in.Tags = append(in.Tags, t)
		}
	}
	for _, line := range strings.Split(f.Images, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			in.Images = append(in.Images, line)
		}
	}

	if len(errs) == 0 {
		return in, nil
	}
	return in, errs
}

// itemForm хранит введённые значения формы компонента конструктора.
type itemForm struct {
	Name    string
	Price   string
	InStock bool
}

func readItemForm(r *http.Request) itemForm {
	return itemForm{
		Name:    r.PostFormValue("name"),
		Price:   r.PostFormValue("price"),
		InStock: checked(r, "in_stock"),
	}
}

func (f itemForm) input() (model.ConstructorItemInput, validation.Errors) {
	price, err := parseMoney(f.Price)
	if err != nil {
		return model.ConstructorItemInput{}, validation.Errors{"price": msgBadNumber}
	}
	return model.ConstructorItemInput{Name: f.Name, Price: price, InStock: f.InStock}, nil
}

func orderUpdateOf(o *model.Order) model.OrderUpdate {
	return model.OrderUpdate{
		DeliveryType:   o.DeliveryType,
		Address:        o.Address,
		DeliveryDate:   o.DeliveryDate,
		DeliveryTime:   o.DeliveryTime,
		RecipientName:  o.RecipientName,
		RecipientPhone: o.RecipientPhone,
		Comment:        o.Comment,
		PaymentStatus:  o.PaymentStatus,
	}
}

func readOrderUpdate(r *http.Request) model.OrderUpdate {
	return model.OrderUpdate{
		DeliveryType:   model.DeliveryType(r.PostFormValue("delivery_type")),
		Address:        strings.TrimSpace(r.PostFormValue("address")),
		DeliveryDate:   strings.TrimSpace(r.PostFormValue("delivery_date")),
		DeliveryTime:   strings.TrimSpace(r.PostFormValue("delivery_time")),
		RecipientName:  strings.TrimSpace(r.PostFormValue("recipient_name")),
		RecipientPhone: r.PostFormValue("recipient_phone"),
		Comment:        strings.TrimSpace(r.PostFormValue("comment")),
		PaymentStatus:  model.PaymentStatus(r.PostFormValue("payment_status")),
	}
}
