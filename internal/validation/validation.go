// Package validation содержит проверку форм, которые администратор отправляет в API магазина.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Errors содержит ошибки проверки по именам полей формы.
type Errors map[string]string

// Error возвращает все ошибки одной строкой в стабильном порядке.
func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// Validator проверяет структуры по тегам validate.
type Validator struct {
	validate *validator.Validate
}

// New создаёт Validator с правилами для телефонов и денежных сумм.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsValidPhone(fl.Field().String())
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("dpositive", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return d.IsPositive()
	})

	return &Validator{validate: v}
}

// Struct проверяет структуру и возвращает Errors, если какие-то поля не прошли проверку.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	res := make(Errors, len(verrs))
	for _, fe := range verrs {
		res[fe.Field()] = message(fe)
	}
	return res
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "ne":
		return "значение не может быть равно " + fe.Param()
	case "max":
		return "слишком длинное значение, максимум " + fe.Param()
	case "min":
		return "слишком короткое значение, минимум " + fe.Param()
	case "gte":
		return "значение должно быть не меньше " + fe.Param()
	case "oneof":
		return "допустимые значения: " + fe.Param()
	case "phone":
		return "некорректный номер телефона"
	case "dpositive":
		return "сумма должна быть больше нуля"
	case "url":
		return "некорректная ссылка"
	case "datetime":
		return "дата в формате " + fe.Param()
	default:
		return "некорректное значение"
	}
}

// IsValidPhone проверяет номер телефона: допускается ведущий +, цифры,
// пробелы, дефисы и скобки, цифр должно быть от 10 до 15.
func IsValidPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return false
	}

	digits := 0
	for i, ch := range phone {
		switch {
		case unicode.IsDigit(ch):
			digits++
		case ch == '+' && i == 0:
		case ch == ' ' || ch == '-' || ch == '(' || ch == ')':
		default:
			return false
		}
	}

	return digits >= 10 && digits <= 15
}

// NormalizePhone оставляет в номере только цифры, чтобы сравнивать номера
// независимо от форматирования.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, ch := range phone {
		if unicode.IsDigit(ch) {
			b.WriteRune(ch)
		}
	}
	return b.String()
}
