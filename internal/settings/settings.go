// Package settings описывает фиксированный перечень настроек магазина.
package settings

import (
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mmeshcher/flowershop-admin/internal/model"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Type описывает тип значения настройки.
type Type string

const (
	TypeString  Type = "string"
	TypeText    Type = "text"
	TypeInt     Type = "int"
	TypeDecimal Type = "decimal"
	TypeBool    Type = "bool"
	TypeTime    Type = "time"
)

// ErrUnknownKey возвращается для ключа вне перечня.
var ErrUnknownKey = errors.New("unknown setting key")

// Definition описывает одну настройку из перечня.
type Definition struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
	Type  Type   `yaml:"type" json:"type"`
}

// Field описывает настройку с текущим значением для отображения в форме.
type Field struct {
	Definition
	Value string `json:"value"`
}

// Catalog хранит упорядоченный перечень настроек.
type Catalog struct {
	defs  []Definition
	index map[string]int
}

// Parse разбирает перечень настроек из YAML.
func Parse(data []byte) (*Catalog, error) {
	var defs []Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse settings catalog: %w", err)
	}

	c := &Catalog{defs: defs, index: make(map[string]int, len(defs))}
	for i, d := range defs {
		if d.Key == "" {
			return nil, fmt.Errorf("settings catalog: entry %d without key", i)
		}
		if _, dup := c.index[d.Key]; dup {
			return nil, fmt.Errorf("settings catalog: duplicate key %q", d.Key)
		}
		switch d.Type {
		case TypeString, TypeText, TypeInt, TypeDecimal, TypeBool, TypeTime:
		default:
			return nil, fmt.Errorf("settings catalog: key %q has unknown type %q", d.Key, d.Type)
		}
		c.index[d.Key] = i
	}
	return c, nil
}

// Default возвращает встроенный перечень настроек магазина.
func Default() *Catalog {
	c, err := Parse(catalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Definitions возвращает копию перечня.
func (c *Catalog) Definitions() []Definition {
	res := make([]Definition, len(c.defs))
	copy(res, c.defs)
	return res
}

// Lookup возвращает описание настройки по ключу.
func (c *Catalog) Lookup(key string) (Definition, bool) {
	i, ok := c.index[key]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Merge сопоставляет значения из API с перечнем: в результат попадают все
// настройки перечня в его порядке, неизвестные ключи отбрасываются.
func (c *Catalog) Merge(values []model.Setting) []Field {
	byKey := make(map[string]string, len(values))
	for _, v := range values {
		byKey[v.Key] = v.Value
	}

	res := make([]Field, 0, len(c.defs))
	for _, d := range c.defs {
		res = append(res, Field{Definition: d, Value: byKey[d.Key]})
	}
	return res
}

// Normalize проверяет значение по типу настройки и приводит его к каноническому виду.
func (c *Catalog) Normalize(key, value string) (string, error) {
	d, ok := c.Lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	value = strings.TrimSpace(value)
	switch d.Type {
	case TypeInt:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return "", fmt.Errorf("%s: ожидается целое число", d.Label)
		}
		return strconv.FormatInt(n, 10), nil
	case TypeDecimal:
		v, err := decimal.NewFromString(strings.ReplaceAll(value, ",", "."))
		if err != nil {
			return "", fmt.Errorf("%s: ожидается число", d.Label)
		}
		if v.IsNegative() {
			return "", fmt.Errorf("%s: значение не может быть отрицательным", d.Label)
		}
		return v.String(), nil
	case TypeBool:
		switch strings.ToLower(value) {
		case "true", "1", "on", "yes", "да":
			return "true", nil
		case "false", "0", "off", "no", "нет", "":
			return "false", nil
		}
		return "", fmt.Errorf("%s: ожидается да или нет", d.Label)
	case TypeTime:
		t, err := time.Parse("15:04", value)
		if err != nil {
			return "", fmt.Errorf("%s: время в формате ЧЧ:ММ", d.Label)
		}
		return t.Format("15:04"), nil
	default:
		return value, nil
	}
}
