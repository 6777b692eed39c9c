package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/flowershop-admin/internal/model"
	"github.com/mmeshcher/flowershop-admin/internal/settings"
	"github.com/mmeshcher/flowershop-admin/internal/validation"
)

// ListSettings возвращает все настройки перечня с текущими значениями магазина.
func (s *Service) ListSettings(ctx context.Context) ([]settings.Field, error) {
	values, err := load(ctx, s, "settings", s.api.ListSettings)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return s.catalog.Merge(values), nil
}

// UpdateSetting сохраняет одну настройку после проверки по перечню.
func (s *Service) UpdateSetting(ctx context.Context, key, value string) error {
	normalized, err := s.catalog.Normalize(key, value)
	if err != nil {
		if errors.Is(err, settings.ErrUnknownKey) {
			return err
		}
		return validation.Errors{key: err.Error()}
	}

	if err := s.api.UpdateSetting(ctx, key, normalized); err != nil {
		return fmt.Errorf("update setting %s: %w", key, err)
	}

	s.invalidate("settings")
	s.record(ctx, "settings.update", "setting:"+key, normalized)
	return nil
}

// UpdateSettings сохраняет форму настроек целиком. Все значения проверяются до
// отправки, в магазин уходят только изменённые. Возвращает число сохранённых.
func (s *Service) UpdateSettings(ctx context.Context, values map[string]string) (int, error) {
	fields, err := s.ListSettings(ctx)
	if err != nil {
		return 0, err
	}
	current := make(map[string]string, len(fields))
	for _, f := range fields {
		current[f.Key] = f.Value
	}

	changed := make([]model.Setting, 0, len(values))
	verrs := validation.Errors{}
	for _, f := range fields {
		raw, ok := values[f.Key]
		if !ok || strings.TrimSpace(raw) == current[f.Key] {
			continue
		}
		normalized, err := s.catalog.Normalize(f.Key, raw)
		if err != nil {
			verrs[f.Key] = err.Error()
			continue
		}
		if normalized != current[f.Key] {
			changed = append(changed, model.Setting{Key: f.Key, Value: normalized})
		}
	}
	for key := range values {
		if _, ok := current[key]; !ok {
			return 0, fmt.Errorf("%w: %s", settings.ErrUnknownKey, key)
		}
	}
	if len(verrs) > 0 {
		return 0, verrs
	}

	saved := 0
	defer func() {
		if saved > 0 {
			s.invalidate("settings")
		}
	}()
	for _, st := range changed {
		if err := s.api.UpdateSetting(ctx, st.Key, st.Value); err != nil {
			return saved, fmt.Errorf("update setting %s: %w", st.Key, err)
		}
		saved++
		s.record(ctx, "settings.update", "setting:"+st.Key, st.Value)
	}
	return saved, nil
}
