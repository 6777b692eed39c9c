package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmeshcher/flowershop-admin/internal/model"
)

func constructorKey(kind model.ConstructorKind) string {
	return "constructor/" + string(kind)
}

func checkKind(kind model.ConstructorKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return nil
}

// ListConstructorItems возвращает компоненты раздела конструктора.
func (s *Service) ListConstructorItems(ctx context.Context, kind model.ConstructorKind) ([]model.ConstructorItem, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}

	items, err := load(ctx, s, constructorKey(kind), func(ctx context.Context) ([]model.ConstructorItem, error) {
		return s.api.ListConstructorItems(ctx, kind)
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return items, nil
}

// CreateConstructorItem добавляет компонент в раздел.
func (s *Service) CreateConstructorItem(ctx context.Context, kind model.ConstructorKind, in model.ConstructorItemInput) (*model.ConstructorItem, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	item, err := s.api.CreateConstructorItem(ctx, kind, in)
	if err != nil {
		return nil, fmt.Errorf("create %s item: %w", kind, err)
	}

	s.invalidate(constructorKey(kind) + "|")
	s.record(ctx, "constructor.create", fmt.Sprintf("%s#%d", kind, item.ID), item.Name)
	return item, nil
}

// UpdateConstructorItem сохраняет изменения компонента.
func (s *Service) UpdateConstructorItem(ctx context.Context, kind model.ConstructorKind, id int64, in model.ConstructorItemInput) (*model.ConstructorItem, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	item, err := s.api.UpdateConstructorItem(ctx, kind, id, in)
	if err != nil {
		return nil, fmt.Errorf("update %s item %d: %w", kind, id, err)
	}

	s.invalidate(constructorKey(kind) + "|")
	s.record(ctx, "constructor.update", fmt.Sprintf("%s#%d", kind, id), in.Name)
	return item, nil
}

// DeleteConstructorItem удаляет компонент.
func (s *Service) DeleteConstructorItem(ctx context.Context, kind model.ConstructorKind, id int64) error {
	if err := checkKind(kind); err != nil {
		return err
	}

	if err := s.api.DeleteConstructorItem(ctx, kind, id); err != nil {
		return fmt.Errorf("delete %s item %d: %w", kind, id, err)
	}

	s.invalidate(constructorKey(kind) + "|")
	s.record(ctx, "constructor.delete", fmt.Sprintf("%s#%d", kind, id), "")
	return nil
}

// ToggleConstructorStock инвертирует наличие компонента и исправляет
// закэшированный список на месте.
func (s *Service) ToggleConstructorStock(ctx context.Context, kind model.ConstructorKind, id int64) (bool, error) {
	items, err := s.ListConstructorItems(ctx, kind)
	if err != nil {
		return false, err
	}

	var (
		found   bool
		current bool
	)
	for _, it := range items {
		if it.ID == id {
			found, current = true, it.InStock
			break
		}
	}
	if !found {
		return false, fmt.Errorf("toggle %s item %d: %w", kind, id, ErrItemNotFound)
	}
	value := !current

	if err := s.api.SetConstructorItemStock(ctx, kind, id, value); err != nil {
		return false, fmt.Errorf("toggle %s item %d: %w", kind, id, err)
	}

	s.cache.UpdatePrefix(constructorKey(kind)+"|", func(v any) any {
		list, ok := v.([]model.ConstructorItem)
		if !ok {
			return v
		}
		patched := make([]model.ConstructorItem, len(list))
		copy(patched, list)
		for i := range patched {
			if patched[i].ID == id {
				patched[i].InStock = value
			}
		}
		return patched
	})

	s.record(ctx, "constructor.toggle", fmt.Sprintf("%s#%d", kind, id), fmt.Sprintf("in_stock=%t", value))
	return value, nil
}
