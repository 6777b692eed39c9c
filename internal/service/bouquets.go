package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mmeshcher/flowershop-admin/internal/model"
)

// BouquetFilter задаёт фильтр каталога букетов.
type BouquetFilter struct {
	Search   string
	Category string
}

// ListBouquets возвращает букеты в порядке сортировки каталога.
func (s *Service) ListBouquets(ctx context.Context, f BouquetFilter) ([]model.Bouquet, error) {
	bouquets, err := load(ctx, s, "bouquets", s.api.ListBouquets)
	if err != nil {
		return nil, fmt.Errorf("list bouquets: %w", err)
	}

	query := strings.ToLower(strings.TrimSpace(f.Search))
	result := make([]model.Bouquet, 0, len(bouquets))
	for _, b := range bouquets {
		if f.Category != "" && !strings.EqualFold(b.Category, f.Category) {
			continue
		}
		if query != "" && !bouquetMatches(b, query) {
			continue
		}
		result = append(result, b)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].SortOrder < result[j].SortOrder
	})
	return result, nil
}

func bouquetMatches(b model.Bouquet, query string) bool {
	if strings.Contains(strings.ToLower(b.Name), query) ||
		strings.Contains(strings.ToLower(b.Description), query) {
		return true
	}
	for _, t := range b.Tags {
		if strings.Contains(strings.ToLower(t), query) {
			return true
		}
	}
	return false
}

// BouquetCategories возвращает категории каталога без повторов.
func (s *Service) BouquetCategories(ctx context.Context) ([]string, error) {
	bouquets, err := s.ListBouquets(ctx, BouquetFilter{})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var categories []string
	for _, b := range bouquets {
		if b.Category == "" {
			continue
		}
		if _, ok := seen[b.Category]; ok {
			continue
		}
		seen[b.Category] = struct{}{}
		categories = append(categories, b.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

// GetBouquet возвращает букет по идентификатору.
func (s *Service) GetBouquet(ctx context.Context, id int64) (*model.Bouquet, error) {
	b, err := load(ctx, s, bouquetKey(id), func(ctx context.Context) (*model.Bouquet, error) {
		return s.api.GetBouquet(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("get bouquet %d: %w", id, err)
	}
	return b, nil
}

func bouquetKey(id int64) string {
	return fmt.Sprintf("bouquets/%d", id)
}

func normalizeBouquet(in *model.BouquetInput) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)

	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	in.Tags = tags
}

// CreateBouquet добавляет букет в каталог.
func (s *Service) CreateBouquet(ctx context.Context, in model.BouquetInput) (*model.Bouquet, error) {
	normalizeBouquet(&in)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	b, err := s.api.CreateBouquet(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create bouquet: %w", err)
	}

	s.invalidate("bouquets")
	s.record(ctx, "bouquet.create", fmt.Sprintf("bouquet#%d", b.ID), b.Name)
	return b, nil
}

// UpdateBouquet сохраняет изменения букета.
func (s *Service) UpdateBouquet(ctx context.Context, id int64, in model.BouquetInput) (*model.Bouquet, error) {
	normalizeBouquet(&in)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	b, err := s.api.UpdateBouquet(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update bouquet %d: %w", id, err)
	}

	s.invalidate("bouquets")
	s.record(ctx, "bouquet.update", fmt.Sprintf("bouquet#%d", id), in.Name)
	return b, nil
}

// DeleteBouquet удаляет букет.
func (s *Service) DeleteBouquet(ctx context.Context, id int64) error {
	if err := s.api.DeleteBouquet(ctx, id); err != nil {
		return fmt.Errorf("delete bouquet %d: %w", id, err)
	}

	s.invalidate("bouquets")
	s.record(ctx, "bouquet.delete", fmt.Sprintf("bouquet#%d", id), "")
	return nil
}

// ToggleBouquet инвертирует признак букета и возвращает новое значение.
// Закэшированные список и карточка исправляются на месте без повторной
// загрузки, меняется только переключённый признак.
func (s *Service) ToggleBouquet(ctx context.Context, id int64, flag model.BouquetFlag) (bool, error) {
	if !flag.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownFlag, flag)
	}

	b, err := s.GetBouquet(ctx, id)
	if err != nil {
		return false, err
	}

	current, err := flagValue(b, flag)
	if err != nil {
		return false, err
	}
	value := !current

	if err := s.api.SetBouquetFlag(ctx, id, flag, value); err != nil {
		return false, fmt.Errorf("toggle %s of bouquet %d: %w", flag, id, err)
	}

	s.cache.UpdatePrefix("bouquets|", func(v any) any {
		list, ok := v.([]model.Bouquet)
		if !ok {
			return v
		}
		patched := make([]model.Bouquet, len(list))
		copy(patched, list)
		for i := range patched {
			if patched[i].ID == id {
				_ = setFlag(&patched[i], flag, value)
			}
		}
		return patched
	})
	s.cache.UpdatePrefix(bouquetKey(id)+"|", func(v any) any {
		cur, ok := v.(*model.Bouquet)
		if !ok {
			return v
		}
		patched := *cur
		_ = setFlag(&patched, flag, value)
		return &patched
	})

	s.record(ctx, "bouquet.toggle", fmt.Sprintf("bouquet#%d", id), fmt.Sprintf("%s=%t", flag, value))
	return value, nil
}

func flagValue(b *model.Bouquet, flag model.BouquetFlag) (bool, error) {
	switch flag {
	case model.BouquetFlagInStock:
		return b.InStock, nil
	case model.BouquetFlagIsHit:
		return b.IsHit, nil
	case model.BouquetFlagIsNew:
		return b.IsNew, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownFlag, flag)
}

func setFlag(b *model.Bouquet, flag model.BouquetFlag, value bool) error {
	switch flag {
	case model.BouquetFlagInStock:
		b.InStock = value
	case model.BouquetFlagIsHit:
		b.IsHit = value
	case model.BouquetFlagIsNew:
		b.IsNew = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFlag, flag)
	}
	return nil
}
