package service

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/flowershop-admin/internal/model"
	"github.com/mmeshcher/flowershop-admin/internal/upstream"
	"github.com/mmeshcher/flowershop-admin/internal/validation"
)

func bouquetsFixture() *stubAPI {
	api := newStubAPI()
	api.bouquets = []model.Bouquet{
		{ID: 2, Name: "Весенний", Category: "Тюльпаны", Price: rub("2500"), InStock: true, SortOrder: 2, Tags: []string{"весна"}},
		{ID: 1, Name: "Классика", Category: "Розы", Price: rub("4990.50"), InStock: true, IsHit: true, SortOrder: 1},
		{ID: 3, Name: "Нежность", Category: "розы", Price: rub("3200"), SortOrder: 3, Description: "Пионовидные РОЗЫ"},
	}
	return api
}

func TestListBouquets_SortedAndFiltered(t *testing.T) {
	svc, _ := newTestService(bouquetsFixture())
	ctx := adminCtx()

	all, err := svc.ListBouquets(ctx, BouquetFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{all[0].ID, all[1].ID, all[2].ID})

	roses, err := svc.ListBouquets(ctx, BouquetFilter{Category: "РОЗЫ"})
	require.NoError(t, err)
	assert.Len(t, roses, 2)

	found, err := svc.ListBouquets(ctx, BouquetFilter{Search: "ВЕСНА"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(2), found[0].ID)

	cats, err := svc.BouquetCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Розы", "Тюльпаны", "розы"}, cats)
}

func TestToggleBouquet_ChangesOnlyFlag(t *testing.T) {
	api := bouquetsFixture()
	svc, aud := newTestService(api)
	ctx := adminCtx()

	before, err := svc.ListBouquets(ctx, BouquetFilter{})
	require.NoError(t, err)
	detailBefore, err := svc.GetBouquet(ctx, 1)
	require.NoError(t, err)

	value, err := svc.ToggleBouquet(ctx, 1, model.BouquetFlagIsHit)
	require.NoError(t, err)
	assert.False(t, value)

	after, err := svc.ListBouquets(ctx, BouquetFilter{})
	require.NoError(t, err)
	detailAfter, err := svc.GetBouquet(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, api.count("ListBouquets"), "toggle must not re-fetch the list")
	assert.Equal(t, 1, api.count("GetBouquet"), "toggle must not re-fetch the card")

	want := before[0]
	want.IsHit = false
	if diff := cmp.Diff(want, after[0]); diff != "" {
		t.Errorf("list entry mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before[1:], after[1:]); diff != "" {
		t.Errorf("other bouquets changed (-want +got):\n%s", diff)
	}

	wantDetail := *detailBefore
	wantDetail.IsHit = false
	if diff := cmp.Diff(wantDetail, *detailAfter); diff != "" {
		t.Errorf("card mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, detailBefore.IsHit, "previous value must stay untouched")
	assert.Equal(t, []string{"florist bouquet.toggle bouquet#1"}, aud.actions)
}

func TestToggleBouquet_UpstreamErrorKeepsState(t *testing.T) {
	api := bouquetsFixture()
	api.flagErr = &upstream.APIError{StatusCode: 500, Message: "временная ошибка"}
	svc, _ := newTestService(api)
	ctx := adminCtx()

	_, err := svc.ToggleBouquet(ctx, 2, model.BouquetFlagInStock)
	require.Error(t, err)

	b, err := svc.GetBouquet(ctx, 2)
	require.NoError(t, err)
	assert.True(t, b.InStock)
}

func TestToggleBouquet_UnknownFlag(t *testing.T) {
	api := bouquetsFixture()
	svc, _ := newTestService(api)

	_, err := svc.ToggleBouquet(adminCtx(), 1, model.BouquetFlag("is_cheap"))
	assert.ErrorIs(t, err, ErrUnknownFlag)
	assert.Equal(t, 0, api.count("GetBouquet"))
	assert.Equal(t, 0, api.count("SetBouquetFlag"))
}

func TestCreateBouquet_Validation(t *testing.T) {
	api := bouquetsFixture()
	svc, _ := newTestService(api)

	_, err := svc.CreateBouquet(adminCtx(), model.BouquetInput{Name: "  ", Price: rub("-1")})

	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs, "name")
	assert.Contains(t, verrs, "price")
	assert.Equal(t, 0, api.count("CreateBouquet"))
}

func TestCreateBouquet_InvalidatesCatalog(t *testing.T) {
	api := bouquetsFixture()
	svc, aud := newTestService(api)
	ctx := adminCtx()

	_, err := svc.ListBouquets(ctx, BouquetFilter{})
	require.NoError(t, err)

	b, err := svc.CreateBouquet(ctx, model.BouquetInput{Name: "Летний", Price: rub("1990"), Tags: []string{" лето ", ""}})
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.ID)

	_, err = svc.ListBouquets(ctx, BouquetFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("ListBouquets"))
	assert.Len(t, aud.actions, 1)
}
