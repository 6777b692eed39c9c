package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/flowershop-admin/internal/model"
	"github.com/mmeshcher/flowershop-admin/internal/settings"
	"github.com/mmeshcher/flowershop-admin/internal/validation"
)

func settingsFixture() *stubAPI {
	api := newStubAPI()
	api.settings = []model.Setting{
		{Key: "shop_name", Value: "Флора"},
		{Key: "bonus_percent", Value: "5"},
		{Key: "delivery_enabled", Value: "true"},
		{Key: "legacy_flag", Value: "1"},
	}
	return api
}

func TestListSettings_MergesCatalog(t *testing.T) {
	svc, _ := newTestService(settingsFixture())

	fields, err := svc.ListSettings(adminCtx())
	require.NoError(t, err)
	require.Len(t, fields, len(settings.Default().Definitions()))

	byKey := make(map[string]string)
	for _, f := range fields {
		byKey[f.Key] = f.Value
	}
	assert.Equal(t, "Флора", byKey["shop_name"])
	assert.Equal(t, "", byKey["welcome_message"])
	assert.NotContains(t, byKey, "legacy_flag")
}

func TestUpdateSettings_SendsOnlyChanged(t *testing.T) {
	api := settingsFixture()
	svc, aud := newTestService(api)

	n, err := svc.UpdateSettings(adminCtx(), map[string]string{
		"shop_name":        "Флора",
		"bonus_percent":    " 7 ",
		"delivery_enabled": "on",
		"delivery_price":   "350,50",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []model.Setting{
		{Key: "bonus_percent", Value: "7"},
		{Key: "delivery_price", Value: "350.5"},
	}, api.saved)
	assert.Len(t, aud.actions, 2)
}

func TestUpdateSettings_RejectsBadValuesBeforeSending(t *testing.T) {
	api := settingsFixture()
	svc, _ := newTestService(api)

	_, err := svc.UpdateSettings(adminCtx(), map[string]string{
		"bonus_percent":    "пять",
		"work_hours_start": "25:00",
		"shop_name":        "Новая Флора",
	})

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "bonus_percent")
	assert.Contains(t, verrs, "work_hours_start")
	assert.Empty(t, api.saved)
}

func TestUpdateSetting_UnknownKey(t *testing.T) {
	api := settingsFixture()
	svc, _ := newTestService(api)

	err := svc.UpdateSetting(adminCtx(), "legacy_flag", "0")
	assert.ErrorIs(t, err, settings.ErrUnknownKey)
	assert.Equal(t, 0, api.count("UpdateSetting"))
}
