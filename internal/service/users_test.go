package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/flowershop-admin/internal/model"
)

func usersFixture() *stubAPI {
	api := newStubAPI()
	api.users = []model.User{
		{ID: 1, FirstName: "Анна", LastName: "Смирнова", Username: "anna_flowers", Phone: "+7 999 111-22-33"},
		{ID: 2, FirstName: "Борис", Username: "BorisK", Phone: "+79990001122"},
		{ID: 3, FirstName: "Вера", LastName: "Ан"},
	}
	return api
}

func TestListUsers_SearchIgnoresCase(t *testing.T) {
	svc, _ := newTestService(usersFixture())
	ctx := adminCtx()

	tests := []struct {
		name   string
		search string
		want   []int64
	}{
		{name: "empty", search: "", want: []int64{1, 2, 3}},
		{name: "first name mixed case", search: "аННа", want: []int64{1}},
		{name: "last name upper", search: "СМИРНОВА", want: []int64{1}},
		{name: "full name", search: "анна смир", want: []int64{1}},
		{name: "username with at", search: "@borisk", want: []int64{2}},
		{name: "phone formatted", search: "111-22", want: []int64{1}},
		{name: "phone digits", search: "9990001122", want: []int64{2}},
		{name: "two phone digits", search: "33", want: []int64{1}},
		{name: "short fragment in several phones", search: "22", want: []int64{1, 2}},
		{name: "substring in several", search: "ан", want: []int64{1, 3}},
		{name: "no match", search: "Григорий", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListUsers(ctx, tt.search)
			require.NoError(t, err)
			var ids []int64
			for _, u := range got {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestUpdateUser_InvalidatesList(t *testing.T) {
	api := usersFixture()
	svc, aud := newTestService(api)
	ctx := adminCtx()

	_, err := svc.ListUsers(ctx, "")
	require.NoError(t, err)

	u, err := svc.UpdateUser(ctx, 2, model.UserUpdate{FirstName: " Борис ", Phone: "+7 999 000-11-22"})
	require.NoError(t, err)
	assert.Equal(t, "Борис", u.FirstName)

	_, err = svc.ListUsers(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("ListUsers"))
	assert.Equal(t, []string{"florist user.update user#2"}, aud.actions)
}

func TestUpdateUser_RequiresFirstName(t *testing.T) {
	api := usersFixture()
	svc, _ := newTestService(api)

	_, err := svc.UpdateUser(adminCtx(), 2, model.UserUpdate{FirstName: " "})
	require.Error(t, err)
	assert.Equal(t, 0, api.count("UpdateUser"))
}

func TestUserOrders(t *testing.T) {
	api := ordersFixture()
	svc, _ := newTestService(api)

	orders, err := svc.UserOrders(adminCtx(), 10)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}
