package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/flowershop-admin/internal/model"
)

func TestMe_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/auth/me" {
			t.Fatalf("path = %s, want /api/auth/me", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("authorization = %q, want Bearer secret", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.Admin{ID: 7, Username: "florist"})
	}))
	defer ts.Close()

	client := NewClient(ts.URL+"/api/", time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	admin, err := client.Me(ctx, "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(7), admin.ID)
	assert.Equal(t, "florist", admin.Username)
}

func TestLogin_AcceptsBothTokenFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Fatalf("login must not carry a bearer token")
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Username != "admin" || req.Password != "pass" {
			t.Fatalf("unexpected credentials: %+v", req)
		}
		_, _ = w.Write([]byte(`{"token":"abc"}`))
	}))
	defer ts.Close()

	token, err := NewClient(ts.URL, time.Second).Login(context.Background(), "admin", "pass")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestDo_WithoutToken(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second)

	_, err := client.ListOrders(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestDo_UnauthorizedMapsToSentinel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Not authenticated"}`))
	}))
	defer ts.Close()

	ctx := WithToken(context.Background(), "expired")
	_, err := NewClient(ts.URL, time.Second).ListUsers(ctx)

	assert.ErrorIs(t, err, ErrUnauthorized)
	msg, ok := Message(err)
	assert.True(t, ok)
	assert.Equal(t, "Not authenticated", msg)
}

func TestDo_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	ctx := WithToken(context.Background(), "t")
	_, err := NewClient(ts.URL, time.Second).GetBouquet(ctx, 5)

	assert.ErrorIs(t, err, ErrNotFound)
	_, ok := Message(err)
	assert.False(t, ok)
}

func TestUpdateOrderStatus_RejectionMessageVerbatim(t *testing.T) {
	const rejection = "Нельзя перевести заказ #12 из статуса completed в new"

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/orders/12/status" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Status != model.OrderStatusConfirmed {
			t.Fatalf("status = %s, want confirmed", req.Status)
		}
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": rejection})
	}))
	defer ts.Close()

	ctx := WithToken(context.Background(), "t")
	err := NewClient(ts.URL, time.Second).UpdateOrderStatus(ctx, 12, model.OrderStatusConfirmed)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, rejection, apiErr.Message)
}

func TestListOrders_AcceptsWrappedList(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("status"); got != "new" {
			t.Fatalf("status query = %q, want new", got)
		}
		_, _ = w.Write([]byte(`{"items":[{"id":1,"status":"new","total_price":"1500.50"}],"total":1}`))
	}))
	defer ts.Close()

	ctx := WithToken(context.Background(), "t")
	orders, err := NewClient(ts.URL, time.Second).ListOrders(ctx, model.OrderStatusNew)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "1500.5", orders[0].TotalPrice.String())
}

func TestDo_CanceledContext(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(WithToken(context.Background(), "t"))
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewClient(ts.URL, 5*time.Second).ListBouquets(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "detail", body: `{"detail":"Недостаточно баллов"}`, want: "Недостаточно баллов"},
		{name: "error", body: `{"error":"invalid status"}`, want: "invalid status"},
		{name: "message", body: `{"message":"boom"}`, want: "boom"},
		{name: "validation list", body: `{"detail":[{"msg":"field required"},{"msg":"too long"}]}`, want: "field required; too long"},
		{name: "plain text", body: "  Bad Gateway \n", want: "Bad Gateway"},
		{name: "empty", body: "", want: ""},
		{name: "object without message", body: ` {"code":1} `, want: `{"code":1}`},
		{name: "empty message field", body: `{"message":""}`, want: `{"message":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage([]byte(tt.body)))
		})
	}
}
