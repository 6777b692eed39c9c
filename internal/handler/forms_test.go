package handler

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPath(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "/orders?status=new", want: "/orders?status=new"},
		{raw: "/orders/7", want: "/orders/7"},
		{raw: "", want: "/fallback"},
		{raw: "orders", want: "/fallback"},
		{raw: "//evil.example/x", want: "/fallback"},
		{raw: "/\\evil.example", want: "/fallback"},
		{raw: "https://evil.example/", want: "/fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, localPath(tt.raw, "/fallback"))
		})
	}
}

func TestParseMoney(t *testing.T) {
	d, err := parseMoney(" 1500,50 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("1500.5")))

	_, err = parseMoney("много")
	assert.Error(t, err)
}

func TestBouquetFormInput(t *testing.T) {
	f := bouquetForm{
		Name:      "Пионы",
		Price:     "3000",
		OldPrice:  "",
		Tags:      "весна, , пионы",
		SortOrder: "x",
		Images:    "https://cdn.example/1.jpg\n\n https://cdn.example/2.jpg ",
	}

	in, errs := f.input()
	assert.Equal(t, msgBadNumber, errs["sort_order"])
	assert.NotContains(t, errs, "price")
	assert.Nil(t, in.OldPrice)
	assert.Equal(t, []string{"весна", "пионы"}, in.Tags)
	assert.Equal(t, []string{"https://cdn.example/1.jpg", "https://cdn.example/2.jpg"}, in.Images)
}
