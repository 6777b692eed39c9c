package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/flowershop-admin/internal/model"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	d, ok := c.Lookup("bonus_percent")
	require.True(t, ok)
	assert.Equal(t, TypeInt, d.Type)

	_, ok = c.Lookup("nope")
	assert.False(t, ok)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("- key: a\n  type: int\n- key: a\n  type: int\n"))
	assert.ErrorContains(t, err, "duplicate key")

	_, err = Parse([]byte("- key: a\n  type: color\n"))
	assert.ErrorContains(t, err, "unknown type")

	_, err = Parse([]byte("- label: x\n  type: int\n"))
	assert.ErrorContains(t, err, "without key")
}

func TestMerge(t *testing.T) {
	c, err := Parse([]byte("- key: a\n  type: int\n- key: b\n  type: string\n"))
	require.NoError(t, err)

	fields := c.Merge([]model.Setting{
		{Key: "b", Value: "hello"},
		{Key: "zzz", Value: "ignored"},
	})

	require.Len(t, fields, 2)
	assert.Equal(t, "a", fields[0].Key)
	assert.Equal(t, "", fields[0].Value)
	assert.Equal(t, "b", fields[1].Key)
	assert.Equal(t, "hello", fields[1].Value)
}

func TestNormalize(t *testing.T) {
	c := Default()

	tests := []struct {
		name    string
		key     string
		value   string
		want    string
		wantErr bool
	}{
		{name: "int", key: "bonus_percent", value: " 5 ", want: "5"},
		{name: "int invalid", key: "bonus_percent", value: "5%", wantErr: true},
		{name: "decimal with comma", key: "delivery_price", value: "350,50", want: "350.5"},
		{name: "negative decimal", key: "delivery_price", value: "-1", wantErr: true},
		{name: "bool", key: "delivery_enabled", value: "on", want: "true"},
		{name: "bool empty", key: "delivery_enabled", value: "", want: "false"},
		{name: "time", key: "work_hours_start", value: "9:00", want: "09:00"},
		{name: "time invalid", key: "work_hours_start", value: "25:00", wantErr: true},
		{name: "text", key: "welcome_message", value: "Привет!", want: "Привет!"},
		{name: "unknown key", key: "secret", value: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Normalize(tt.key, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
