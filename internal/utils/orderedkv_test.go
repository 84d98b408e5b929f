package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedKVMapKeepsInsertionOrder(t *testing.T) {
	var om OrderedKVMap[*string]
	a, c := "a", "c"
	om.Set("11:00", &c)
	om.Set("07:00", &a)
	om.Set("09:00", nil)

	out, err := json.Marshal(om)
	require.NoError(t, err)
	assert.Equal(t, `{"11:00":"c","07:00":"a","09:00":null}`, string(out))

	om.SortBy(func(key string) int {
		return map[string]int{"07:00": 0, "09:00": 1, "11:00": 2}[key]
	})
	out, err = json.Marshal(om)
	require.NoError(t, err)
	assert.Equal(t, `{"07:00":"a","09:00":null,"11:00":"c"}`, string(out))

	v, ok := om.Get("11:00")
	require.True(t, ok)
	assert.Equal(t, "c", *v)
}

func TestOrderedKVMapSetOverwritesInPlace(t *testing.T) {
	var om OrderedKVMap[int]
	om.Set("x", 1)
	om.Set("y", 2)
	om.Set("x", 3)

	assert.Equal(t, []string{"x", "y"}, om.Keys())
	assert.Equal(t, 2, om.Len())
	v, _ := om.Get("x")
	assert.Equal(t, 3, v)
}

func TestOrderedKVMapRoundTripPreservesOrder(t *testing.T) {
	var om OrderedKVMap[map[string]string]
	require.NoError(t, json.Unmarshal([]byte(`{"b": {"t": "1"}, "a": null, "c": {"t": "3"}}`), &om))

	assert.Equal(t, []string{"b", "a", "c"}, om.Keys())
	a, ok := om.Get("a")
	assert.True(t, ok)
	assert.Nil(t, a)

	assert.Error(t, json.Unmarshal([]byte(`[1, 2]`), &om))
}
