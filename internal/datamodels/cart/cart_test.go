package cart

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "3_7", Key(3, 7))
}

func TestAddAccumulates(t *testing.T) {
	c := New()
	price := decimal.NewFromFloat(49.90)

	c.Add(1, 2, 1, price, false)
	c.Add(1, 2, 2, price, false)

	line := c.Get(1, 2)
	require.NotNil(t, line)
	assert.Equal(t, int64(3), line.Quantity)
	assert.Equal(t, 1, c.LineCount())
	assert.Equal(t, int64(3), c.ItemCount())
}

func TestAddReplaceOverwritesQuantity(t *testing.T) {
	c := New()
	price := decimal.NewFromFloat(49.90)

	c.Add(1, 2, 5, price, false)
	c.Add(1, 2, 2, price, true)

	assert.Equal(t, int64(2), c.Get(1, 2).Quantity)
}

func TestAddKeepsPriceSnapshot(t *testing.T) {
	c := New()
	c.Add(1, 2, 1, decimal.NewFromFloat(100), false)
	// 后续加购传入的新价格不影响已有行的快照价
	c.Add(1, 2, 1, decimal.NewFromFloat(150), false)

	assert.True(t, c.Get(1, 2).Price.Equal(decimal.NewFromFloat(100)))
	assert.True(t, c.Total().Equal(decimal.NewFromFloat(200)))
}

func TestSameProductDifferentSizesAreSeparateLines(t *testing.T) {
	c := New()
	price := decimal.NewFromFloat(10)

	c.Add(1, 2, 1, price, false)
	c.Add(1, 3, 1, price, false)

	assert.Equal(t, 2, c.LineCount())
	assert.Equal(t, int64(2), c.ItemCount())
}

func TestTotal(t *testing.T) {
	c := New()
	c.Add(1, 2, 2, decimal.NewFromFloat(49.90), false)
	c.Add(3, 4, 1, decimal.NewFromFloat(0.10), false)

	assert.True(t, c.Total().Equal(decimal.NewFromFloat(99.90)), "got %s", c.Total())
}

func TestRemoveAndClear(t *testing.T) {
	c := New()
	price := decimal.NewFromFloat(10)
	c.Add(1, 2, 1, price, false)
	c.Add(3, 4, 1, price, false)

	c.Remove(1, 2)
	assert.Nil(t, c.Get(1, 2))
	assert.Equal(t, 1, c.LineCount())

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())
}

func TestJSONRoundTrip(t *testing.T) {
	c := New()
	c.Add(1, 2, 3, decimal.NewFromFloat(49.90), false)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var got Cart
	require.NoError(t, json.Unmarshal(data, &got))
	line := got.Get(1, 2)
	require.NotNil(t, line)
	assert.Equal(t, int64(3), line.Quantity)
	assert.True(t, line.Price.Equal(decimal.NewFromFloat(49.90)))
}
