package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	want := time.Date(2021, 3, 15, 9, 53, 0, 0, time.UTC)

	testCases := []struct {
		name  string
		input string
		want  time.Time
	}{
		{name: "RFC3339", input: `"2021-03-15T09:53:00Z"`, want: want},
		{name: "RFC1123", input: `"Mon, 15 Mar 2021 09:53:00 GMT"`, want: want},
		{name: "Naive ISO", input: `"2021-03-15T09:53:00"`, want: want},
		{name: "Epoch millis", input: `1615801980000`, want: want},
		{name: "Null", input: `null`, want: time.Time{}},
		{name: "Empty string", input: `""`, want: time.Time{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tc.input), &ts))
			assert.True(t, tc.want.Equal(ts.Time), "got %v", ts.Time)
		})
	}

	t.Run("Garbage", func(t *testing.T) {
		var ts Timestamp
		assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	})
}

func TestTimestamp_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	out, err = json.Marshal(NewTimestamp(time.Date(2021, 3, 15, 9, 53, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, `"2021-03-15T09:53:00Z"`, string(out))
}

func TestParams_Validate(t *testing.T) {
	t.Run("Scalars", func(t *testing.T) {
		p := Params{"sma": float64(20), "name": "fast", "enabled": true, "window": 3}
		require.NoError(t, p.Validate())
		assert.Equal(t, float64(3), p["window"])
	})

	t.Run("Nested", func(t *testing.T) {
		p := Params{"bad": map[string]any{"x": 1}}
		err := p.Validate()
		assert.True(t, errors.Is(err, ErrInvalidParam))
	})

	t.Run("Null", func(t *testing.T) {
		p := Params{"missing": nil}
		assert.ErrorIs(t, p.Validate(), ErrInvalidParam)
	})
}

func TestPipelineParams_Validate(t *testing.T) {
	valid := PipelineParams{
		Name:       "btc bot",
		Symbol:     "BTCUSDT",
		Strategy:   "MovingAverage",
		Allocation: decimal.NewFromInt(100),
		Leverage:   2,
		Params:     Params{"sma": float64(10)},
	}
	assert.NoError(t, valid.Validate())

	missingSymbol := valid
	missingSymbol.Symbol = ""
	assert.Error(t, missingSymbol.Validate())

	negative := valid
	negative.Allocation = decimal.NewFromInt(-1)
	assert.Error(t, negative.Validate())
}

func TestRawTrade_Decode(t *testing.T) {
	body := `{"trades": [{"id": 7, "symbol": "BTCUSDT", "side": "LONG", "amount": "0.5",
		"openPrice": 100, "closePrice": null, "openTime": "2021-03-15T09:53:00Z",
		"closeTime": null, "profitLoss": null, "mock": true}]}`

	var resp TradesResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.Len(t, resp.Trades, 1)

	raw := resp.Trades[0]
	assert.Equal(t, int64(7), raw.ID)
	assert.True(t, raw.Amount.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, raw.OpenPrice.Equal(decimal.NewFromInt(100)))
	assert.False(t, raw.ProfitLoss.Valid)
	assert.True(t, raw.CloseTime.IsZero())
	assert.JSONEq(t, `"LONG"`, string(raw.Side))
}

func TestResources_Options(t *testing.T) {
	var r Resources
	require.NoError(t, json.Unmarshal([]byte(`{"symbols": {"ETHUSDT": {}, "BTCUSDT": {}}}`), &r))
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, r.Options("symbols"))
	assert.Empty(t, r.Options("exchanges"))
}

func TestPipelinesMetrics_Int(t *testing.T) {
	var m PipelinesMetrics
	require.NoError(t, json.Unmarshal([]byte(`{"totalPipelines": 4, "bestWinRate": {"winRate": 0.6}}`), &m))
	assert.Equal(t, 4, m.Int("totalPipelines"))
	assert.Equal(t, 0, m.Int("activePipelines"))
}
