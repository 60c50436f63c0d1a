package bybit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeExecutionPush(t *testing.T) {
	payload := []byte(`{"topic":"execution","id":"386825804_BTCUSDT_140612148849382","creationTime":1700000000300,"data":[
		{"category":"linear","symbol":"BTCUSDT","execFee":"0.02","execId":"7e2ae69c-4edf-5800-a352-893d52b446aa",
		 "execPrice":"43000","execQty":"0.1","execType":"Trade","execValue":"4300","isMaker":false,"orderId":"f6e324ff",
		 "orderLinkId":"","side":"Buy","execTime":"1700000000290","closedSize":"0","closedPnl":"0"},
		{"category":"linear","symbol":"BTCUSDT","execFee":"-0.5","execId":"fund-1","execPrice":"43000","execQty":"0.1",
		 "execType":"Funding","side":"Sell","execTime":"1700000000400"}
	]}`)

	rows, err := Decode(payload)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "BTCUSDT", first.Symbol)
	assert.Equal(t, "Buy", first.Side)
	assert.Equal(t, "Trade", first.ExecType)
	assert.Equal(t, 43000.0, first.ExecPrice.Float())
	assert.Equal(t, 0.1, first.ExecQty.Float())
	assert.Equal(t, int64(1700000000290), first.ExecTime.Raw)
	assert.Equal(t, "7e2ae69c-4edf-5800-a352-893d52b446aa", first.ExecID.String())
	assert.Nil(t, first.ClosedPnl.NonZero())

	assert.Equal(t, "Funding", rows[1].ExecType)
}

func TestDecodeRestListAndOtherTopics(t *testing.T) {
	rows, err := Decode([]byte(`{"retCode":0,"result":{"category":"spot","list":[{"symbol":"ETHUSDT","side":"Sell","execPrice":"2000","execQty":"1","execType":"Trade","execTime":"1700000000000","execId":"e1"}]}}`))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "spot", rows[0].Category)

	rows, err = Decode([]byte(`{"topic":"wallet","data":[{"accountType":"UNIFIED","coin":[]}]}`))
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = Decode([]byte(`{"topic":"execution","data":{`))
	assert.Error(t, err)
}
