package generic

import (
	"bytes"
	"encoding/json"

	"tradebook/internal/ingest/field"
	"tradebook/internal/model/enum"
	"tradebook/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

// Trade is the loose shape shared by adapters that relay fills without a
// venue specific schema. Every concept accepts several spellings; the first
// present one wins.
type Trade struct {
	VenueTag string     `json:"venue"`
	Account  field.Text `json:"account"`

	Symbol     field.Text `json:"symbol"`
	Coin       field.Text `json:"coin"`
	Instrument field.Text `json:"instrument"`
	Market     field.Text `json:"market"`

	Side field.Text `json:"side"`
	Dir  field.Text `json:"dir"`
	// Direction is a free text label, e.g. "Close Long".
	Direction field.Text `json:"direction"`

	Price    field.Number `json:"price"`
	Px       field.Number `json:"px"`
	Quantity field.Number `json:"quantity"`
	Qty      field.Number `json:"qty"`
	Amount   field.Number `json:"amount"`
	Size     field.Number `json:"size"`
	Sz       field.Number `json:"sz"`

	Time      field.Time `json:"time"`
	Timestamp field.Time `json:"timestamp"`
	Ts        field.Time `json:"ts"`

	RealizedPnl field.Number `json:"realizedPnl"`
	ClosedPnl   field.Number `json:"closedPnl"`
	Pnl         field.Number `json:"pnl"`

	Fee        field.Number `json:"fee"`
	Commission field.Number `json:"commission"`
	Funding    field.Number `json:"funding"`

	TradeID field.Text `json:"tradeId"`
	Tid     field.Text `json:"tid"`
	ExecID  field.Text `json:"execId"`
	OrderID field.Text `json:"orderId"`
	Oid     field.Text `json:"oid"`
	ID      field.Text `json:"id"`

	EntryTime field.Time   `json:"entryTime"`
	ExitTime  field.Time   `json:"exitTime"`
	ExitPrice field.Number `json:"exitPrice"`
}

func (Trade) Venue() enum.Venue {
	return enum.VenueGeneric
}

func (t Trade) SymbolText() string {
	return field.FirstText(t.Symbol, t.Coin, t.Instrument, t.Market)
}

func (t Trade) SideText() string {
	return field.FirstText(t.Side, t.Dir)
}

func (t Trade) PriceValue() field.Number {
	return field.FirstNumber(t.Price, t.Px)
}

func (t Trade) QtyValue() field.Number {
	return field.FirstNumber(t.Quantity, t.Qty, t.Size, t.Sz, t.Amount)
}

func (t Trade) TimeValue() field.Time {
	return field.FirstTime(t.Time, t.Timestamp, t.Ts)
}

func (t Trade) PnlValue() field.Number {
	return field.FirstNumber(t.RealizedPnl, t.ClosedPnl, t.Pnl)
}

func (t Trade) FeeValue() field.Number {
	return field.FirstNumber(t.Fee, t.Commission)
}

// TradeIDText falls back to the bare "id" key.
func (t Trade) TradeIDText() string {
	return field.FirstText(t.TradeID, t.Tid, t.ID)
}

func (t Trade) OrderIDText() string {
	return field.FirstText(t.OrderID, t.Oid)
}

type envelope struct {
	Venue   string          `json:"venue"`
	Account field.Text      `json:"account"`
	Data    json.RawMessage `json:"data"`
	Payload json.RawMessage `json:"payload"`
}

// Decode accepts a flat trade, an array of trades, or an envelope whose
// "data" (or "payload") is either. Envelope venue and account fill in the
// trades that lack them.
func Decode(payload []byte) ([]Trade, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, exception.ErrPayloadEmpty
	}

	if payload[0] == '[' {
		var trades []Trade
		if err := sonic.Unmarshal(payload, &trades); err != nil {
			return nil, errors.Wrap(exception.ErrPayloadMalformed, err.Error())
		}
		return trades, nil
	}

	var env envelope
	if err := sonic.Unmarshal(payload, &env); err != nil {
		return nil, errors.Wrap(exception.ErrPayloadMalformed, err.Error())
	}

	inner := env.Data
	if !isContainer(inner) {
		inner = env.Payload
	}
	if !isContainer(inner) {
		var trade Trade
		if err := sonic.Unmarshal(payload, &trade); err != nil {
			return nil, errors.Wrap(exception.ErrPayloadMalformed, err.Error())
		}
		return []Trade{trade}, nil
	}

	trades, err := Decode(inner)
	if err != nil {
		return nil, err
	}
	for i := range trades {
		if trades[i].VenueTag == "" {
			trades[i].VenueTag = env.Venue
		}
		if trades[i].Account == "" {
			trades[i].Account = env.Account
		}
	}
	return trades, nil
}

func isContainer(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && (raw[0] == '{' || raw[0] == '[')
}
