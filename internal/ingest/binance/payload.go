package binance

import (
	"bytes"
	"encoding/json"

	"tradebook/internal/ingest/field"
	"tradebook/internal/model/enum"
	"tradebook/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

const (
	EventExecutionReport  = "executionReport"
	EventOrderTradeUpdate = "ORDER_TRADE_UPDATE"

	// ExecTypeTrade is the only execution type that carries a fill.
	ExecTypeTrade = "TRADE"

	// FuturesVenue tags USD-M futures fills. Spot and futures share symbol
	// names, so they need separate groups to keep their positions apart.
	FuturesVenue = "binance-futures"
)

// Event is a decoded user data event that carries a fill.
type Event interface {
	Venue() enum.Venue
}

// Binance user data keys differ only by case ("e"/"E", "x"/"X", ...). The
// decoder falls back to case-insensitive matching for keys without an exact
// field, so every partner key is declared even when it is not used.

type header struct {
	Event     field.Text      `json:"e"`
	EventTime field.Text      `json:"E"`
	Stream    string          `json:"stream"`
	Data      json.RawMessage `json:"data"`
}

// ExecutionReport is the spot user data stream order update.
type ExecutionReport struct {
	Event           field.Text   `json:"e"`
	EventTime       field.Time   `json:"E"`
	Symbol          string       `json:"s"`
	Side            string       `json:"S"`
	ClientOrderID   field.Text   `json:"c"`
	OrigClientID    field.Text   `json:"C"`
	OrderType       field.Text   `json:"o"`
	CreationTime    field.Time   `json:"O"`
	TimeInForce     field.Text   `json:"f"`
	IcebergQty      field.Text   `json:"F"`
	OrderQty        field.Number `json:"q"`
	QuoteOrderQty   field.Text   `json:"Q"`
	OrderPrice      field.Number `json:"p"`
	StopPrice       field.Text   `json:"P"`
	ExecType        string       `json:"x"`
	OrderStatus     string       `json:"X"`
	OrderID         field.Text   `json:"i"`
	Ignore          field.Text   `json:"I"`
	LastQty         field.Number `json:"l"`
	LastPrice       field.Number `json:"L"`
	Commission      field.Number `json:"n"`
	CommissionAsset string       `json:"N"`
	TradeID         field.Text   `json:"t"`
	TransactTime    field.Time   `json:"T"`
	CumQty          field.Text   `json:"z"`
	CumQuote        field.Text   `json:"Z"`
	Working         field.Text   `json:"w"`
	WorkingTime     field.Text   `json:"W"`
	Maker           field.Text   `json:"m"`
	IgnoreM         field.Text   `json:"M"`
	RejectReason    field.Text   `json:"r"`
}

func (ExecutionReport) Venue() enum.Venue {
	return enum.VenueBinance
}

// OrderTradeUpdate is the futures user data stream order update.
type OrderTradeUpdate struct {
	Event        field.Text `json:"e"`
	EventTime    field.Time `json:"E"`
	TransactTime field.Time `json:"T"`
	Ignore       field.Text `json:"t"`
	Order        FutureExec `json:"o"`
	IgnoreO      field.Text `json:"O"`
}

func (OrderTradeUpdate) Venue() enum.Venue {
	return enum.VenueBinance
}

// FutureExec is the "o" object of ORDER_TRADE_UPDATE. RealizedProfit ("rp")
// is the profit of the trade, zero for opening fills.
type FutureExec struct {
	Symbol          string       `json:"s"`
	Side            string       `json:"S"`
	ClientOrderID   field.Text   `json:"c"`
	IgnoreC         field.Text   `json:"C"`
	OrderType       field.Text   `json:"o"`
	IgnoreO         field.Text   `json:"O"`
	TimeInForce     field.Text   `json:"f"`
	IgnoreF         field.Text   `json:"F"`
	OrderQty        field.Number `json:"q"`
	IgnoreQ         field.Text   `json:"Q"`
	OrderPrice      field.Number `json:"p"`
	IgnoreP         field.Text   `json:"P"`
	AvgPrice        field.Number `json:"ap"`
	ActivationPrice field.Text   `json:"AP"`
	ExecType        string       `json:"x"`
	OrderStatus     string       `json:"X"`
	OrderID         field.Text   `json:"i"`
	IgnoreI         field.Text   `json:"I"`
	LastQty         field.Number `json:"l"`
	LastPrice       field.Number `json:"L"`
	Commission      field.Number `json:"n"`
	CommissionAsset string       `json:"N"`
	TradeTime       field.Time   `json:"T"`
	TradeID         field.Text   `json:"t"`
	CumQty          field.Text   `json:"z"`
	IgnoreZ         field.Text   `json:"Z"`
	Maker           field.Text   `json:"m"`
	IgnoreM         field.Text   `json:"M"`
	ReduceOnly      field.Text   `json:"R"`
	IgnoreR         field.Text   `json:"r"`
	PositionSide    string       `json:"ps"`
	RealizedProfit  field.Number `json:"rp"`
}

// Decode reads one user data event, bare or wrapped in a combined stream
// envelope. Events that never carry fills decode to an empty slice.
func Decode(payload []byte) ([]Event, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, exception.ErrPayloadEmpty
	}

	var head header
	if err := sonic.Unmarshal(payload, &head); err != nil {
		return nil, errors.Wrap(exception.ErrPayloadMalformed, err.Error())
	}
	if head.Event == "" && len(head.Data) > 0 {
		return Decode(head.Data)
	}

	switch head.Event.String() {
	case EventExecutionReport:
		var report ExecutionReport
		if err := sonic.Unmarshal(payload, &report); err != nil {
			return nil, errors.Wrap(exception.ErrPayloadMalformed, err.Error())
		}
		return []Event{report}, nil
	case EventOrderTradeUpdate:
		var update OrderTradeUpdate
		if err := sonic.Unmarshal(payload, &update); err != nil {
			return nil, errors.Wrap(exception.ErrPayloadMalformed, err.Error())
		}
		return []Event{update}, nil
	default:
		return nil, nil
	}
}
