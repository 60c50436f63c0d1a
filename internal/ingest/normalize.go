package ingest

import (
	"strings"

	"tradebook/internal/ingest/binance"
	"tradebook/internal/ingest/bybit"
	"tradebook/internal/ingest/field"
	"tradebook/internal/ingest/generic"
	"tradebook/internal/ingest/hyperliquid"
	"tradebook/internal/model/enum"
	"tradebook/internal/schema"
	"tradebook/pkg/exception"
)

// Normalizer maps decoded venue messages to canonical fills. It holds no
// mutable state besides the alias registry and is safe for concurrent use.
type Normalizer struct {
	reg *schema.Registry
}

// NewNormalizer creates a normalizer. reg may be nil, in which case index
// aliases are kept verbatim.
func NewNormalizer(reg *schema.Registry) *Normalizer {
	return &Normalizer{reg: reg}
}

// draft is the venue independent view of a message before validation.
type draft struct {
	venue     string
	account   string
	symbol    string
	side      string
	price     field.Number
	qty       field.Number
	time      field.Time
	fee       field.Number
	funding   field.Number
	tradeID   string
	execID    string
	orderID   string
	pnl       field.Number
	exitPrice field.Number
	entryTime field.Time
	exitTime  field.Time
	direction string
}

// Normalize converts msg into a fill. account identifies the connection the
// message arrived on and takes precedence over any account in the payload.
// The returned error is one of the exception.ErrFill* reject reasons.
func (n *Normalizer) Normalize(account string, msg Message) (schema.Fill, error) {
	var d draft
	switch m := msg.(type) {
	case generic.Trade:
		d = fromGeneric(m)
	case hyperliquid.Fill:
		d = fromHyperliquid(m)
	case binance.ExecutionReport:
		if m.ExecType != binance.ExecTypeTrade {
			return schema.Fill{}, exception.ErrFillNotTrade
		}
		d = fromBinanceSpot(m)
	case binance.OrderTradeUpdate:
		if m.Order.ExecType != binance.ExecTypeTrade {
			return schema.Fill{}, exception.ErrFillNotTrade
		}
		d = fromBinanceFutures(m)
	case bybit.Exec:
		if m.ExecType != "" && m.ExecType != bybit.ExecTypeTrade {
			return schema.Fill{}, exception.ErrFillNotTrade
		}
		d = fromBybit(m)
	default:
		return schema.Fill{}, exception.ErrFillUnsupported
	}

	if account != "" {
		d.account = account
	}
	return n.finish(d)
}

func (n *Normalizer) finish(d draft) (schema.Fill, error) {
	if !d.price.Valid || d.price.Value.Sign() <= 0 {
		return schema.Fill{}, exception.ErrFillNonPositivePrice
	}
	if !d.qty.Valid || d.qty.Value.Sign() <= 0 {
		return schema.Fill{}, exception.ErrFillNonPositiveQty
	}
	side := enum.ParseSide(d.side)
	if !side.IsAvailable() {
		side = sideFromLabel(d.side)
	}
	if !side.IsAvailable() {
		side = sideFromLabel(d.direction)
	}
	if !side.IsAvailable() {
		return schema.Fill{}, exception.ErrFillUnknownSide
	}
	symbol := n.Symbol(d.venue, d.symbol)
	if symbol == "" {
		return schema.Fill{}, exception.ErrFillEmptySymbol
	}

	fill := schema.Fill{
		Venue:       d.venue,
		Account:     d.account,
		RawSymbol:   strings.TrimSpace(d.symbol),
		Symbol:      symbol,
		Side:        side,
		Price:       d.price.Float(),
		Qty:         d.qty.Float(),
		Timestamp:   NormalizeTime(d.time),
		Fee:         d.fee.Float(),
		Funding:     d.funding.Float(),
		TradeID:     d.tradeID,
		ExecID:      d.execID,
		OrderID:     d.orderID,
		RealizedPnl: d.pnl.Ptr(),
		ExitPrice:   d.exitPrice.NonZero(),
		Direction:   d.direction,
	}
	if d.entryTime.Valid {
		fill.EntryTime = NormalizeTime(d.entryTime)
	}
	if d.exitTime.Valid {
		fill.ExitTime = NormalizeTime(d.exitTime)
	}

	switch {
	case fill.TradeID != "":
		fill.ID = fill.TradeID
	case fill.ExecID != "":
		fill.ID = fill.ExecID
	default:
		fill.ID = fill.MintID()
	}
	return fill, nil
}

// Symbol canonicalizes raw and resolves index aliases through the venue's
// alias table. Unresolved aliases are returned as is.
func (n *Normalizer) Symbol(venue, raw string) string {
	symbol := CanonicalSymbol(raw)
	if !IsIndexAlias(symbol) {
		return symbol
	}
	if name, ok := n.reg.ResolveAlias(venue, symbol); ok {
		if resolved := CanonicalSymbol(name); resolved != "" {
			return resolved
		}
	}
	return symbol
}

// sideFromLabel reads the side off a direction label such as "Open Long"
// or "Close Short".
func sideFromLabel(label string) enum.Side {
	label = strings.ToLower(label)
	switch {
	case strings.Contains(label, "open long"), strings.Contains(label, "close short"):
		return enum.SideBuy
	case strings.Contains(label, "open short"), strings.Contains(label, "close long"):
		return enum.SideSell
	default:
		return 0
	}
}

func fromGeneric(m generic.Trade) draft {
	venue := strings.ToLower(strings.TrimSpace(m.VenueTag))
	if venue == "" {
		venue = enum.VenueGeneric.String()
	}
	return draft{
		venue:     venue,
		account:   m.Account.String(),
		symbol:    m.SymbolText(),
		side:      m.SideText(),
		price:     m.PriceValue(),
		qty:       m.QtyValue(),
		time:      m.TimeValue(),
		fee:       m.FeeValue(),
		funding:   m.Funding,
		tradeID:   m.TradeIDText(),
		execID:    field.FirstText(m.ExecID),
		orderID:   m.OrderIDText(),
		pnl:       m.PnlValue(),
		exitPrice: m.ExitPrice,
		entryTime: m.EntryTime,
		exitTime:  m.ExitTime,
		direction: field.FirstText(m.Direction),
	}
}

func fromHyperliquid(m hyperliquid.Fill) draft {
	return draft{
		venue:     enum.VenueHyperliquid.String(),
		account:   m.User,
		symbol:    m.Coin,
		side:      m.Side,
		price:     m.Px,
		qty:       m.Sz,
		time:      m.Time,
		fee:       m.Fee,
		tradeID:   m.Tid.String(),
		execID:    m.Hash,
		orderID:   m.Oid.String(),
		pnl:       m.ClosedPnl,
		direction: m.Dir,
	}
}

func fromBinanceSpot(m binance.ExecutionReport) draft {
	return draft{
		venue:   enum.VenueBinance.String(),
		symbol:  m.Symbol,
		side:    m.Side,
		price:   m.LastPrice,
		qty:     m.LastQty,
		time:    field.FirstTime(m.TransactTime, m.EventTime),
		fee:     m.Commission,
		tradeID: m.TradeID.String(),
		orderID: m.OrderID.String(),
	}
}

func fromBinanceFutures(m binance.OrderTradeUpdate) draft {
	o := m.Order
	return draft{
		venue:     binance.FuturesVenue,
		symbol:    o.Symbol,
		side:      o.Side,
		price:     o.LastPrice,
		qty:       o.LastQty,
		time:      field.FirstTime(o.TradeTime, m.TransactTime, m.EventTime),
		fee:       o.Commission,
		tradeID:   o.TradeID.String(),
		orderID:   o.OrderID.String(),
		pnl:       o.RealizedProfit,
		direction: positionSide(o.PositionSide),
	}
}

// positionSide keeps hedge mode labels; one-way mode reports "BOTH".
func positionSide(ps string) string {
	if strings.EqualFold(ps, "BOTH") {
		return ""
	}
	return ps
}

func fromBybit(m bybit.Exec) draft {
	return draft{
		venue:   enum.VenueBybit.String(),
		symbol:  m.Symbol,
		side:    m.Side,
		price:   m.ExecPrice,
		qty:     m.ExecQty,
		time:    m.ExecTime,
		fee:     m.ExecFee,
		execID:  m.ExecID.String(),
		orderID: m.OrderID.String(),
		pnl:     m.ClosedPnl,
	}
}
