package state

import (
	"tradebook/internal/model/enum"
	"tradebook/internal/schema"
	"tradebook/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	// Epsilon is the quantity below which a remainder counts as consumed.
	Epsilon = 1e-9

	// driftTolerance bounds the difference between open lots and the net
	// position once discarded dust is accounted for.
	driftTolerance = 1e-9
)

var (
	epsilonQty = decimal.NewFromFloat(Epsilon)

	// relativeDust scales the dust threshold with the fill size. Quantities
	// carried as float64 keep about 15 significant digits, so slices of a
	// large lot may overshoot it by a few units in the last place.
	relativeDust = decimal.New(1, -12)
)

// dustFor returns the quantity at or below which a remainder of a fill of
// size qty counts as consumed.
func dustFor(qty decimal.Decimal) decimal.Decimal {
	return decimal.Max(epsilonQty, qty.Abs().Mul(relativeDust))
}

// Config controls invariant handling during a replay.
type Config struct {
	// Strict panics on a broken lot invariant. Otherwise the offending fill
	// is logged and emitted with raw fields only.
	Strict bool
}

// Replay runs one group's fills, sorted ascending by timestamp then id,
// through FIFO long and short lot queues and returns one enriched trade per
// fill in input order. Replay does not sort; the queues live only for the
// duration of the call.
func Replay(fills []schema.Fill, cfg Config) []schema.EnrichedTrade {
	r := newReplayer(cfg)
	trades := make([]schema.EnrichedTrade, 0, len(fills))
	for _, f := range fills {
		trades = append(trades, r.apply(f))
	}
	return trades
}

type replayer struct {
	cfg       Config
	long      *lotQueue
	short     *lotQueue
	positions *PositionReducer

	// slack is the signed dust dropped from the queues but kept in the net
	// position, so long.open - short.open + slack equals the net exactly.
	slack decimal.Decimal
}

func newReplayer(cfg Config) *replayer {
	return &replayer{
		cfg:       cfg,
		long:      newLotQueue(),
		short:     newLotQueue(),
		positions: NewPositionReducer(),
	}
}

func (r *replayer) apply(f schema.Fill) schema.EnrichedTrade {
	if !f.Valid() {
		return schema.NewRawTrade(f)
	}

	opposite, same := r.short, r.long
	if f.Side == enum.SideSell {
		opposite, same = r.long, r.short
	}

	qty := decimal.NewFromFloat(f.Qty)
	price := decimal.NewFromFloat(f.Price)
	dust := dustFor(qty)
	closed, remaining, dropped := opposite.consume(f.Side, qty, price, f.Timestamp, dust)
	opened := decimal.Zero
	if remaining.GreaterThan(dust) {
		same.push(lot{qty: remaining, price: price, ts: f.Timestamp})
		opened = remaining
	} else if f.Side == enum.SideBuy {
		r.slack = r.slack.Add(remaining.Sub(dropped))
	} else {
		r.slack = r.slack.Add(dropped.Sub(remaining))
	}
	net := r.positions.applyExact(f)

	if err := r.check(qty, closed.qty, opened, remaining, dust, net); err != nil {
		if r.cfg.Strict {
			panic(err)
		}
		logs.Errorf("replay %s fill %s, err: %+v", f.Key(), f.ID, err)
		return schema.NewRawTrade(f)
	}

	return enrich(f, closed, opened)
}

func (r *replayer) check(qty, closedQty, opened, remaining, dust, net decimal.Decimal) error {
	consumed := closedQty.Add(opened)
	if remaining.LessThanOrEqual(dust) {
		consumed = consumed.Add(remaining)
	}
	if !consumed.Equal(qty) {
		return errors.Wrapf(exception.ErrLedgerQtyNotConserved, "closed: %s, opened: %s, qty: %s", closedQty, opened, qty)
	}
	if !r.long.empty() && !r.short.empty() {
		return errors.Wrapf(exception.ErrLedgerBothSidesOpen, "long: %s, short: %s", r.long.open, r.short.open)
	}
	lots := r.long.open.Sub(r.short.open).Add(r.slack)
	if lots.Sub(net).Abs().InexactFloat64() > driftTolerance {
		return errors.Wrapf(exception.ErrLedgerPositionDrift, "lots: %s, net: %s", lots, net)
	}
	return nil
}

func enrich(f schema.Fill, c closing, opened decimal.Decimal) schema.EnrichedTrade {
	t := schema.NewRawTrade(f)
	t.ClosedQty = c.qty.InexactFloat64()
	t.OpenedQty = opened.InexactFloat64()
	t.EntryPrice = f.Price
	t.EntryTime = f.Timestamp

	closed := c.qty.IsPositive()
	if closed {
		hold := c.hold.Div(c.qty).Round(0).IntPart()
		exitPrice := f.Price
		exitTime := f.Timestamp
		t.EntryPrice = c.cost.Div(c.qty).InexactFloat64()
		t.EntryTime = f.Timestamp - hold
		t.ExitPrice = &exitPrice
		t.ExitTime = &exitTime
		t.HoldTime = &hold
	} else if f.EntryTime > 0 && f.ExitTime >= f.EntryTime {
		hold := f.ExitTime - f.EntryTime
		exitTime := f.ExitTime
		t.ExitTime = &exitTime
		t.HoldTime = &hold
	}

	// A venue-reported zero on a closing fill is a real breakeven, while
	// venues that send 0 on every opening fill mean "nothing realized".
	switch {
	case f.RealizedPnl != nil && (*f.RealizedPnl != 0 || closed):
		t.RealizedPnl = *f.RealizedPnl
	case closed:
		t.RealizedPnl = c.pnl.InexactFloat64() - f.Fee
	}

	t.IsOpen = opened.IsPositive() && !f.HasCloseHint()
	return t
}
