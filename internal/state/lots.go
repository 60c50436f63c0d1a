package state

import (
	"tradebook/internal/model/enum"
	"tradebook/pkg/deque"

	"github.com/shopspring/decimal"
)

// lot is an open slice of a position. Quantities are exact decimals so a
// lot of 1e9 units still closes to zero instead of leaving float residue.
type lot struct {
	qty   decimal.Decimal
	price decimal.Decimal
	ts    int64
}

// closing accumulates what one fill consumed from the opposite queue.
type closing struct {
	qty  decimal.Decimal
	cost decimal.Decimal // Σ qty_i * lot_price_i
	pnl  decimal.Decimal
	hold decimal.Decimal // Σ qty_i * (fill_ts - lot_ts_i)
}

// lotQueue is one side of a group's inventory, oldest lot first. open
// tracks the total quantity held so the position cross-check does not
// walk the queue.
type lotQueue struct {
	lots *deque.Deque[lot]
	open decimal.Decimal
}

func newLotQueue() *lotQueue {
	return &lotQueue{lots: deque.New[lot](0)}
}

func (q *lotQueue) push(l lot) {
	q.lots.PushBack(l)
	q.open = q.open.Add(l.qty)
}

func (q *lotQueue) empty() bool {
	return q.lots.Empty()
}

// consume closes up to qty against the oldest lots and returns the
// accumulated closing, the quantity it could not close and the lot dust it
// discarded. by is the side of the closing fill: a buy closes shorts and
// earns lot - price, a sell closes longs and earns price - lot. Anything at
// or below dust counts as consumed.
func (q *lotQueue) consume(by enum.Side, qty, price decimal.Decimal, ts int64, dust decimal.Decimal) (c closing, remaining, dropped decimal.Decimal) {
	remaining = qty
	for remaining.GreaterThan(dust) {
		front := q.lots.Front()
		if front == nil {
			break
		}

		take := decimal.Min(remaining, front.qty)
		c.qty = c.qty.Add(take)
		c.cost = c.cost.Add(take.Mul(front.price))
		c.hold = c.hold.Add(take.Mul(decimal.NewFromInt(ts - front.ts)))
		if by == enum.SideBuy {
			c.pnl = c.pnl.Add(take.Mul(front.price.Sub(price)))
		} else {
			c.pnl = c.pnl.Add(take.Mul(price.Sub(front.price)))
		}

		front.qty = front.qty.Sub(take)
		q.open = q.open.Sub(take)
		remaining = remaining.Sub(take)
		if front.qty.LessThanOrEqual(dust) {
			dropped = dropped.Add(front.qty)
			q.open = q.open.Sub(front.qty)
			q.lots.PopFront()
		}
	}
	return c, remaining, dropped
}
