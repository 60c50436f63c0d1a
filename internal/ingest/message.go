package ingest

import (
	"tradebook/internal/ingest/binance"
	"tradebook/internal/ingest/bybit"
	"tradebook/internal/ingest/generic"
	"tradebook/internal/ingest/hyperliquid"
	"tradebook/internal/model/enum"
	"tradebook/pkg/exception"
)

// Message is one decoded venue record. The normalizer accepts exactly
// generic.Trade, hyperliquid.Fill, binance.ExecutionReport,
// binance.OrderTradeUpdate and bybit.Exec; any other implementation is
// rejected as unsupported.
type Message interface {
	Venue() enum.Venue
}

// Decode parses a raw payload with the layout of venue.
func Decode(venue enum.Venue, payload []byte) ([]Message, error) {
	switch venue {
	case enum.VenueGeneric:
		return collect(generic.Decode(payload))
	case enum.VenueHyperliquid:
		return collect(hyperliquid.Decode(payload))
	case enum.VenueBinance:
		return collect(binance.Decode(payload))
	case enum.VenueBybit:
		return collect(bybit.Decode(payload))
	default:
		return nil, exception.ErrPayloadUnsupported
	}
}

// DecodeNamed decodes by venue tag. Tags without a dedicated layout are read
// with the generic layout and stamped with the tag as their venue.
func DecodeNamed(name string, payload []byte) ([]Message, error) {
	if venue, ok := enum.ParseVenue(name); ok {
		return Decode(venue, payload)
	}

	trades, err := generic.Decode(payload)
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(trades))
	for _, trade := range trades {
		if trade.VenueTag == "" {
			trade.VenueTag = name
		}
		msgs = append(msgs, trade)
	}
	return msgs, nil
}

func collect[T Message](items []T, err error) ([]Message, error) {
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(items))
	for _, item := range items {
		msgs = append(msgs, item)
	}
	return msgs, nil
}
