package obs

import "tradebook/pkg/exception"

// Reason classifies why an input never became an enriched trade.
type Reason uint8

const (
	_reason_beg Reason = iota
	ReasonNonPositivePrice
	ReasonNonPositiveQty
	ReasonEmptySymbol
	ReasonUnknownSide
	ReasonNotTrade
	ReasonUnsupported
	ReasonMalformed
	ReasonOther
	_reason_end
)

func (r Reason) IsAvailable() bool {
	return r > _reason_beg && r < _reason_end
}

func (r Reason) String() string {
	switch r {
	case ReasonNonPositivePrice:
		return "non_positive_price"
	case ReasonNonPositiveQty:
		return "non_positive_qty"
	case ReasonEmptySymbol:
		return "empty_symbol"
	case ReasonUnknownSide:
		return "unknown_side"
	case ReasonNotTrade:
		return "not_trade"
	case ReasonUnsupported:
		return "unsupported"
	case ReasonMalformed:
		return "malformed"
	case ReasonOther:
		return "other"
	default:
		return ""
	}
}

// ReasonOf maps a normalizer or decoder error to its reason.
func ReasonOf(err error) Reason {
	switch err {
	case exception.ErrFillNonPositivePrice:
		return ReasonNonPositivePrice
	case exception.ErrFillNonPositiveQty:
		return ReasonNonPositiveQty
	case exception.ErrFillEmptySymbol:
		return ReasonEmptySymbol
	case exception.ErrFillUnknownSide:
		return ReasonUnknownSide
	case exception.ErrFillNotTrade:
		return ReasonNotTrade
	case exception.ErrFillUnsupported, exception.ErrPayloadUnsupported:
		return ReasonUnsupported
	case exception.ErrPayloadEmpty, exception.ErrPayloadMalformed:
		return ReasonMalformed
	default:
		return ReasonOther
	}
}

// DecodeReason maps a payload decode error to its reason. Decoders wrap
// their parse errors, so anything but an unknown venue counts as malformed.
func DecodeReason(err error) Reason {
	if err == exception.ErrPayloadUnsupported {
		return ReasonUnsupported
	}
	return ReasonMalformed
}
