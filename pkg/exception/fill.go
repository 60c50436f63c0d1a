package exception

import "github.com/yanun0323/errors"

// Reject reasons returned by the normalizer. Callers drop the fill.
var (
	ErrFillNonPositivePrice = errors.New("fill: price must be > 0")
	ErrFillNonPositiveQty   = errors.New("fill: quantity must be > 0")
	ErrFillEmptySymbol      = errors.New("fill: empty canonical symbol")
	ErrFillUnknownSide      = errors.New("fill: unknown side")
	ErrFillNotTrade         = errors.New("fill: not a trade execution")
	ErrFillUnsupported      = errors.New("fill: unsupported message")
)

var (
	ErrPayloadEmpty       = errors.New("payload: empty")
	ErrPayloadMalformed   = errors.New("payload: malformed")
	ErrPayloadUnsupported = errors.New("payload: unsupported venue")
)
