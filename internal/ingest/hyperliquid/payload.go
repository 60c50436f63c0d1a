package hyperliquid

import (
	"bytes"

	"tradebook/internal/ingest/field"
	"tradebook/internal/model/enum"
	"tradebook/pkg/exception"
	"tradebook/pkg/scanner"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

const (
	ChannelUserFills = "userFills"
	ChannelUser      = "user"
)

// Event is the websocket envelope, e.g. {"channel":"userFills","data":{...}}.
type Event struct {
	Channel string    `json:"channel"`
	Data    UserFills `json:"data"`
}

// UserFills carries every fill of one push.
type UserFills struct {
	IsSnapshot bool   `json:"isSnapshot"`
	User       string `json:"user"`
	Fills      []Fill `json:"fills"`
}

// Fill is one execution. Side is "B" (bid, buy) or "A" (ask, sell); Dir is
// the human label such as "Open Long" or "Close Short".
type Fill struct {
	Coin          string       `json:"coin"`
	Px            field.Number `json:"px"`
	Sz            field.Number `json:"sz"`
	Side          string       `json:"side"`
	Time          field.Time   `json:"time"`
	StartPosition field.Number `json:"startPosition"`
	Dir           string       `json:"dir"`
	ClosedPnl     field.Number `json:"closedPnl"`
	Hash          string       `json:"hash"`
	Oid           field.Text   `json:"oid"`
	Tid           field.Text   `json:"tid"`
	Crossed       bool         `json:"crossed"`
	Fee           field.Number `json:"fee"`
	FeeToken      string       `json:"feeToken"`

	// User is copied from the envelope.
	User string `json:"-"`
}

func (Fill) Venue() enum.Venue {
	return enum.VenueHyperliquid
}

// Decode accepts the channel envelope, a bare userFills object or a bare
// array of fills. Pushes without fills decode to an empty slice.
func Decode(payload []byte) ([]Fill, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, exception.ErrPayloadEmpty
	}

	if channel, ok := scanner.StringField(payload, "channel"); ok && channel != ChannelUserFills && channel != ChannelUser {
		return nil, nil
	}

	if payload[0] == '[' {
		var fills []Fill
		if err := sonic.Unmarshal(payload, &fills); err != nil {
			return nil, errors.Wrap(exception.ErrPayloadMalformed, err.Error())
		}
		return fills, nil
	}

	var event Event
	if err := sonic.Unmarshal(payload, &event); err != nil {
		return nil, errors.Wrap(exception.ErrPayloadMalformed, err.Error())
	}
	data := event.Data
	if event.Channel == "" && len(data.Fills) == 0 {
		var bare UserFills
		if err := sonic.Unmarshal(payload, &bare); err != nil {
			return nil, errors.Wrap(exception.ErrPayloadMalformed, err.Error())
		}
		data = bare
	}

	for i := range data.Fills {
		data.Fills[i].User = data.User
	}
	return data.Fills, nil
}
