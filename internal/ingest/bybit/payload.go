package bybit

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
	TopicExecution = "execution"

	// ExecTypeTrade marks a matched order. Funding, settlement and
	// liquidation rows share the topic and are not fills.
	ExecTypeTrade = "Trade"
)

// Message is the private websocket push, e.g.
// {"topic":"execution","creationTime":..,"data":[..]}. The REST execution
// list ({"result":{"list":[..]}}) decodes through the same type.
type Message struct {
	Topic        string     `json:"topic"`
	ID           string     `json:"id"`
	CreationTime field.Time `json:"creationTime"`
	Data         []Exec     `json:"data"`
	Result       struct {
		Category string `json:"category"`
		List     []Exec `json:"list"`
	} `json:"result"`
}

// Exec is one execution row.
type Exec struct {
	Category    string       `json:"category"`
	Symbol      string       `json:"symbol"`
	Side        string       `json:"side"`
	ExecID      field.Text   `json:"execId"`
	OrderID     field.Text   `json:"orderId"`
	OrderLinkID field.Text   `json:"orderLinkId"`
	ExecPrice   field.Number `json:"execPrice"`
	ExecQty     field.Number `json:"execQty"`
	ExecFee     field.Number `json:"execFee"`
	ExecType    string       `json:"execType"`
	ExecTime    field.Time   `json:"execTime"`
	ClosedSize  field.Number `json:"closedSize"`
	ClosedPnl   field.Number `json:"closedPnl"`
	IsMaker     bool         `json:"isMaker"`
}

func (Exec) Venue() enum.Venue {
	return enum.VenueBybit
}

// Decode returns the execution rows of a push, a REST page or a bare array.
func Decode(payload []byte) ([]Exec, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, exception.ErrPayloadEmpty
	}

	// Other private topics carry a different data layout.
	if topic, ok := scanner.StringField(payload, "topic"); ok && topic != TopicExecution {
		return nil, nil
	}

	if payload[0] == '[' {
		var rows []Exec
		if err := sonic.Unmarshal(payload, &rows); err != nil {
			return nil, errors.Wrap(exception.ErrPayloadMalformed, err.Error())
		}
		return rows, nil
	}

	var msg Message
	if err := sonic.Unmarshal(payload, &msg); err != nil {
		return nil, errors.Wrap(exception.ErrPayloadMalformed, err.Error())
	}
	rows := msg.Data
	if len(rows) == 0 {
		rows = msg.Result.List
	}
	for i := range rows {
		if rows[i].Category == "" {
			rows[i].Category = msg.Result.Category
		}
	}
	return rows, nil
}
