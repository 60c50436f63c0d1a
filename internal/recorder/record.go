package recorder

import (
	"bytes"
	"encoding/json"

	"tradebook/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

// Entry is one journal line: a raw venue payload as it arrived.
//
//	{"venue":"hyperliquid","account":"0xabc","recvTime":1700000000123,"payload":{...}}
type Entry struct {
	Venue    string          `json:"venue"`
	Account  string          `json:"account,omitempty"`
	RecvTime int64           `json:"recvTime,omitempty"` // epoch ms
	Payload  json.RawMessage `json:"payload"`
}

// appendLine encodes e as one JSON line onto dst. The standard config
// compacts the raw payload, so pretty printed payloads stay on one line.
func appendLine(dst []byte, e Entry) ([]byte, error) {
	if len(bytes.TrimSpace(e.Payload)) == 0 {
		return dst, exception.ErrPayloadEmpty
	}
	data, err := sonic.ConfigStd.Marshal(e)
	if err != nil {
		return dst, errors.Wrap(err, "marshal journal entry")
	}
	dst = append(dst, data...)
	return append(dst, '\n'), nil
}

// parseLine decodes one journal line.
func parseLine(line []byte) (Entry, error) {
	var e Entry
	if err := sonic.Unmarshal(line, &e); err != nil {
		return Entry{}, errors.Wrap(exception.ErrJournalMalformed, err.Error())
	}
	if len(bytes.TrimSpace(e.Payload)) == 0 {
		return Entry{}, errors.Wrap(exception.ErrJournalMalformed, "payload is empty")
	}
	return e, nil
}
