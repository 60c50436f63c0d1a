package ingest

import (
	"tradebook/internal/obs"
	"tradebook/internal/schema"

	"github.com/yanun0323/logs"
)

// Intake decodes one raw payload tagged with venue and normalizes every
// message in it. Rejected messages are counted and skipped; only a payload
// that cannot be decoded at all returns an error. metrics may be nil.
func (n *Normalizer) Intake(venue, account string, payload []byte, metrics *obs.Metrics) ([]schema.Fill, error) {
	msgs, err := DecodeNamed(venue, payload)
	if err != nil {
		metrics.IncRejected(obs.DecodeReason(err))
		return nil, err
	}

	fills := make([]schema.Fill, 0, len(msgs))
	for _, msg := range msgs {
		metrics.IncReceived()
		fill, err := n.Normalize(account, msg)
		if err != nil {
			metrics.IncRejected(obs.ReasonOf(err))
			continue
		}
		if !TimestampPlausible(fill.Timestamp) {
			metrics.IncImplausible()
			logs.Infof("implausible timestamp %d on fill %s (%s)", fill.Timestamp, fill.ID, fill.Key())
		}
		fills = append(fills, fill)
	}
	return fills, nil
}
