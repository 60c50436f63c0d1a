package exception

import "github.com/yanun0323/errors"

var (
	ErrJournalConfig         = errors.New("journal: invalid config")
	ErrJournalQueueFull      = errors.New("journal: queue full")
	ErrJournalClosed         = errors.New("journal: writer closed")
	ErrJournalNotStarted     = errors.New("journal: writer not started")
	ErrJournalAlreadyStarted = errors.New("journal: writer already started")
	ErrJournalMalformed      = errors.New("journal: malformed record")
)
