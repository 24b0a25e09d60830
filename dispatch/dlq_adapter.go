package dispatch

import (
	"github.com/kocayinsec/network-automation-sender/dlq"
	"github.com/kocayinsec/network-automation-sender/model"
)

func (c *Coordinator) toDLQRecord(entry *model.QueueEntry, kind model.OutcomeKind, lastError string) dlq.Record {
	return dlq.Record{
		Descriptor: entry.Descriptor,
		Outcome:    kind,
		Attempts:   entry.Attempt,
		LastError:  lastError,
		RecordedAt: c.clk.Now(),
	}
}
