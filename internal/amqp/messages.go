package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ChangeKind names the record type a LedgerChangedMessage is about.
type ChangeKind string

const (
	KindIncome           ChangeKind = "income"
	KindExpense          ChangeKind = "expense"
	KindJob              ChangeKind = "job"
	KindJobPayment       ChangeKind = "job_payment"
	KindDedicatedExpense ChangeKind = "job_expense"
)

// LedgerChangedMessage announces that a record was created, changed or
// deleted by the record-owning side. It carries identities only; consumers
// re-read whatever they need.
type LedgerChangedMessage struct {
	Kind      ChangeKind `json:"kind"`
	RecordID  string     `json:"record_id"`
	JobID     string     `json:"job_id,omitempty"`
	Date      string     `json:"date,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewLedgerChangedMessage(kind ChangeKind, recordID, jobID, date string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Kind:      kind,
		RecordID:  recordID,
		JobID:     jobID,
		Date:      date,
		Timestamp: time.Now(),
	}
}

// Validate checks that the message names a known kind and a record.
func (m *LedgerChangedMessage) Validate() error {
	switch m.Kind {
	case KindIncome, KindExpense, KindJob, KindJobPayment, KindDedicatedExpense:
	default:
		return fmt.Errorf("unknown change kind %q", m.Kind)
	}
	if m.RecordID == "" {
		return errors.New("record id is required")
	}
	if (m.Kind == KindJobPayment || m.Kind == KindDedicatedExpense) && m.JobID == "" {
		return fmt.Errorf("%s change requires a job id", m.Kind)
	}
	return nil
}

// AffectsPeriodReports reports whether general-ledger totals may have changed.
func (m *LedgerChangedMessage) AffectsPeriodReports() bool {
	return m.Kind == KindIncome || m.Kind == KindExpense
}

// AffectedJob returns the job whose ledger may have changed, or "".
func (m *LedgerChangedMessage) AffectedJob() string {
	if m.Kind == KindJob && m.JobID == "" {
		return m.RecordID
	}
	return m.JobID
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger change: %w", err)
	}
	return &msg, nil
}
