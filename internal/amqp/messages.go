package amqp

import (
	"encoding/json"
	"time"

	"pnlengine/internal/core"
)

// ReportReadyMessage announces that a batch has been ingested and its
// statement computed. The audit worker fetches nothing else; the message
// carries the headline figures it records.
type ReportReadyMessage struct {
	BatchID      string          `json:"batch_id"`
	Months       []core.MonthKey `json:"months"`
	TotalRevenue float64         `json:"total_revenue"`
	EBITDA       float64         `json:"ebitda"`
	Timestamp    time.Time       `json:"timestamp"`
}

func NewReportReadyMessage(batchID string, months []core.MonthKey, totalRevenue, ebitda float64) *ReportReadyMessage {
	return &ReportReadyMessage{
		BatchID:      batchID,
		Months:       months,
		TotalRevenue: totalRevenue,
		EBITDA:       ebitda,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ReportReadyMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportReadyMessageFromJSON creates a message from JSON bytes.
func ReportReadyMessageFromJSON(data []byte) (*ReportReadyMessage, error) {
	var msg ReportReadyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
