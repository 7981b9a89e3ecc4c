package amqp

import (
	"encoding/json"
	"time"
)

// SettlementSyncMessage is a lightweight pointer to a settlement that needs
// exporting. The worker fetches the full settlement from the database, so the
// message only carries enough to locate it and detect stale deliveries.
type SettlementSyncMessage struct {
	SettlementID string    `json:"settlement_id"`
	HouseholdID  string    `json:"household_id"`
	Month        string    `json:"month"`
	Version      int64     `json:"version"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewSettlementSyncMessage(settlementID, householdID, month string, version int64) *SettlementSyncMessage {
	return &SettlementSyncMessage{
		SettlementID: settlementID,
		HouseholdID:  householdID,
		Month:        month,
		Version:      version,
		Timestamp:    time.Now(),
	}
}

func (m *SettlementSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SettlementSyncMessageFromJSON(data []byte) (*SettlementSyncMessage, error) {
	var msg SettlementSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
