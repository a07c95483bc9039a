package models

import "time"

// InboundMessage is one webhook delivery from the messaging provider.
// It only lives for the duration of a single request.
type InboundMessage struct {
	From     string // sender address, "whatsapp:" prefixed
	Body     string
	NumMedia string // digit string, "0" when no attachment
	MediaURL string // first media attachment URL, optional
}

// RiskAssessment is the output of the heuristic scorer.
type RiskAssessment struct {
	RiskLevel string   `json:"risk_level" db:"risk_level"`
	RiskScore int      `json:"risk_score" db:"risk_score"`
	Triggers  []string `json:"triggers"`
}

// Risk levels in ascending order of severity.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// MessageRecord is the anonymized projection of a processed message that
// gets persisted. It carries the phone hash, never the raw number.
type MessageRecord struct {
	MessageID   string         `json:"message_id"`
	PhoneHash   string         `json:"phone_hash"`
	RawText     string         `json:"raw_text"`
	MediaURLs   []string       `json:"media_urls"`
	Analysis    RiskAssessment `json:"analysis"`
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	ProcessedAt time.Time      `json:"processed_at"`
}

// StatusReceived is the only record status this service writes.
const StatusReceived = "received"
