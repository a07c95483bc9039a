// Package repository persists anonymized message records in SQLite.
package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/rdsxdev/misinfo-bot/internal/models"
)

// MessageRepository stores one row per message identifier. Writes are
// idempotent upserts: a redelivered webhook overwrites its own record.
type MessageRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// messageRow is the flat SQL projection of models.MessageRecord. The
// media_urls and triggers columns hold JSON arrays.
type messageRow struct {
	MessageID   string `db:"message_id"`
	PhoneHash   string `db:"phone_hash"`
	RawText     string `db:"raw_text"`
	MediaURLs   string `db:"media_urls"`
	RiskLevel   string `db:"risk_level"`
	RiskScore   int    `db:"risk_score"`
	Triggers    string `db:"triggers"`
	Status      string `db:"status"`
	Timestamp   string `db:"timestamp"`
	ProcessedAt string `db:"processed_at"`
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// NewMessageRepository opens (or creates) the database at path and applies
// the schema.
func NewMessageRepository(path string, logger *zap.Logger) (*MessageRepository, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &MessageRepository{db: db, logger: logger}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Message repository initialized", zap.String("db_path", path))
	return repo, nil
}

func (r *MessageRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		message_id TEXT PRIMARY KEY,
		phone_hash TEXT NOT NULL,
		raw_text TEXT NOT NULL,
		media_urls TEXT NOT NULL,
		risk_level TEXT NOT NULL,
		risk_score INTEGER NOT NULL,
		triggers TEXT NOT NULL,
		status TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		processed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_risk_level ON messages(risk_level);
	CREATE INDEX IF NOT EXISTS idx_messages_processed_at ON messages(processed_at);
	`
	_, err := r.db.Exec(schema)
	return err
}

// SaveRecord upserts one record keyed by message_id.
func (r *MessageRepository) SaveRecord(rec *models.MessageRecord) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT OR REPLACE INTO messages (
			message_id, phone_hash, raw_text, media_urls,
			risk_level, risk_score, triggers, status, timestamp, processed_at
		) VALUES (
			:message_id, :phone_hash, :raw_text, :media_urls,
			:risk_level, :risk_score, :triggers, :status, :timestamp, :processed_at
		)
	`

	if _, err := r.db.NamedExec(query, row); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// GetRecord retrieves a single record by identifier.
func (r *MessageRepository) GetRecord(messageID string) (*models.MessageRecord, error) {
	var row messageRow
	err := r.db.Get(&row, `
		SELECT message_id, phone_hash, raw_text, media_urls,
		       risk_level, risk_score, triggers, status, timestamp, processed_at
		FROM messages WHERE message_id = ?`, messageID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return fromRow(&row)
}

// ListRecent returns the most recently processed records.
func (r *MessageRepository) ListRecent(limit int) ([]*models.MessageRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []messageRow
	err := r.db.Select(&rows, `
		SELECT message_id, phone_hash, raw_text, media_urls,
		       risk_level, risk_score, triggers, status, timestamp, processed_at
		FROM messages
		ORDER BY processed_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]*models.MessageRecord, 0, len(rows))
	for i := range rows {
		rec, err := fromRow(&rows[i])
		if err != nil {
			r.logger.Error("Failed to decode record", zap.Error(err),
				zap.String("message_id", rows[i].MessageID))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Stats returns record counts, total and per risk level.
func (r *MessageRepository) Stats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var total int
	if err := r.db.Get(&total, "SELECT COUNT(*) FROM messages"); err != nil {
		return nil, err
	}
	stats["total"] = total

	rows, err := r.db.Query(`
		SELECT risk_level, COUNT(*) FROM messages
		GROUP BY risk_level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byLevel := make(map[string]int)
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			continue
		}
		byLevel[level] = count
	}
	stats["by_risk_level"] = byLevel

	return stats, nil
}

// Close closes the database connection.
func (r *MessageRepository) Close() error {
	return r.db.Close()
}

func toRow(rec *models.MessageRecord) (*messageRow, error) {
	mediaURLs := rec.MediaURLs
	if mediaURLs == nil {
		mediaURLs = []string{}
	}
	media, err := json.Marshal(mediaURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode media urls: %w", err)
	}

	triggers := rec.Analysis.Triggers
	if triggers == nil {
		triggers = []string{}
	}
	trig, err := json.Marshal(triggers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode triggers: %w", err)
	}

	return &messageRow{
		MessageID:   rec.MessageID,
		PhoneHash:   rec.PhoneHash,
		RawText:     rec.RawText,
		MediaURLs:   string(media),
		RiskLevel:   rec.Analysis.RiskLevel,
		RiskScore:   rec.Analysis.RiskScore,
		Triggers:    string(trig),
		Status:      rec.Status,
		Timestamp:   rec.Timestamp.UTC().Format(time.RFC3339Nano),
		ProcessedAt: rec.ProcessedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func fromRow(row *messageRow) (*models.MessageRecord, error) {
	rec := &models.MessageRecord{
		MessageID: row.MessageID,
		PhoneHash: row.PhoneHash,
		RawText:   row.RawText,
		Analysis: models.RiskAssessment{
			RiskLevel: row.RiskLevel,
			RiskScore: row.RiskScore,
		},
		Status: row.Status,
	}

	if err := json.Unmarshal([]byte(row.MediaURLs), &rec.MediaURLs); err != nil {
		return nil, fmt.Errorf("failed to decode media urls: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Triggers), &rec.Analysis.Triggers); err != nil {
		return nil, fmt.Errorf("failed to decode triggers: %w", err)
	}

	if ts, err := parseTime(row.Timestamp); err == nil {
		rec.Timestamp = ts
	}
	if ts, err := parseTime(row.ProcessedAt); err == nil {
		rec.ProcessedAt = ts
	}
	return rec, nil
}
