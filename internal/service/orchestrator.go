// Package service orchestrates the per-message pipeline: normalize, score,
// explain, reply and schedule the anonymized log write.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rdsxdev/misinfo-bot/internal/heuristics"
	"github.com/rdsxdev/misinfo-bot/internal/langdetect"
	"github.com/rdsxdev/misinfo-bot/internal/models"
)

// whatsappScheme is the transport tag Twilio prefixes onto sender addresses.
const whatsappScheme = "whatsapp:"

// Explainer produces the natural-language risk explanation.
type Explainer interface {
	Explain(ctx context.Context, text, language string) (string, error)
}

// TextExtractor runs the OCR-equivalent pass over an image attachment.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, format string) (string, error)
}

// MediaFetcher downloads a message attachment.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, url string) ([]byte, string, error)
}

// ReplySender delivers one outbound message.
type ReplySender interface {
	SendWhatsApp(to, body string) error
}

// RecordStore persists anonymized message records.
type RecordStore interface {
	SaveRecord(rec *models.MessageRecord) error
}

// Orchestrator runs the linear pipeline for one inbound message. A nil
// store means the repository was unavailable at startup; log writes are then
// skipped, nothing else changes.
type Orchestrator struct {
	explainer Explainer
	extractor TextExtractor
	fetcher   MediaFetcher
	sender    ReplySender
	store     RecordStore
	logger    *zap.Logger
}

// NewOrchestrator creates the pipeline orchestrator.
func NewOrchestrator(
	explainer Explainer,
	extractor TextExtractor,
	fetcher MediaFetcher,
	sender ReplySender,
	store RecordStore,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		explainer: explainer,
		extractor: extractor,
		fetcher:   fetcher,
		sender:    sender,
		store:     store,
		logger:    logger,
	}
}

// Process handles one inbound message and returns the reply text. Failures
// in the read path (media fetch, text extraction, explanation) are returned
// to the caller; failures in the write path (reply delivery, persistence)
// are logged and swallowed.
func (o *Orchestrator) Process(ctx context.Context, in models.InboundMessage) (string, error) {
	phone := strings.TrimPrefix(in.From, whatsappScheme)
	text := in.Body

	var mediaURLs []string
	if in.NumMedia != "0" && in.MediaURL != "" {
		ocrText, err := o.extractMediaText(ctx, in.MediaURL)
		if err != nil {
			return "", err
		}
		text += " " + ocrText
		mediaURLs = append(mediaURLs, in.MediaURL)
	}

	language := langdetect.ReplyLanguage(text)
	assessment := heuristics.Score(text)

	reply, err := o.explainer.Explain(ctx, text, language)
	if err != nil {
		return "", fmt.Errorf("explanation request failed: %w", err)
	}

	if err := o.sender.SendWhatsApp(phone, reply); err != nil {
		// Delivery failure must not block the webhook response.
		o.logger.Error("Failed to send reply",
			zap.String("phone_hash", models.PhoneHash(phone)),
			zap.Error(err))
	}

	record := buildRecord(in, phone, text, mediaURLs, assessment, time.Now().UTC())
	go o.persistRecord(record)

	return reply, nil
}

func (o *Orchestrator) extractMediaText(ctx context.Context, url string) (string, error) {
	data, contentType, err := o.fetcher.FetchMedia(ctx, url)
	if err != nil {
		return "", fmt.Errorf("media fetch failed: %w", err)
	}

	text, err := o.extractor.ExtractText(ctx, data, imageFormat(contentType))
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	return text, nil
}

// persistRecord runs after the response has been produced; its outcome is
// never observed by the request path.
func (o *Orchestrator) persistRecord(record *models.MessageRecord) {
	if o.store == nil {
		o.logger.Debug("Record store unavailable, skipping log write",
			zap.String("message_id", record.MessageID))
		return
	}

	if err := o.store.SaveRecord(record); err != nil {
		o.logger.Error("Failed to persist message record",
			zap.String("message_id", record.MessageID),
			zap.Error(err))
		return
	}

	o.logger.Info("Message record persisted",
		zap.String("message_id", record.MessageID),
		zap.String("risk_level", record.Analysis.RiskLevel))
}

func buildRecord(in models.InboundMessage, phone, text string, mediaURLs []string, assessment models.RiskAssessment, now time.Time) *models.MessageRecord {
	if mediaURLs == nil {
		mediaURLs = []string{}
	}
	return &models.MessageRecord{
		MessageID:   models.MessageID(in.From, in.Body),
		PhoneHash:   models.PhoneHash(phone),
		RawText:     text,
		MediaURLs:   mediaURLs,
		Analysis:    assessment,
		Status:      models.StatusReceived,
		Timestamp:   now,
		ProcessedAt: now,
	}
}

// imageFormat maps a media content type to the image subtype the extraction
// model expects, e.g. "image/jpeg" to "jpeg".
func imageFormat(contentType string) string {
	format := contentType
	if i := strings.Index(format, ";"); i >= 0 {
		format = format[:i]
	}
	format = strings.TrimSpace(format)
	if i := strings.Index(format, "/"); i >= 0 {
		format = format[i+1:]
	}
	if format == "" {
		return "jpeg"
	}
	return format
}
