package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rdsxdev/misinfo-bot/internal/models"
)

type fakeExplainer struct {
	reply string
	err   error
	calls int
	text  string
	lang  string
}

func (f *fakeExplainer) Explain(_ context.Context, text, language string) (string, error) {
	f.calls++
	f.text = text
	f.lang = language
	return f.reply, f.err
}

type fakeExtractor struct {
	text   string
	err    error
	calls  int
	format string
}

func (f *fakeExtractor) ExtractText(_ context.Context, _ []byte, format string) (string, error) {
	f.calls++
	f.format = format
	return f.text, f.err
}

type fakeFetcher struct {
	data        []byte
	contentType string
	err         error
	calls       int
}

func (f *fakeFetcher) FetchMedia(_ context.Context, _ string) ([]byte, string, error) {
	f.calls++
	return f.data, f.contentType, f.err
}

type fakeSender struct {
	err   error
	calls int
	to    string
	body  string
}

func (f *fakeSender) SendWhatsApp(to, body string) error {
	f.calls++
	f.to = to
	f.body = body
	return f.err
}

type fakeStore struct {
	saved chan *models.MessageRecord
	err   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(chan *models.MessageRecord, 1)}
}

func (f *fakeStore) SaveRecord(rec *models.MessageRecord) error {
	f.saved <- rec
	return f.err
}

func (f *fakeStore) waitForRecord(t *testing.T) *models.MessageRecord {
	t.Helper()
	select {
	case rec := <-f.saved:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for background record write")
		return nil
	}
}

func textMessage(body string) models.InboundMessage {
	return models.InboundMessage{
		From:     "whatsapp:+14155550100",
		Body:     body,
		NumMedia: "0",
	}
}

func TestProcessTextMessage(t *testing.T) {
	explainer := &fakeExplainer{reply: "Likely a scam."}
	fetcher := &fakeFetcher{}
	sender := &fakeSender{}
	store := newFakeStore()
	orch := NewOrchestrator(explainer, &fakeExtractor{}, fetcher, sender, store, zap.NewNop())

	reply, err := orch.Process(context.Background(), textMessage("You are a winner of our lottery"))
	require.NoError(t, err)
	assert.Equal(t, "Likely a scam.", reply)

	// No media fetch for NumMedia="0".
	assert.Zero(t, fetcher.calls)
	assert.Equal(t, "You are a winner of our lottery", explainer.text)
	assert.Equal(t, "English", explainer.lang)

	// Scheme tag is stripped before the reply is addressed.
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "+14155550100", sender.to)
	assert.Equal(t, "Likely a scam.", sender.body)

	rec := store.waitForRecord(t)
	assert.Equal(t, models.MessageID("whatsapp:+14155550100", "You are a winner of our lottery"), rec.MessageID)
	assert.Equal(t, models.PhoneHash("+14155550100"), rec.PhoneHash)
	assert.Equal(t, models.RiskMedium, rec.Analysis.RiskLevel)
	assert.Equal(t, 20, rec.Analysis.RiskScore)
	assert.Empty(t, rec.MediaURLs)
	assert.Equal(t, models.StatusReceived, rec.Status)
	assert.False(t, rec.ProcessedAt.IsZero())
}

func TestProcessAppendsExtractedMediaText(t *testing.T) {
	explainer := &fakeExplainer{reply: "ok"}
	extractor := &fakeExtractor{text: "win a free prize"}
	fetcher := &fakeFetcher{data: []byte("img"), contentType: "image/png"}
	store := newFakeStore()
	orch := NewOrchestrator(explainer, extractor, fetcher, &fakeSender{}, store, zap.NewNop())

	in := models.InboundMessage{
		From:     "whatsapp:+14155550100",
		Body:     "look at this",
		NumMedia: "1",
		MediaURL: "https://api.example.com/media/0",
	}

	_, err := orch.Process(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 1, extractor.calls)
	assert.Equal(t, "png", extractor.format)
	assert.Equal(t, "look at this win a free prize", explainer.text)

	rec := store.waitForRecord(t)
	assert.Equal(t, []string{"https://api.example.com/media/0"}, rec.MediaURLs)
	assert.Equal(t, "look at this win a free prize", rec.RawText)
}

func TestProcessSkipsFetchWithoutMediaURL(t *testing.T) {
	fetcher := &fakeFetcher{}
	orch := NewOrchestrator(&fakeExplainer{reply: "ok"}, &fakeExtractor{}, fetcher, &fakeSender{}, newFakeStore(), zap.NewNop())

	in := models.InboundMessage{From: "whatsapp:+1", Body: "hi", NumMedia: "1"}
	_, err := orch.Process(context.Background(), in)
	require.NoError(t, err)
	assert.Zero(t, fetcher.calls)
}

func TestProcessMediaFetchFailureIsFatal(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("fetch boom")}
	sender := &fakeSender{}
	orch := NewOrchestrator(&fakeExplainer{reply: "ok"}, &fakeExtractor{}, fetcher, sender, newFakeStore(), zap.NewNop())

	in := models.InboundMessage{From: "whatsapp:+1", Body: "hi", NumMedia: "1", MediaURL: "https://x/media"}
	_, err := orch.Process(context.Background(), in)
	assert.ErrorContains(t, err, "media fetch failed")
	assert.Zero(t, sender.calls, "no reply is sent when the read path fails")
}

func TestProcessExplainFailureIsFatal(t *testing.T) {
	explainer := &fakeExplainer{err: errors.New("model down")}
	sender := &fakeSender{}
	orch := NewOrchestrator(explainer, &fakeExtractor{}, &fakeFetcher{}, sender, newFakeStore(), zap.NewNop())

	_, err := orch.Process(context.Background(), textMessage("hi"))
	assert.ErrorContains(t, err, "explanation request failed")
	assert.Zero(t, sender.calls)
}

func TestProcessReplyFailureIsSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("twilio unavailable")}
	store := newFakeStore()
	orch := NewOrchestrator(&fakeExplainer{reply: "still here"}, &fakeExtractor{}, &fakeFetcher{}, sender, store, zap.NewNop())

	reply, err := orch.Process(context.Background(), textMessage("hi"))
	require.NoError(t, err)
	assert.Equal(t, "still here", reply)
	// Logging still happens after a delivery failure.
	store.waitForRecord(t)
}

func TestProcessWithNilStore(t *testing.T) {
	orch := NewOrchestrator(&fakeExplainer{reply: "ok"}, &fakeExtractor{}, &fakeFetcher{}, &fakeSender{}, nil, zap.NewNop())

	reply, err := orch.Process(context.Background(), textMessage("hi"))
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
}

func TestRecordNeverContainsRawPhone(t *testing.T) {
	store := newFakeStore()
	orch := NewOrchestrator(&fakeExplainer{reply: "ok"}, &fakeExtractor{}, &fakeFetcher{}, &fakeSender{}, store, zap.NewNop())

	_, err := orch.Process(context.Background(), textMessage("hello"))
	require.NoError(t, err)

	rec := store.waitForRecord(t)
	assert.NotContains(t, rec.PhoneHash, "4155550100")
	assert.NotContains(t, rec.RawText, "+14155550100")
	assert.Len(t, rec.PhoneHash, 16)
}

func TestImageFormat(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/jpeg", "jpeg"},
		{"image/png; charset=binary", "png"},
		{"", "jpeg"},
		{"jpeg", "jpeg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, imageFormat(tt.contentType), tt.contentType)
	}
}
