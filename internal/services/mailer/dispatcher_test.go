package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/models"
)

// memoryKV is a map-backed KeyValueStorage for tests
type memoryKV struct {
	values map[string]string
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: make(map[string]string)}
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", interfaces.ErrKeyNotFound
	}
	return value, nil
}

func (m *memoryKV) Set(ctx context.Context, key, value, description string) error {
	m.values[key] = value
	return nil
}

func (m *memoryKV) Upsert(ctx context.Context, key, value, description string) (bool, error) {
	_, existed := m.values[key]
	m.values[key] = value
	return !existed, nil
}

func (m *memoryKV) DeleteAll(ctx context.Context) error {
	m.values = make(map[string]string)
	return nil
}

func (m *memoryKV) GetAll(ctx context.Context) (map[string]string, error) {
	return m.values, nil
}

func futureIntent() *models.NotificationIntent {
	return &models.NotificationIntent{
		ID:            "ntf_test",
		Kind:          models.IntentFutureAlert,
		Component:     "pandas",
		Library:       "pandas",
		ComponentKind: models.ComponentKindLibrary,
		Version:       "3.0.0",
		Category:      models.CategoryFuture,
		Confidence:    85,
		ExpectedDate:  "2026-01-21",
		Features:      []string{"copy-on-write default"},
		SourceURL:     "https://pandas.pydata.org/roadmap",
		Summary:       "pandas 3.0 planned for early 2026",
		Recipients:    []string{"dev@example.com"},
	}
}

func TestRenderSubject(t *testing.T) {
	intent := futureIntent()
	assert.Equal(t, "🔮 Future Update Alert: pandas 3.0.0 Planned", renderSubject(intent))

	intent.Kind = models.IntentReleaseAlert
	assert.Equal(t, "pandas 3.0.0 Released", renderSubject(intent))

	intent.Kind = models.IntentConfidenceAlert
	intent.PreviousConfidence = 70
	intent.Confidence = 80
	assert.Equal(t, "🔺 Confidence Update: pandas 3.0.0 (70% → 80%)", renderSubject(intent))

	intent.Confidence = 95
	assert.Equal(t, "📈 Confidence Update: pandas 3.0.0 (70% → 95%)", renderSubject(intent))
}

func TestRenderFutureHTML(t *testing.T) {
	body := renderHTML(futureIntent())

	assert.Contains(t, body, "upcoming planned")
	assert.Contains(t, body, "pandas")
	assert.Contains(t, body, "(library)")
	assert.Contains(t, body, "3.0.0")
	assert.Contains(t, body, "2026-01-21")
	assert.Contains(t, body, "85%")
	assert.Contains(t, body, "Future Update Notice")
	assert.Contains(t, body, "NOT been officially released")
	assert.Contains(t, body, "copy-on-write default")
	assert.Contains(t, body, "https://pandas.pydata.org/roadmap")
}

func TestRenderReleaseHTML(t *testing.T) {
	intent := futureIntent()
	intent.Kind = models.IntentReleaseAlert
	intent.Category = models.CategoryMajor
	intent.ReleaseDate = "2026-01-21"
	intent.ExpectedDate = ""

	body := renderHTML(intent)
	assert.Contains(t, body, "recent")
	assert.Contains(t, body, "Major")
	assert.NotContains(t, body, "Future Update Notice")
}

func TestRenderConfidenceHTML(t *testing.T) {
	intent := futureIntent()
	intent.Kind = models.IntentConfidenceAlert
	intent.PreviousConfidence = 70
	intent.Confidence = 90
	intent.ChangeReason = "confidence raised from 70 to 90"

	body := renderHTML(intent)
	assert.Contains(t, body, "70%")
	assert.Contains(t, body, "90%")
	assert.Contains(t, body, "+20%")
	assert.Contains(t, body, "confidence raised from 70 to 90")
	assert.Contains(t, body, "View Official Announcement")
}

func TestRenderHTMLEscapesContent(t *testing.T) {
	intent := futureIntent()
	intent.Summary = `<script>alert("x")</script>`

	body := renderHTML(intent)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestRenderText(t *testing.T) {
	text := renderText(futureIntent())
	assert.Contains(t, text, "Future update detected: pandas 3.0.0")
	assert.Contains(t, text, "confidence 85%")
	assert.Contains(t, text, "Expected release: 2026-01-21")
	assert.Contains(t, text, "not been officially released")
}

func TestDispatchTestMode(t *testing.T) {
	mailConfig := &common.MailConfig{TestMode: true, FromName: "LibTrack"}
	service := NewService(mailConfig, newMemoryKV(), arbor.NewLogger())
	dispatcher := NewDispatcher(mailConfig, service, arbor.NewLogger())

	assert.True(t, dispatcher.IsConfigured())
	require.NoError(t, dispatcher.Dispatch(context.Background(), futureIntent()))
}

func TestDispatchNoRecipients(t *testing.T) {
	mailConfig := &common.MailConfig{TestMode: true}
	service := NewService(mailConfig, newMemoryKV(), arbor.NewLogger())
	dispatcher := NewDispatcher(mailConfig, service, arbor.NewLogger())

	intent := futureIntent()
	intent.Recipients = nil
	require.NoError(t, dispatcher.Dispatch(context.Background(), intent))
	require.NoError(t, dispatcher.Dispatch(context.Background(), nil))
}

func TestMailerConfigDefaults(t *testing.T) {
	kv := newMemoryKV()
	kv.values["smtp_host"] = "smtp.example.com"
	kv.values["smtp_port"] = "2525"
	kv.values["smtp_use_tls"] = "false"

	service := NewService(&common.MailConfig{FromName: "LibTrack"}, kv, arbor.NewLogger())
	config, err := service.GetConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com", config.Host)
	assert.Equal(t, 2525, config.Port)
	assert.False(t, config.UseTLS)
	assert.Equal(t, "LibTrack", config.FromName)
	assert.False(t, service.IsConfigured(context.Background()))
}
