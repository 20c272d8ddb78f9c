package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	sent []Mail
	err  error
}

func (r *recordingMailer) Send(_ context.Context, m Mail) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, m)
	return nil
}

func sampleEvent() TicketIssuedEvent {
	return TicketIssuedEvent{
		TicketID:         "FEL-2026-QX7LM",
		RegistrationID:   12,
		ParticipantName:  "Asha",
		ParticipantEmail: "asha@example.com",
		EventID:          3,
		EventName:        "Hackathon",
		EventDate:        time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		QRPayload:        `{"ticketId":"FEL-2026-QX7LM"}`,
	}
}

func TestConsumerHandleSendsRenderedMail(t *testing.T) {
	logger, _ := test.NewNullLogger()
	m := &recordingMailer{}
	c := NewConsumer("", m, logger)

	body, err := json.Marshal(sampleEvent())
	require.NoError(t, err)
	require.NoError(t, c.Handle(context.Background(), body))

	require.Len(t, m.sent, 1)
	assert.Equal(t, "asha@example.com", m.sent[0].To)
	assert.Contains(t, m.sent[0].Subject, "FEL-2026-QX7LM")
	assert.Contains(t, m.sent[0].Body, "Hackathon")
	assert.Contains(t, m.sent[0].Body, `{"ticketId":"FEL-2026-QX7LM"}`)
}

func TestConsumerHandleRejectsBadMessages(t *testing.T) {
	logger, hook := test.NewNullLogger()
	tests := []struct {
		name   string
		body   []byte
		mailer *recordingMailer
	}{
		{"not json", []byte("{"), &recordingMailer{}},
		{"missing recipient", []byte(`{"ticket_id":"FEL-2026-AAAAA"}`), &recordingMailer{}},
		{"mailer failure", mustJSON(t, sampleEvent()), &recordingMailer{err: errors.New("disk full")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConsumer("", tt.mailer, logger)
			assert.Error(t, c.Handle(context.Background(), tt.body))
			assert.Empty(t, tt.mailer.sent)
		})
	}
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, logrus.InfoLevel, e.Level)
	}
}

func TestFileMailerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mail.log")
	fm := NewFileMailer(path)
	require.NoError(t, fm.Send(context.Background(), RenderTicketMail(sampleEvent())))
	require.NoError(t, fm.Send(context.Background(), Mail{To: "b@example.com", Subject: "s", Body: "b"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "asha@example.com")
	assert.Contains(t, string(data), "b@example.com")
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
