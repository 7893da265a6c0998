package emailsvc

import (
	"context"
	"net/mail"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cclient/core"
	testutil "github.com/trezcool/cclient/tests"
)

type recordingLogger struct {
	infos []string
}

func (l *recordingLogger) Debug(string, ...interface{})      {}
func (l *recordingLogger) Info(msg string, _ ...interface{}) { l.infos = append(l.infos, msg) }
func (l *recordingLogger) Warn(string, ...interface{})       {}
func (l *recordingLogger) Error(string, ...interface{})      {}
func (l *recordingLogger) Fatal(string, ...interface{})      {}

func newMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Alice Doe", Address: "alice@x.com"}},
		Subject:      "New Verification Code",
		TemplateName: "new_otp",
		TemplateData: struct{ Code, ExpiresIn string }{Code: "654321", ExpiresIn: "5 minutes"},
	}
}

func TestConsoleService_SendMessages(t *testing.T) {
	conf := testutil.NewConfig()
	logger := new(recordingLogger)
	svc := NewConsoleService(conf, testutil.NewEmailTemplates(t, conf), logger)
	ctx := context.Background()

	require.NoError(t, svc.SendMessages(ctx, newMessage(), &core.EmailMessage{Subject: "no recipients", BodyStr: "x"}))

	sent := svc.SentMessages()
	require.Len(t, sent, 1, "messages without recipients are skipped")
	assert.Contains(t, sent[0].TextContent, "654321")
	assert.Contains(t, sent[0].HTMLContent, "654321")

	require.Len(t, logger.infos, 1)
	out := logger.infos[0]
	assert.Contains(t, out, "From: \"CClient Admin\" <noreply@cclient.test>")
	assert.Contains(t, out, "Subject: [CClient Admin] New Verification Code")
	assert.Contains(t, out, "To: \"Alice Doe\" <alice@x.com>")
	assert.Contains(t, out, "Content-Type: text/html")

	t.Run("failure", func(t *testing.T) {
		svc.FailWith(errors.New("smtp down"))
		assert.EqualError(t, svc.SendMessages(ctx, newMessage()), "smtp down")
		assert.Len(t, svc.SentMessages(), 1)
	})

	t.Run("reset", func(t *testing.T) {
		svc.Reset()
		_, ok := svc.LastMessage()
		assert.False(t, ok)
		require.NoError(t, svc.SendMessages(ctx, newMessage()))
		last, ok := svc.LastMessage()
		assert.True(t, ok)
		assert.Equal(t, "New Verification Code", last.Subject)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.Equal(t, context.Canceled, svc.SendMessages(cctx, newMessage()))
	})
}

func TestConsoleServiceMock_silent(t *testing.T) {
	conf := testutil.NewConfig()
	svc := NewConsoleServiceMock(conf, testutil.NewEmailTemplates(t, conf))
	require.NoError(t, svc.SendMessages(context.Background(), newMessage()))
	assert.Len(t, svc.SentMessages(), 1)
}

func TestSendgridService_prepare(t *testing.T) {
	conf := testutil.NewConfig()
	svc := NewSendgridService(conf, nil)

	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Alice Doe", Address: "alice@x.com"}},
		Cc:          []mail.Address{{Address: "cc@x.com"}},
		Subject:     "Password Reset",
		TextContent: "text",
		HTMLContent: "<p>html</p>",
	}
	m := svc.prepare(msg)

	assert.Equal(t, "noreply@cclient.test", m.From.Address)
	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[CClient Admin] Password Reset", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "alice@x.com", p.To[0].Address)
	require.Len(t, p.CC, 1)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "text/html", m.Content[1].Type)
}
