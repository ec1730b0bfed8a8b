package notification

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestNewSMTPTransport_Validation(t *testing.T) {
	_, err := NewSMTPTransport(SMTPConfig{FromAddr: "from@example.com"})
	require.EqualError(t, err, "smtp host is required")

	_, err = NewSMTPTransport(SMTPConfig{Host: "smtp.example.com"})
	require.EqualError(t, err, "smtp from address is required")

	tr, err := NewSMTPTransport(SMTPConfig{
		Host:       "smtp.example.com",
		Port:       587,
		Username:   "username",
		Password:   "password",
		FromAddr:   "from@example.com",
		Encryption: EncryptionStartTLS,
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	assert.IsType(t, &SMTPTransport{}, tr)
}

func TestBuildMessage(t *testing.T) {
	cfg := SMTPConfig{FromAddr: "noreply@example.com", FromName: "Mail Adapter"}
	m, err := buildMessage(cfg, SendRequest{
		To:      "user@example.com",
		Subject: "Test Subject",
		HTML:    "<p>Test Body</p>",
		Attachments: []MailAttachment{
			{Filename: "test.pdf", Content: []byte("test file content"), ContentType: "application/pdf"},
			{Filename: "notes.txt", Content: []byte("plain notes"), ContentType: "text/plain"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"<user@example.com>"}, m.GetToString())
	assert.Equal(t, []string{"Test Subject"}, m.GetGenHeader(mail.HeaderSubject))
	require.Len(t, m.GetAttachments(), 2)
	assert.Equal(t, "test.pdf", m.GetAttachments()[0].Name)
	assert.Equal(t, mail.ContentType("application/pdf"), m.GetAttachments()[0].ContentType)
	assert.Equal(t, "notes.txt", m.GetAttachments()[1].Name)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Mail Adapter")
	assert.Contains(t, out, "text/html")
}

func TestBuildMessage_NoAttachments(t *testing.T) {
	m, err := buildMessage(SMTPConfig{FromAddr: "noreply@example.com"}, SendRequest{
		To: "user@example.com", Subject: "S", HTML: "B",
	})
	require.NoError(t, err)
	assert.Empty(t, m.GetAttachments())
}

func TestBuildMessage_InvalidAddresses(t *testing.T) {
	_, err := buildMessage(SMTPConfig{FromAddr: "not an address"}, SendRequest{To: "user@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid from address")

	_, err = buildMessage(SMTPConfig{FromAddr: "noreply@example.com"}, SendRequest{To: "not an address"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestTLSPolicyFromEncryption(t *testing.T) {
	tests := []struct {
		enc  string
		want mail.TLSPolicy
	}{
		{EncryptionSSLTLS, mail.TLSMandatory},
		{EncryptionStartTLS, mail.TLSOpportunistic},
		{EncryptionNone, mail.NoTLS},
		{"", mail.NoTLS},
	}
	for _, tt := range tests {
		t.Run(tt.enc, func(t *testing.T) {
			assert.Equal(t, tt.want, tlsPolicyFromEncryption(tt.enc))
		})
	}
}

func TestSMTPTransport_SendMailConnectionError(t *testing.T) {
	tr, err := NewSMTPTransport(SMTPConfig{
		Host:     "127.0.0.1",
		Port:     1, // nothing listens here
		FromAddr: "from@example.com",
		Timeout:  time.Second,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = tr.SendMail(ctx, SendRequest{To: "user@example.com", Subject: "S", HTML: "B"})
	require.Error(t, err)
}
