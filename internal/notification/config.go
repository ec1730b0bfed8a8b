package notification

import "time"

// Encryption modes accepted in SMTPConfig.Encryption.
const (
	EncryptionNone     = "none"
	EncryptionStartTLS = "starttls"
	EncryptionSSLTLS   = "ssl_tls"
)

// SMTPConfig holds connection parameters for the SMTP transport.
type SMTPConfig struct {
	Host       string        `json:"host"`
	Port       int           `json:"port"`
	Username   string        `json:"username"`
	Password   string        `json:"password"`
	FromAddr   string        `json:"from_address"`
	FromName   string        `json:"from_name"`
	Encryption string        `json:"encryption"` // "none", "starttls", "ssl_tls"
	Timeout    time.Duration `json:"timeout"`
}
