package notification

import "github.com/prometheus/client_golang/prometheus"

// Delivery counters, labelled by adapter key.
var (
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailadapter_mail_send_success_total",
		Help: "Total number of notifications handed to the mail transport successfully",
	}, []string{"adapter"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailadapter_mail_send_failure_total",
		Help: "Total number of notifications the mail transport failed to deliver",
	}, []string{"adapter"})
	AttachmentsMaterialized = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailadapter_attachments_materialized_total",
		Help: "Total number of attachment files read for outgoing mail",
	}, []string{"adapter"})
)

func init() {
	prometheus.MustRegister(MailSendSuccess, MailSendFailure, AttachmentsMaterialized)

	// Export zero values before the first send.
	MailSendSuccess.WithLabelValues(AdapterKey)
	MailSendFailure.WithLabelValues(AdapterKey)
	AttachmentsMaterialized.WithLabelValues(AdapterKey)
}
