package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the registration gateway.
type Metrics struct {
	RegistrationsCompleted prometheus.Counter
	StepFailures           *prometheus.CounterVec
	CaptchaVerdicts        *prometheus.CounterVec
	EmailDeliveries        *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "enroll_registrations_completed_total",
			Help: "Total number of accounts created through the registration flow",
		}),
		StepFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "enroll_step_validation_failures_total",
			Help: "Validation failures per registration step",
		}, []string{"step"}),
		CaptchaVerdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "enroll_captcha_verdicts_total",
			Help: "Bot-check outcomes during the final step",
		}, []string{"verdict"}),
		EmailDeliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "enroll_email_deliveries_total",
			Help: "Email delivery outcomes per channel",
		}, []string{"channel", "outcome"}),
	}
}

// RecordRegistration increments the completed registrations counter.
func (m *Metrics) RecordRegistration() {
	if m == nil {
		return
	}
	m.RegistrationsCompleted.Inc()
}

// RecordStepFailure increments the validation failure counter for a step.
func (m *Metrics) RecordStepFailure(step string) {
	if m == nil {
		return
	}
	m.StepFailures.WithLabelValues(step).Inc()
}

// RecordCaptchaVerdict counts a bot-check outcome ("pass", "fail" or "error").
func (m *Metrics) RecordCaptchaVerdict(verdict string) {
	if m == nil {
		return
	}
	m.CaptchaVerdicts.WithLabelValues(verdict).Inc()
}

// RecordEmailDelivery counts a delivery attempt outcome for a channel.
func (m *Metrics) RecordEmailDelivery(channel, outcome string) {
	if m == nil {
		return
	}
	m.EmailDeliveries.WithLabelValues(channel, outcome).Inc()
}
