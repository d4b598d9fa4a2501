package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	metrics "github.com/soulteary/metrics-kit"
)

var (
	// Registry is the Prometheus registry for totp-seed metrics
	Registry *metrics.Registry

	// GenerateTotal counts code generations by result
	GenerateTotal *prometheus.CounterVec

	// VerifyTotal counts verify attempts by result and reason
	VerifyTotal *prometheus.CounterVec

	// ValidateTotal counts seed validations by reason ("ok" on success)
	ValidateTotal *prometheus.CounterVec

	// URITotal counts otpauth URI operations by op ("encode"/"decode") and result
	URITotal *prometheus.CounterVec

	// Gatherer collects the counters above for the /metrics endpoint
	Gatherer *prometheus.Registry
)

func init() {
	Init()
}

// Init initializes totp-seed metrics
func Init() {
	Registry = metrics.NewRegistry("totp_seed")
	GenerateTotal = Registry.Counter("generate_total").
		Help("Total TOTP codes generated by result").
		Labels("result").
		BuildVec()
	VerifyTotal = Registry.Counter("verify_total").
		Help("Total TOTP verify attempts").
		Labels("result", "reason").
		BuildVec()
	ValidateTotal = Registry.Counter("validate_total").
		Help("Total seed validations by reason").
		Labels("reason").
		BuildVec()
	URITotal = Registry.Counter("uri_total").
		Help("Total otpauth URI encode/decode calls by result").
		Labels("op", "result").
		BuildVec()

	Gatherer = prometheus.NewRegistry()
	Gatherer.MustRegister(GenerateTotal, VerifyTotal, ValidateTotal, URITotal)
}

// Handler serves the counters in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// RecordGenerate records a code generation (result: "success" or "failure")
func RecordGenerate(result string) {
	if GenerateTotal != nil {
		GenerateTotal.WithLabelValues(result).Inc()
	}
}

// RecordVerify records a verify attempt (result: "success" or "failure", reason: e.g. "invalid", "replay")
func RecordVerify(result, reason string) {
	if VerifyTotal != nil {
		VerifyTotal.WithLabelValues(result, reason).Inc()
	}
}

// RecordValidate records a seed validation; an empty reason is recorded as "ok"
func RecordValidate(reason string) {
	if reason == "" {
		reason = "ok"
	}
	if ValidateTotal != nil {
		ValidateTotal.WithLabelValues(reason).Inc()
	}
}

// RecordURI records an otpauth URI operation
func RecordURI(op, result string) {
	if URITotal != nil {
		URITotal.WithLabelValues(op, result).Inc()
	}
}

// Result maps an error onto the "success"/"failure" label used by every counter.
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
