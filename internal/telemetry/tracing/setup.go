package tracing

import (
	"github.com/honeycombio/otel-config-go/otelconfig"
	log "github.com/sirupsen/logrus"
)

// Setup configures the OpenTelemetry SDK via the otelconfig launcher.
// Exporter endpoint and headers come from the standard OTEL_* env vars.
// When tracing is disabled, a no-op shutdown function is returned.
func Setup(enabled bool, serviceName string) (shutdown func(), err error) {
	if !enabled {
		log.Debugln("tracing disabled, otel sdk left unconfigured")
		return func() {}, nil
	}

	return otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(serviceName),
		otelconfig.WithMetricsEnabled(false),
	)
}
