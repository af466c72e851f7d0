package config

// TracingConfig toggles the OpenTelemetry stdout exporter.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Pretty      bool
}

// LoadTracingConfig reads TRACING_* variables. Tracing is off by default.
func LoadTracingConfig() TracingConfig {
	return TracingConfig{
		Enabled:     envBool("TRACING_ENABLED", false),
		ServiceName: envStr("TRACING_SERVICE_NAME", "league-registration"),
		Pretty:      envBool("TRACING_PRETTY", false),
	}
}
