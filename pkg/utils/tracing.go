package utils

const defaultServiceName = "sheet-waitlist"

// IsTracingEnabled is off unless OTEL_TRACES_ENABLED parses as true.
func IsTracingEnabled() bool {
	return EnvBool("OTEL_TRACES_ENABLED", false)
}

func OTelServiceName() string {
	return EnvOr("OTEL_SERVICE_NAME", defaultServiceName)
}
