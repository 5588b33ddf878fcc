// Package telemetry wires OpenTelemetry tracing and metrics for a single
// tokensaver invocation.
//
// It is off unless telemetry_enabled is set. When on, spans and metrics go
// over OTLP (gRPC or HTTP/protobuf) to a collector, normally a local agent.
// A hook process lives for one command, so Shutdown is bounded and an
// exporter that cannot be built leaves that signal on the global no-op
// provider instead of failing the command.
package telemetry
