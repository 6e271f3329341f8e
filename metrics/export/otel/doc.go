// Package otel publishes gate metrics as OpenTelemetry observable instruments. Values
// are read from the gate snapshot in a single registered callback.
package otel
