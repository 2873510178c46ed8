// Package otel publishes goFactor engine metrics through an OpenTelemetry
// Meter supplied by the caller.
//
// Counters become Int64ObservableCounter instruments. The verify latency
// histogram becomes a cumulative bucket gauge carrying an "le" attribute
// plus a count gauge. All instruments are fed by one callback that reads
// the engine snapshot at collection time.
package otel
