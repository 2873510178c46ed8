// Package prometheus exposes goFactor engine metrics as a
// prometheus.Collector.
//
// The collector reads an engine snapshot on every scrape; nothing is
// registered globally. Counter names are gofactor_*_total and the latency
// histogram is gofactor_verify_latency_seconds.
package prometheus
