// Package prometheus publishes engine metrics through client_golang.
//
// [Collector] turns each scrape into a snapshot read of the engine counters,
// exported as identity_*_total counters and the
// identity_verify_latency_seconds histogram. Register it with any
// [github.com/prometheus/client_golang/prometheus.Registerer]; the package
// never touches the default registry itself.
package prometheus
