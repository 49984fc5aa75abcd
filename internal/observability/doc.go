// Package observability provides event logging, metrics calculation, and
// alerting for the settlement. It uses structured JSON Lines (JSONL) for
// event persistence, derives metrics on-demand from the event log, and
// exports live gauges to Prometheus.
package observability
