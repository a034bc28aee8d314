/*
Package monitoring collects bootstrap metrics with Prometheus client_golang.

# Overview

The bootstrap is a short-lived process, so metrics are not served over HTTP.
When SATCHEL_METRICS_FILE is set they are written once at exit in the text
exposition format, ready for the node exporter textfile collector.

# Metrics

- satchel_cache_hits_total / satchel_cache_misses_total
- satchel_extractions_total{result}
- satchel_extracted_files_total, satchel_extracted_bytes_total
- satchel_extraction_duration_seconds
- satchel_compiled_units_total{result}

# Usage

	metrics := monitoring.NewMetrics()
	metrics.RecordCacheHit()
	_ = metrics.WriteTextfile("/var/lib/node_exporter/satchel.prom")
*/
package monitoring
