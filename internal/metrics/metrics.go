// Package metrics provides Prometheus metrics for preparation runs. The
// collectors live in a dedicated registry so a run can dump exactly its own
// series to a node-exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Stage outcome labels.
const (
	StatusSkipped   = "skipped"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

var registry = prometheus.NewRegistry()

var (
	// stageExecutionsTotal counts stage outcomes.
	// Labels:
	//   - dataset: dataset identifier (e.g. "ami-sdm")
	//   - stage: stage name (e.g. "namespace")
	//   - status: skipped, succeeded or failed
	stageExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtprep_stage_executions_total",
			Help: "Total number of pipeline stage outcomes",
		},
		[]string{"dataset", "stage", "status"},
	)

	// stageDuration records how long executed stages took.
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mtprep_stage_duration_seconds",
			Help:    "Duration of executed pipeline stages in seconds",
			Buckets: []float64{0.1, 1, 10, 60, 300, 900, 3600, 14400},
		},
		[]string{"dataset", "stage"},
	)

	// commandExecutionsTotal counts external tool invocations.
	// Labels:
	//   - command: binary base name (e.g. "lhotse")
	//   - status: success, failed or timeout
	commandExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtprep_command_executions_total",
			Help: "Total number of external command executions",
		},
		[]string{"command", "status"},
	)

	// exportedFilesTotal counts files written by supervision export.
	exportedFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtprep_exported_files_total",
			Help: "Total number of exported supervision and STM files",
		},
		[]string{"category", "format"},
	)

	// datasetRunsTotal counts per-dataset pipeline outcomes.
	datasetRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtprep_dataset_runs_total",
			Help: "Total number of dataset pipeline runs by outcome",
		},
		[]string{"category", "dataset", "status"},
	)
)

func init() {
	registry.MustRegister(stageExecutionsTotal)
	registry.MustRegister(stageDuration)
	registry.MustRegister(commandExecutionsTotal)
	registry.MustRegister(exportedFilesTotal)
	registry.MustRegister(datasetRunsTotal)
}

// Registry exposes the collectors, mainly for tests and textfile output.
func Registry() *prometheus.Registry {
	return registry
}

// RecordStage records one stage outcome.
func RecordStage(dataset, stage, status string) {
	stageExecutionsTotal.WithLabelValues(dataset, stage, status).Inc()
}

// RecordStageDuration records the runtime of an executed stage.
func RecordStageDuration(dataset, stage string, seconds float64) {
	stageDuration.WithLabelValues(dataset, stage).Observe(seconds)
}

// RecordCommand records an external command outcome.
func RecordCommand(command, status string) {
	commandExecutionsTotal.WithLabelValues(command, status).Inc()
}

// RecordExport records one exported file.
func RecordExport(category, format string) {
	exportedFilesTotal.WithLabelValues(category, format).Inc()
}

// RecordDataset records a dataset pipeline outcome.
func RecordDataset(category, dataset, status string) {
	datasetRunsTotal.WithLabelValues(category, dataset, status).Inc()
}

// WriteTextfile dumps the registry to path in the text exposition format.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics: ensure dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
