// Package worker drains the scan queue.
package worker

import (
	"github.com/tamrielmeta/buildscry/pkg/logger"
)

// Option applies a configuration option to the ScanWorker.
type Option func(*ScanWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *ScanWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithAnnotator replaces the default build annotator.
func WithAnnotator(a Annotator) Option {
	return func(w *ScanWorker) {
		if a != nil {
			w.annotator = a
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *ScanWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}
