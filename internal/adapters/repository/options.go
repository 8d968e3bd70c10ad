package repository

import (
	"time"

	"github.com/tamrielmeta/buildscry/pkg/logger"
)

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithPath sets the builds file location.
func WithPath(path string) Option {
	return func(s *FileStore) {
		if path != "" {
			s.path = path
		}
	}
}

// WithAutosaveInterval sets the interval for background saves.
func WithAutosaveInterval(interval time.Duration) Option {
	return func(s *FileStore) {
		if interval > 0 {
			s.autosaveInterval = interval
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *FileStore) {
		if log != nil {
			s.log = log
		}
	}
}
