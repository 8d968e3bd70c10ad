package service

import (
	"time"

	"github.com/tamrielmeta/buildscry/internal/adapters/mq/worker"
	"github.com/tamrielmeta/buildscry/internal/adapters/repository"
	"github.com/tamrielmeta/buildscry/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithCredentials sets the logs API credentials used when no source is
// injected.
func WithCredentials(clientID, clientSecret string) Option {
	return func(s *Service) {
		s.clientID = clientID
		s.clientSecret = clientSecret
	}
}

// WithSource sets the report source, replacing the API client the service
// would otherwise construct on Start.
func WithSource(source Source) Option {
	return func(s *Service) {
		if source != nil {
			s.source = source
		}
	}
}

// WithStore sets the build store, replacing the file store the service
// would otherwise construct on Start.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithParser sets the fight table parser.
func WithParser(parser worker.RecordParser) Option {
	return func(s *Service) {
		if parser != nil {
			s.parser = parser
		}
	}
}

// WithTrials restricts scanning to the named trials. An empty list scans
// every trial the API lists.
func WithTrials(trials []string) Option {
	return func(s *Service) {
		s.trials = trials
	}
}

// WithTopLogs sets how many top-ranked logs are pulled per trial.
func WithTopLogs(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topLogs = n
		}
	}
}

// WithDamageThreshold sets the sighting count a damage build needs before
// it is published.
func WithDamageThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.damageThreshold = n
		}
	}
}

// WithSupportThreshold sets the sighting count a healer or tank build
// needs before it is published.
func WithSupportThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.supportThreshold = n
		}
	}
}

// WithWorkerCount sets the number of scan worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the per-pass scan queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithScanInterval makes the service rescan on the given cadence. Without
// it the service scans once and then only serves.
func WithScanInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.scanInterval = interval
		}
	}
}

// WithCacheDir sets the disk tier for API response caching. An empty dir
// keeps the cache memory-only.
func WithCacheDir(dir string) Option {
	return func(s *Service) {
		s.cacheDir = dir
	}
}

// WithCacheSize sets the in-memory response cache entry count.
func WithCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.cacheSize = size
		}
	}
}

// WithRateLimit caps outbound API calls.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Service) {
		if rps > 0 && burst > 0 {
			s.rateRPS = rps
			s.rateBurst = burst
		}
	}
}

// WithOutputPath sets where consolidated builds are persisted.
func WithOutputPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.outputPath = path
		}
	}
}
