package config_test

import (
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/tamrielmeta/buildscry/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.MetricsAddr, convey.ShouldEqual, ":9091")
			convey.So(cfg.TopLogs, convey.ShouldEqual, 12)
			convey.So(cfg.DamageThreshold, convey.ShouldEqual, 5)
			convey.So(cfg.SupportThreshold, convey.ShouldEqual, 3)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.ScanIntervalMinutes, convey.ShouldEqual, 0)
			convey.So(cfg.CacheDir, convey.ShouldEqual, "cache")
			convey.So(cfg.OutputPath, convey.ShouldEqual, "data/builds.json")
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the addr is emptied", func() {
			cfg.Addr = ""

			convey.Convey("Then validation reports an invalid config", func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the output path is emptied", func() {
			cfg.OutputPath = ""

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When top_logs drops to zero", func() {
			cfg.TopLogs = 0

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a threshold drops to zero", func() {
			cfg.SupportThreshold = 0

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the worker count drops to zero", func() {
			cfg.WorkerCount = 0

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the scan interval goes negative", func() {
			cfg.ScanIntervalMinutes = -1

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
