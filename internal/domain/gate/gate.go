// Package gate decides which consolidated builds carry enough sightings
// to publish.
package gate

import (
	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/pkg/metrics"
)

// Default sighting minimums. Damage builds appear eight to a raid and
// need more evidence before they mean anything; healers and tanks cap
// out at two apiece, so their bar is lower.
const (
	DefaultDamageMinimum  = 5
	DefaultSupportMinimum = 3
)

// Option applies a configuration option to the Gate.
type Option func(*Gate)

// WithDamageMinimum overrides the sighting minimum for damage builds.
func WithDamageMinimum(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.damageMin = n
		}
	}
}

// WithSupportMinimum overrides the sighting minimum for healer and tank
// builds.
func WithSupportMinimum(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.supportMin = n
		}
	}
}

// Gate holds the publish thresholds.
type Gate struct {
	damageMin  int
	supportMin int
}

// New creates a Gate with the default minimums.
func New(opts ...Option) *Gate {
	g := &Gate{
		damageMin:  DefaultDamageMinimum,
		supportMin: DefaultSupportMinimum,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Publishable reports whether the build has been sighted often enough
// for its role. The role comes from the representative instance.
func (g *Gate) Publishable(b model.ConsolidatedBuild) bool {
	if b.Representative.Player.Role.Support() {
		return b.Count >= g.supportMin
	}
	return b.Count >= g.damageMin
}

// Filter returns the publishable subset of builds, preserving order.
func (g *Gate) Filter(builds []model.ConsolidatedBuild) []model.ConsolidatedBuild {
	out := make([]model.ConsolidatedBuild, 0, len(builds))
	for _, b := range builds {
		if g.Publishable(b) {
			out = append(out, b)
		}
	}

	metrics.UpdatePublishableBuilds(len(out))
	return out
}
