// Package types contains common types used across the application
package types

import (
	"fmt"
	"strings"
)

// Role is a player's combat role as reported by the log summary.
type Role string

// Known roles.
const (
	RoleDamage Role = "dps"
	RoleHealer Role = "healer"
	RoleTank   Role = "tank"
)

// ParseRole normalizes a role string from a report payload. Unrecognized
// values default to damage, matching how log summaries label off-meta specs.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "healer", "heal", "hps":
		return RoleHealer
	case "tank":
		return RoleTank
	default:
		return RoleDamage
	}
}

// Support reports whether the role counts against the support threshold.
func (r Role) Support() bool {
	return r == RoleHealer || r == RoleTank
}

// String returns the wire form of the role.
func (r Role) String() string { return string(r) }

// BuildKey identifies one consolidated aggregate: a build within one boss
// encounter of one trial.
type BuildKey struct {
	Trial string `json:"trial"`
	Boss  string `json:"boss"`
	Slug  string `json:"slug"`
}

// String renders the key in its canonical map form.
func (k BuildKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.Trial, k.Boss, k.Slug)
}

// InstanceKey identifies one player instance by its provenance: the report,
// the fight within it, and the per-report source actor.
type InstanceKey struct {
	ReportCode string `json:"report_code"`
	FightID    int    `json:"fight_id"`
	SourceID   int    `json:"source_id"`
}

// String renders the provenance triple in its canonical form.
func (k InstanceKey) String() string {
	return fmt.Sprintf("%s|%d|%d", k.ReportCode, k.FightID, k.SourceID)
}
