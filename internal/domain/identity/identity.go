// Package identity derives the canonical string identity of a build.
//
// The identity must collapse structurally identical builds found in
// unrelated reports onto one key, so it is computed only from the three
// subclasses and the dominant set pair, never from report or player data.
package identity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tamrielmeta/buildscry/internal/domain/skillline"
)

const (
	// perfectedPrefix marks the trial-variant of a set; both variants
	// share one identity.
	perfectedPrefix = "perfected "
	// unknownSetToken pads the dominant pair when fewer than two sets
	// qualify.
	unknownSetToken = "unknown"
	delimiter       = "-"
)

// SlugSet canonicalizes a set name into its identity token: the perfected
// prefix is stripped, the rest lowercased, apostrophes dropped and spaces
// hyphenated. The literal set name stays untouched for display.
func SlugSet(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	lower = strings.TrimPrefix(lower, perfectedPrefix)
	lower = strings.ReplaceAll(lower, "'", "")
	return strings.ReplaceAll(lower, " ", delimiter)
}

// Slug returns the canonical build identity for three subclasses and up to
// two dominant set names. It is pure: equal inputs give equal slugs on
// every call, in every process.
//
// Slug panics when the subclass slice does not hold exactly three entries;
// classification always pads to three, so anything else is a logic defect
// upstream, not a data-quality problem.
func Slug(subclasses []skillline.Line, dominant []string) string {
	if len(subclasses) != skillline.SubclassCount {
		panic(fmt.Sprintf("identity: expected %d subclasses, got %d", skillline.SubclassCount, len(subclasses)))
	}

	subclassTokens := make([]string, 0, len(subclasses))
	for _, line := range subclasses {
		subclassTokens = append(subclassTokens, strings.ToLower(line.Abbrev()))
	}
	sort.Strings(subclassTokens)

	setTokens := make([]string, 0, 2)
	for _, name := range dominant {
		if len(setTokens) == 2 {
			break
		}
		if token := SlugSet(name); token != "" {
			setTokens = append(setTokens, token)
		}
	}
	sort.Strings(setTokens)
	for len(setTokens) < 2 {
		setTokens = append(setTokens, unknownSetToken)
	}

	return strings.Join(append(subclassTokens, setTokens...), delimiter)
}
