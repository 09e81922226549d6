package node

import (
	"fmt"
	"regexp"

	"github.com/blang/semver/v4"

	"geth-supervisor/core"
)

// Accepted geth versions, both ends inclusive. Light client protocol and CLI
// flags shift between minor releases, so the window is deliberately narrow.
var GethVersions = VersionRange{
	Min: semver.MustParse("1.6.1"),
	Max: semver.MustParse("1.6.999"),
}

var versionPattern = regexp.MustCompile(`Version: (\d+\.\d+\.\d+)`)

// VersionRange is a closed interval of accepted semantic versions.
type VersionRange struct {
	Min semver.Version
	Max semver.Version
}

func NewVersionRange(min, max semver.Version) (VersionRange, error) {
	if min.GT(max) {
		return VersionRange{}, fmt.Errorf("version range min %s > max %s", min, max)
	}
	return VersionRange{Min: min, Max: max}, nil
}

// Check reports whether v falls inside the range.
func (r VersionRange) Check(v semver.Version) error {
	if v.LT(r.Min) || v.GT(r.Max) {
		return fmt.Errorf("%w: incompatible client version %s, accepted range [%s, %s]",
			core.ErrConfiguration, v, r.Min, r.Max)
	}
	return nil
}

// ParseVersion extracts the semantic version from the output of the client's
// version query, e.g. "Geth\nVersion: 1.6.7-stable\n...".
func ParseVersion(output string) (semver.Version, error) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		return semver.Version{}, fmt.Errorf("%w: no version found in client output", core.ErrConfiguration)
	}
	v, err := semver.Parse(m[1])
	if err != nil {
		return semver.Version{}, fmt.Errorf("%w: bad client version %q: %s", core.ErrConfiguration, m[1], err)
	}
	return v, nil
}
