package icongen

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/josephspurrier/goversioninfo"
	"golang.org/x/mod/semver"
)

// defaultVersion is used when no git tag describes the working tree.
const defaultVersion = "0.0.0.0"

var rxFourPartVersion = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)\.(\d+)$`)

// DetectVersion returns the version named by the latest git tag, without a
// leading "v".
func DetectVersion() string {
	output, err := exec.Command("git", "describe", "--tags", "--abbrev=0").Output()
	if err == nil {
		if version := strings.TrimSpace(string(output)); version != "" {
			return strings.TrimPrefix(version, "v")
		}
	}

	// Fall back to any tag on HEAD.
	output, err = exec.Command("git", "tag", "--points-at", "HEAD").Output()
	if err == nil {
		if tags := strings.Fields(string(output)); len(tags) > 0 {
			return strings.TrimPrefix(tags[0], "v")
		}
	}

	return defaultVersion
}

// ParseVersion converts a version string into the four numbers of a
// Windows version resource. It accepts "a.b.c.d" as well as semantic
// versions such as "1.2", "v1.2.3" or "1.2.3-rc.1"; prerelease and build
// metadata are dropped.
func ParseVersion(version string) (goversioninfo.FileVersion, error) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")

	if m := rxFourPartVersion.FindStringSubmatch(version); m != nil {
		var parts [4]int
		for i := range parts {
			n, err := strconv.Atoi(m[i+1])
			if err != nil || n > 0xffff {
				return goversioninfo.FileVersion{}, fmt.Errorf("version %q: component %q out of range", version, m[i+1])
			}
			parts[i] = n
		}
		return goversioninfo.FileVersion{Major: parts[0], Minor: parts[1], Patch: parts[2], Build: parts[3]}, nil
	}

	v := "v" + version
	if !semver.IsValid(v) {
		return goversioninfo.FileVersion{}, fmt.Errorf("version %q is not a semantic version", version)
	}
	canonical := semver.Canonical(v)
	canonical = strings.TrimSuffix(canonical, semver.Prerelease(canonical))
	canonical = strings.TrimPrefix(canonical, "v")

	var fv goversioninfo.FileVersion
	if _, err := fmt.Sscanf(canonical, "%d.%d.%d", &fv.Major, &fv.Minor, &fv.Patch); err != nil {
		return goversioninfo.FileVersion{}, fmt.Errorf("version %q: %w", version, err)
	}
	if fv.Major > 0xffff || fv.Minor > 0xffff || fv.Patch > 0xffff {
		return goversioninfo.FileVersion{}, fmt.Errorf("version %q: component out of range", version)
	}
	return fv, nil
}
