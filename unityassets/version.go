package unityassets

import (
	"strconv"
	"strings"

	"github.com/unitygltf/unitygltf/meshdecode"
)

// parseUnityVersion reads a Unity editor version string ("2019.4.1f1",
// "5.6.0p1", "4.7.2") into the major/minor/patch/build tuple meshdecode's
// component-size tables dispatch on. Only the leading digit run of each
// dot-separated field is kept, so the trailing release-type letter
// ("f1"/"p1"/"b3") does not stop the patch field from parsing; the letter's
// own digits become Build.
func parseUnityVersion(s string) meshdecode.VersionTuple {
	fields := strings.SplitN(s, ".", 3)
	v := meshdecode.VersionTuple{}
	if len(fields) > 0 {
		v.Major = leadingInt(fields[0])
	}
	if len(fields) > 1 {
		v.Minor = leadingInt(fields[1])
	}
	if len(fields) > 2 {
		patch, build := splitPatchBuild(fields[2])
		v.Patch = patch
		v.Build = build
	}
	return v
}

func leadingInt(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n, _ := strconv.Atoi(s[:i])
	return n
}

// splitPatchBuild splits a trailing version field like "1f1" into its
// numeric patch (1) and the release build number that follows the first
// non-digit letter (1).
func splitPatchBuild(s string) (patch, build int) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	patch = leadingInt(s[:i])
	j := i
	for j < len(s) && (s[j] < '0' || s[j] > '9') {
		j++
	}
	build = leadingInt(s[j:])
	return patch, build
}
