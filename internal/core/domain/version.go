package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// pep440Pattern accepts the public version forms used by both PyPI and conda.
var pep440Pattern = regexp.MustCompile(`^v?(?:(\d+)!)?(\d+(?:\.\d+)*)` +
	`(?:[-_.]?(a|b|rc|alpha|beta|pre|preview)[-_.]?(\d*))?` +
	`(?:[-_.]?(post|rev|r)[-_.]?(\d*)|-(\d+))?` +
	`(?:[-_.]?(dev)[-_.]?(\d*))?` +
	`(?:\+([a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`)

var localSeparators = regexp.MustCompile(`[-_.]`)

// Version is a parsed release version.
type Version struct {
	raw     string
	epoch   int
	release []int
	preKind string
	preNum  int
	post    int
	dev     int
	local   []string
	valid   bool
}

// ParseVersion parses a version string. Strings that do not follow the
// PEP 440 shape are kept as opaque versions ordered by natural comparison.
func ParseVersion(s string) Version {
	v := Version{raw: s, post: -1, dev: -1}
	m := pep440Pattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return v
	}

	if m[1] != "" {
		v.epoch = atoi(m[1])
	}
	for _, seg := range strings.Split(m[2], ".") {
		v.release = append(v.release, atoi(seg))
	}
	if m[3] != "" {
		v.preKind = normalizePreKind(m[3])
		v.preNum = atoi(m[4])
	}
	switch {
	case m[5] != "":
		v.post = atoi(m[6])
	case m[7] != "":
		v.post = atoi(m[7])
	}
	if m[8] != "" {
		v.dev = atoi(m[9])
	}
	if m[10] != "" {
		v.local = localSeparators.Split(m[10], -1)
	}
	v.valid = true
	return v
}

// String returns the original version string.
func (v Version) String() string {
	return v.raw
}

// Valid reports whether the version follows the PEP 440 shape.
func (v Version) Valid() bool {
	return v.valid
}

// IsPrerelease reports whether the version is a pre- or development release.
func (v Version) IsPrerelease() bool {
	return v.valid && (v.preKind != "" || v.dev >= 0)
}

// Release returns the numeric release segments.
func (v Version) Release() []int {
	return v.release
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to or after o.
func (v Version) Compare(o Version) int {
	if !v.valid || !o.valid {
		return naturalCompare(v.raw, o.raw)
	}
	if c := compareInt(v.epoch, o.epoch); c != 0 {
		return c
	}

	// The first three release segments go through semver.
	if c := semver.Compare(v.core(), o.core()); c != 0 {
		return c
	}
	for i := 3; i < max(len(v.release), len(o.release)); i++ {
		if c := compareInt(segment(v.release, i), segment(o.release, i)); c != 0 {
			return c
		}
	}
	if c := comparePre(v, o); c != 0 {
		return c
	}
	if c := compareInt(v.post, o.post); c != 0 {
		return c
	}
	if c := compareInt(devKey(v), devKey(o)); c != 0 {
		return c
	}
	return compareLocal(v.local, o.local)
}

// core renders the first three release segments as a semver string.
func (v Version) core() string {
	return fmt.Sprintf("v%d.%d.%d", segment(v.release, 0), segment(v.release, 1), segment(v.release, 2))
}

// comparePre orders the pre-release part through semver. A bare development
// release sorts before every pre-release of the same release, and a version
// without a pre-release part sorts after all of them.
func comparePre(v, o Version) int {
	return semver.Compare("v0.0.0"+v.phase(), "v0.0.0"+o.phase())
}

func (v Version) phase() string {
	switch {
	case v.preKind != "":
		return fmt.Sprintf("-%s.%d", v.preKind, v.preNum)
	case v.dev >= 0 && v.post < 0:
		return "-0"
	default:
		return ""
	}
}

// devKey places a missing development part after every development release.
func devKey(v Version) int {
	if v.dev < 0 {
		return math.MaxInt
	}
	return v.dev
}

// compareLocal orders local labels: no label sorts first, numeric segments
// sort above alphanumeric ones, and a longer label wins a shared prefix.
func compareLocal(a, b []string) int {
	for i := 0; i < min(len(a), len(b)); i++ {
		na, errA := strconv.Atoi(a[i])
		nb, errB := strconv.Atoi(b[i])
		var c int
		switch {
		case errA == nil && errB == nil:
			c = compareInt(na, nb)
		case errA == nil:
			c = 1
		case errB == nil:
			c = -1
		default:
			c = strings.Compare(a[i], b[i])
		}
		if c != 0 {
			return c
		}
	}
	return compareInt(len(a), len(b))
}

// Public returns v without its local label.
func (v Version) Public() Version {
	if len(v.local) == 0 {
		return v
	}
	v.local = nil
	if i := strings.IndexByte(v.raw, '+'); i >= 0 {
		v.raw = v.raw[:i]
	}
	return v
}

// HasLocal reports whether v carries a local label such as "+cpu".
func (v Version) HasLocal() bool {
	return len(v.local) > 0
}

// HasPrefix reports whether the release segments of v start with those of p.
func (v Version) HasPrefix(p Version) bool {
	if !v.valid || !p.valid {
		return v.raw == p.raw || strings.HasPrefix(v.raw, p.raw+".")
	}
	if v.epoch != p.epoch || len(p.release) > len(v.release) {
		return false
	}
	for i, seg := range p.release {
		if v.release[i] != seg {
			return false
		}
	}
	return true
}

func normalizePreKind(kind string) string {
	switch kind {
	case "alpha":
		return "a"
	case "beta":
		return "b"
	case "pre", "preview":
		return "rc"
	default:
		return kind
	}
}

func segment(release []int, i int) int {
	if i < len(release) {
		return release[i]
	}
	return 0
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// naturalCompare orders strings by comparing digit runs numerically and
// everything else byte-wise.
func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		ra, restA := leadingRun(a)
		rb, restB := leadingRun(b)
		if isDigit(ra[0]) && isDigit(rb[0]) {
			if c := compareInt(atoi(ra), atoi(rb)); c != 0 {
				return c
			}
		} else if c := strings.Compare(ra, rb); c != 0 {
			return c
		}
		a, b = restA, restB
	}
	return compareInt(len(a), len(b))
}

func leadingRun(s string) (run, rest string) {
	digit := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}
	return s[:i], s[i:]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
