package resolver

import "go.trai.ch/lumenv/internal/core/domain"

// SelectRelease returns the highest release that satisfies c.
//
// Pre-releases are candidates only when c names a pre-release or when no
// stable release matches. Yanked releases are skipped unless c pins them exactly.
// Equal versions spelled differently resolve to the lexically smallest spelling.
func SelectRelease(releases []domain.Release, c domain.Constraint) (domain.Release, bool) {
	pinned, isPinned := c.Pinned()
	pinnedV := domain.ParseVersion(pinned)
	allowPre := c.AllowsPrerelease()

	var (
		stable, pre       domain.Release
		stableV, preV     domain.Version
		hasStable, hasPre bool
	)
	for _, r := range releases {
		v := domain.ParseVersion(r.Version)
		if r.Yanked && (!isPinned || v.Compare(pinnedV) != 0) {
			continue
		}
		if !c.Matches(v) {
			continue
		}
		if v.IsPrerelease() && !allowPre {
			if !hasPre || better(r, v, pre, preV) {
				pre, preV, hasPre = r, v, true
			}
			continue
		}
		if !hasStable || better(r, v, stable, stableV) {
			stable, stableV, hasStable = r, v, true
		}
	}

	switch {
	case hasStable:
		return stable, true
	case hasPre:
		return pre, true
	default:
		return domain.Release{}, false
	}
}

func better(r domain.Release, v domain.Version, best domain.Release, bestV domain.Version) bool {
	if c := v.Compare(bestV); c != 0 {
		return c > 0
	}
	return r.Version < best.Version
}
