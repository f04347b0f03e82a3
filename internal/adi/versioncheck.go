package adi

import "fmt"

// Decision classifies an incoming package against the tracked state of the
// same asset.
type Decision int

const (
	// DecisionFreshIngest admits a package for an asset never seen before.
	DecisionFreshIngest Decision = iota
	// DecisionDuplicate drops a package that re-delivers known content.
	DecisionDuplicate
	// DecisionUpdate admits a metadata-only refresh of a tracked asset.
	DecisionUpdate
	// DecisionVersionConflict rejects a package whose version regressed or
	// that updates an asset with no tracked row.
	DecisionVersionConflict
)

func (d Decision) String() string {
	switch d {
	case DecisionFreshIngest:
		return "fresh_ingest"
	case DecisionDuplicate:
		return "duplicate"
	case DecisionUpdate:
		return "update"
	case DecisionVersionConflict:
		return "version_conflict"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// VersionInfo carries the version facts of an incoming package. IsTVOD
// exempts the package from the media-payload check: transactional titles
// legitimately redeliver media alongside metadata bumps.
type VersionInfo struct {
	Major    int
	Minor    int
	HasMedia bool
	IsTVOD   bool
}

// TrackedVersion is the last accepted version of an asset.
type TrackedVersion struct {
	Major int
	Minor int
}

// Classify decides how an incoming package relates to the tracked asset
// state. Major version is compared first; only on equality does the minor
// version decide. A version advance carrying a fresh media payload is
// rejected: metadata updates must not attach content.
func Classify(incoming VersionInfo, existing *TrackedVersion) (Decision, string) {
	if existing == nil {
		return DecisionFreshIngest, "no tracked version"
	}

	update := func(reason string) (Decision, string) {
		if incoming.HasMedia && !incoming.IsTVOD {
			return DecisionVersionConflict, "metadata update contains a media section"
		}
		return DecisionUpdate, reason
	}

	switch {
	case incoming.Major < existing.Major:
		return DecisionVersionConflict, fmt.Sprintf("major regressed: incoming %d, tracked %d", incoming.Major, existing.Major)
	case incoming.Major > existing.Major:
		return update(fmt.Sprintf("major advanced: incoming %d, tracked %d", incoming.Major, existing.Major))
	}

	switch {
	case incoming.Minor < existing.Minor:
		return DecisionVersionConflict, fmt.Sprintf("minor regressed: incoming %d, tracked %d", incoming.Minor, existing.Minor)
	case incoming.Minor == existing.Minor:
		return DecisionDuplicate, fmt.Sprintf("version already tracked: v%d.%d", existing.Major, existing.Minor)
	}
	return update(fmt.Sprintf("minor advanced: incoming %d, tracked %d", incoming.Minor, existing.Minor))
}
