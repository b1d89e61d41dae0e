// Package matcher decides whether a photographed sticker counts against the
// imported manifest. It is pure: callers get fresh collections back and the
// inputs are never mutated.
package matcher

import (
	"fmt"

	detection "github.com/Seryozh/logiscan/internal/features/detection/domain"
	manifest "github.com/Seryozh/logiscan/internal/features/manifest/domain"
)

const (
	noteOrphan    = "Sticker not found in imported package list"
	noteAmbiguous = "Multiple packages match this apartment and tracking number"
)

// Result carries the post-match state: same records, same order, same ids,
// only status, matched-package links and notes changed.
type Result struct {
	Packages   []manifest.Package    `json:"packages"`
	Detections []detection.Detection `json:"detections"`
}

// Match classifies every detection against the package set. Detections are
// processed in input order; within one call the first detection of a combo
// wins the match and later ones with the same combo are duplicates.
func Match(packages []manifest.Package, detections []detection.Detection) Result {
	out := Result{
		Packages:   clonePackages(packages),
		Detections: cloneDetections(detections),
	}

	claimed := claimedCombos(out.Packages, nil, "")

	for i := range out.Detections {
		classify(&out.Detections[i], out.Packages, claimed)
	}

	return out
}

// RematchOne re-runs classification for a single detection, with the claim
// set rebuilt from the other detections' current states plus found/verified
// packages. Given identical inputs it classifies the target exactly as a
// full batch re-run would.
func RematchOne(packages []manifest.Package, detections []detection.Detection, detectionID string) (Result, error) {
	out := Result{
		Packages:   clonePackages(packages),
		Detections: cloneDetections(detections),
	}

	target := -1
	for i := range out.Detections {
		if out.Detections[i].ID == detectionID {
			target = i
			break
		}
	}
	if target == -1 {
		return Result{}, fmt.Errorf("detection not found: %s", detectionID)
	}

	claimed := claimedCombos(out.Packages, out.Detections, detectionID)

	classify(&out.Detections[target], out.Packages, claimed)

	return out, nil
}

// claimedCombos seeds the claim set: every found/verified package's combo,
// plus the combos of currently-matched detections other than excludeID.
func claimedCombos(packages []manifest.Package, detections []detection.Detection, excludeID string) map[string]bool {
	claimed := make(map[string]bool)

	for _, p := range packages {
		if p.Status == manifest.PackageStatusFound || p.Status == manifest.PackageStatusVerified {
			claimed[p.ComboKey()] = true
		}
	}

	for _, d := range detections {
		if d.ID == excludeID || d.Status != detection.DetectionStatusMatched {
			continue
		}
		if key, ok := d.ComboKey(); ok {
			claimed[key] = true
		}
	}

	return claimed
}

// classify runs the per-detection state machine. packages is the working copy
// and may have one element promoted to found; claimed is extended when a
// match is made.
func classify(det *detection.Detection, packages []manifest.Package, claimed map[string]bool) {
	// A detection that already holds a live match keeps it: its combo is in
	// the claim set through its package, and re-running a batch must be a
	// no-op for it.
	if det.Status == detection.DetectionStatusMatched && det.MatchedPackageID != "" {
		if key, ok := det.ComboKey(); ok {
			for i := range packages {
				p := &packages[i]
				if p.ID == det.MatchedPackageID &&
					(p.Status == manifest.PackageStatusFound || p.Status == manifest.PackageStatusVerified) &&
					p.ComboKey() == key {
					return
				}
			}
		}
	}

	det.MatchedPackageID = ""

	key, ok := det.ComboKey()
	if !ok {
		det.Status = detection.DetectionStatusUnreadable
		return
	}

	if claimed[key] {
		det.Status = detection.DetectionStatusDuplicate
		return
	}

	var candidates []int
	for i := range packages {
		if packages[i].Status == manifest.PackageStatusPending && packages[i].ComboKey() == key {
			candidates = append(candidates, i)
		}
	}

	switch len(candidates) {
	case 1:
		pkg := &packages[candidates[0]]
		pkg.Status = manifest.PackageStatusFound
		det.Status = detection.DetectionStatusMatched
		det.MatchedPackageID = pkg.ID
		claimed[key] = true
	case 0:
		det.Status = detection.DetectionStatusOrphan
		det.AppendNote(noteOrphan)
	default:
		det.Status = detection.DetectionStatusAmbiguous
		det.AppendNote(noteAmbiguous)
	}
}

func clonePackages(packages []manifest.Package) []manifest.Package {
	out := make([]manifest.Package, len(packages))
	copy(out, packages)
	return out
}

func cloneDetections(detections []detection.Detection) []detection.Detection {
	out := make([]detection.Detection, len(detections))
	for i, d := range detections {
		out[i] = d.Clone()
	}
	return out
}
