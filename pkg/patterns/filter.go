package patterns

import (
	"math"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
)

// Filter partitions patterns by a confidence threshold. The boundary is
// inclusive: a pattern whose confidence equals the threshold is included.
// Extractor ordering is preserved on both sides; the function is pure so a
// caller can re-invoke it interactively while tuning the threshold.
func Filter(patterns []core.TransformationPattern, threshold float64) (core.FilteredPatternSet, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return core.FilteredPatternSet{}, errors.WithFields(
			errors.New(errors.InvalidThreshold, "threshold must be within [0, 1]"),
			errors.Fields{"threshold": threshold})
	}

	set := core.FilteredPatternSet{
		Included:  make([]core.TransformationPattern, 0, len(patterns)),
		Excluded:  make([]core.TransformationPattern, 0),
		Threshold: threshold,
	}
	for _, p := range patterns {
		if p.Confidence >= threshold {
			set.Included = append(set.Included, p)
		} else {
			set.Excluded = append(set.Excluded, p)
		}
	}
	return set, nil
}
