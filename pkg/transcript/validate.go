package transcript

import (
	"errors"
	"fmt"
)

// Validate reports timing inconsistencies that Format passes through
// untouched: inverted spans and words outside their segment.
func Validate(res Result) error {
	var errs []error
	for i, seg := range res.Segments {
		if seg.End < seg.Start {
			errs = append(errs, fmt.Errorf("segment %d: end %.3f before start %.3f", i, seg.End, seg.Start))
		}
		for j, w := range seg.Words {
			if w.End < w.Start {
				errs = append(errs, fmt.Errorf("segment %d word %d: end %.3f before start %.3f", i, j, w.End, w.Start))
			}
			if w.Start < seg.Start || w.End > seg.End {
				errs = append(errs, fmt.Errorf("segment %d word %d: [%.3f, %.3f] outside segment [%.3f, %.3f]",
					i, j, w.Start, w.End, seg.Start, seg.End))
			}
		}
	}
	return errors.Join(errs...)
}
