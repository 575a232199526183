package align

import (
	"context"

	"github.com/grailbio/base/errors"
)

// Ungapped places the reference segment at every offset of the query,
// including offsets where it hangs off either end, and keeps the placement
// with the fewest mismatches (the leftmost on ties). Overhanging reference
// bases count as mismatches. It is much faster than Fitted and exact
// for alleles that differ only by substitutions.
type Ungapped struct {
	Scoring Scoring
}

// Align implements Aligner.
func (u Ungapped) Align(ctx context.Context, ref, query string) (Result, error) {
	if len(ref) == 0 || len(query) == 0 {
		return Result{}, errors.E(errors.Invalid, "align: empty sequence")
	}
	best := Result{Mismatches: len(ref) + 1}
	for off := -(len(ref) - 1); off < len(query); off++ {
		if off&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		mismatches := 0
		for i := 0; i < len(ref) && mismatches < best.Mismatches; i++ {
			j := off + i
			if j < 0 || j >= len(query) || !sameBase(ref[i], query[j]) {
				mismatches++
			}
		}
		if mismatches < best.Mismatches {
			matches := len(ref) - mismatches
			best = Result{
				Mismatches: mismatches,
				Score:      matches*u.Scoring.Match + mismatches*u.Scoring.Mismatch,
			}
			if mismatches == 0 {
				break
			}
		}
	}
	return best, nil
}

func sameBase(a, b byte) bool {
	return a|0x20 == b|0x20
}
