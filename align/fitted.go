package align

import (
	"context"
	"fmt"

	"github.com/biogo/biogo/align"
	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/seq/linear"
	"github.com/grailbio/base/errors"
)

// Fitted aligns the whole reference segment to its best placement anywhere in
// the query, using biogo's fitted Needleman-Wunsch. Unlike a local alignment
// it never clips the segment ends, so a difference costs the same wherever it
// falls in the segment. Bases other than A, C, G and T score like a gap.
type Fitted struct {
	matrix align.Fitted
}

// NewFitted creates a Fitted aligner with the given weights.
func NewFitted(s Scoring) Fitted {
	// Rows and columns are indexed by alphabet.DNAgapped: "-ACGT".
	m := make(align.Fitted, 5)
	for i := range m {
		m[i] = make([]int, 5)
		for j := range m[i] {
			switch {
			case i == 0 && j == 0:
				m[i][j] = 0
			case i == 0 || j == 0:
				m[i][j] = s.Gap
			case i == j:
				m[i][j] = s.Match
			default:
				m[i][j] = s.Mismatch
			}
		}
	}
	return Fitted{matrix: m}
}

// toLetters maps seq onto alphabet.DNAgapped.
func toLetters(seq string) []alphabet.Letter {
	l := make([]alphabet.Letter, len(seq))
	for i := 0; i < len(seq); i++ {
		switch c := seq[i]; c {
		case 'A', 'C', 'G', 'T':
			l[i] = alphabet.Letter(c)
		case 'a', 'c', 'g', 't':
			l[i] = alphabet.Letter(c - 'a' + 'A')
		default:
			l[i] = '-'
		}
	}
	return l
}

type scorer interface {
	Score() int
}

// Align implements Aligner. Mismatches counts substituted and gapped columns
// plus reference bases left unaligned because they hang off the query.
func (f Fitted) Align(ctx context.Context, ref, query string) (res Result, err error) {
	if len(ref) == 0 || len(query) == 0 {
		return Result{}, errors.E(errors.Invalid, "align: empty sequence")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.E(errors.Invalid, fmt.Sprintf("align: fitted: %v", r))
		}
	}()
	// biogo fits its second argument, whole, into a region of its first.
	qs := linear.NewSeq("query", toLetters(query), alphabet.DNAgapped)
	rs := linear.NewSeq("ref", toLetters(ref), alphabet.DNAgapped)
	pairs, err := f.matrix.Align(qs, rs)
	if err != nil {
		return Result{}, errors.E(err, "align: fitted")
	}
	if len(pairs) == 0 {
		return Result{Mismatches: len(ref)}, nil
	}
	for _, p := range pairs {
		if s, ok := p.(scorer); ok {
			res.Score += s.Score()
		}
	}
	fa := align.Format(qs, rs, pairs, '-')
	ql, ok0 := fa[0].(alphabet.Letters)
	rl, ok1 := fa[1].(alphabet.Letters)
	if !ok0 || !ok1 || len(rl) != len(ql) {
		return Result{}, errors.E(errors.Invalid, "align: unexpected alignment format")
	}
	for i := range rl {
		if rl[i] != ql[i] {
			res.Mismatches++
		}
	}
	first := pairs[0].Features()[1]
	last := pairs[len(pairs)-1].Features()[1]
	res.Mismatches += len(ref) - (last.End() - first.Start())
	return res, nil
}
