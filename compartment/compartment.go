// Package compartment partitions the annotated regions of reference alleles
// into three comparison tiers, ordered by how well they discriminate alleles:
//
//   Primary:        exon 2 (and exon 3 for class-I loci), the antigen
//                   recognition domain.
//   Secondary:      every other exon.
//   IntronOrUTR:    introns and untranslated regions.
package compartment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/hla/encoding/embl"
)

// Locus is an HLA gene with its own allele catalog.
type Locus string

// Loci present in the IMGT/HLA database that can be genotyped.
const (
	HLAA    Locus = "HLA-A"
	HLAB    Locus = "HLA-B"
	HLAC    Locus = "HLA-C"
	HLADPA1 Locus = "HLA-DPA1"
	HLADPB1 Locus = "HLA-DPB1"
	HLADQA1 Locus = "HLA-DQA1"
	HLADQB1 Locus = "HLA-DQB1"
	HLADRA  Locus = "HLA-DRA"
	HLADRB1 Locus = "HLA-DRB1"
	HLADRB3 Locus = "HLA-DRB3"
	HLADRB4 Locus = "HLA-DRB4"
	HLADRB5 Locus = "HLA-DRB5"
	HLADRB6 Locus = "HLA-DRB6"
	HLADRB7 Locus = "HLA-DRB7"
	HLADRB8 Locus = "HLA-DRB8"
	HLADRB9 Locus = "HLA-DRB9"
)

// Loci lists the supported loci.
var Loci = []Locus{
	HLAA, HLAB, HLAC,
	HLADPA1, HLADPB1, HLADQA1, HLADQB1,
	HLADRA, HLADRB1, HLADRB3, HLADRB4, HLADRB5, HLADRB6, HLADRB7, HLADRB8, HLADRB9,
}

// twoExonPrimary is the set of class-I loci whose peptide binding groove is
// encoded by exons 2 and 3.
var twoExonPrimary = map[Locus]bool{
	HLAA: true,
	HLAB: true,
	HLAC: true,
}

// ParseLocus validates a locus name such as "HLA-A".
func ParseLocus(name string) (Locus, error) {
	for _, l := range Loci {
		if string(l) == name {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown locus %q; expect one of %v", name, Loci)
}

// TwoExonPrimary reports whether both exon 2 and exon 3 are primary for l.
func (l Locus) TwoExonPrimary() bool { return twoExonPrimary[l] }

// Kind identifies a compartment.
type Kind int

const (
	// Primary holds the diagnostic exons.
	Primary Kind = iota
	// Secondary holds the remaining exons.
	Secondary
	// IntronOrUTR holds all non-exon regions.
	IntronOrUTR
	// NumKinds is the number of compartments.
	NumKinds
)

var kindNames = [NumKinds]string{"primary", "secondary", "intron/UTR"}

func (k Kind) String() string {
	if k < 0 || k >= NumKinds {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Classify returns the compartment of f for an allele of locus l.
func Classify(f embl.Feature, l Locus) Kind {
	if f.Type != embl.Exon {
		return IntronOrUTR
	}
	if f.Number == 2 || (f.Number == 3 && l.TwoExonPrimary()) {
		return Primary
	}
	return Secondary
}

// Segment is one region of an allele.
type Segment struct {
	// Label identifies the region across alleles, e.g. "exon2", "intron1",
	// "5'UTR".
	Label string
	Seq   string
}

// Set holds the compartments of one allele.
type Set struct {
	AlleleID string
	// Name is the allele designation, e.g. "HLA-A*01:01:01:01".
	Name           string
	Primary        []Segment
	Secondary      []Segment
	IntronsAndUTRs []Segment
}

// Get returns the segments of compartment k.
func (s *Set) Get(k Kind) []Segment {
	switch k {
	case Primary:
		return s.Primary
	case Secondary:
		return s.Secondary
	case IntronOrUTR:
		return s.IntronsAndUTRs
	}
	panic(k)
}

// Len returns the total number of segments.
func (s *Set) Len() int { return len(s.Primary) + len(s.Secondary) + len(s.IntronsAndUTRs) }

// label names a feature so that the same region gets the same label on every
// allele, including partially annotated ones. Exons and introns use their
// number. A UTR is "5'UTR" or "3'UTR", taken from its key or /note, or else
// from whether it follows the coding region. Other unnumbered features fall
// back to their ordinal among features of the same type.
func label(f embl.Feature, afterCoding bool, ordinal int) string {
	if f.Number > 0 {
		return f.Type + strconv.Itoa(f.Number)
	}
	if strings.Contains(f.Type, embl.UTR) {
		for _, s := range []string{f.Type, f.Note} {
			switch {
			case strings.HasPrefix(s, "5'"):
				return utr5
			case strings.HasPrefix(s, "3'"):
				return utr3
			}
		}
		if afterCoding {
			return utr3
		}
		return utr5
	}
	return f.Type + "." + strconv.Itoa(ordinal)
}

const (
	utr5 = "5'UTR"
	utr3 = "3'UTR"
)

// Extract partitions the features of r. Every feature lands in exactly one
// compartment. Primary segments are ordered by exon number, the others are in
// file order.
func Extract(r embl.Record, l Locus) Set {
	s := Set{AlleleID: r.ID, Name: r.AlleleName()}
	var (
		ordinals    = map[string]int{}
		afterCoding bool
		primaryNum  []int
	)
	for _, f := range r.Features {
		var ordinal int
		if f.Number == 0 {
			ordinals[f.Type]++
			ordinal = ordinals[f.Type]
		}
		seg := Segment{Label: label(f, afterCoding, ordinal), Seq: r.Subsequence(f)}
		if f.Type == embl.Exon || f.Type == embl.Intron {
			afterCoding = true
		}
		switch Classify(f, l) {
		case Primary:
			s.Primary = append(s.Primary, seg)
			primaryNum = append(primaryNum, f.Number)
		case Secondary:
			s.Secondary = append(s.Secondary, seg)
		default:
			s.IntronsAndUTRs = append(s.IntronsAndUTRs, seg)
		}
	}
	if len(s.Primary) > 1 {
		idx := make([]int, len(s.Primary))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool { return primaryNum[idx[i]] < primaryNum[idx[j]] })
		sorted := make([]Segment, len(idx))
		for i, j := range idx {
			sorted[i] = s.Primary[j]
		}
		s.Primary = sorted
	}
	return s
}

// NoLocusMatchError is returned when no usable reference allele belongs to the
// requested locus.
type NoLocusMatchError struct {
	Locus Locus
}

func (e *NoLocusMatchError) Error() string {
	return fmt.Sprintf("compartment: no reference allele matches locus %s", e.Locus)
}

// Table is the immutable compartment data of every reference allele of one
// locus, in reference file order. It is safe for concurrent use.
type Table struct {
	locus Locus
	sets  []Set
	index map[string]int
}

// NewTable extracts the compartments of every record that belongs to l and is
// not withdrawn.
func NewTable(records []embl.Record, l Locus) (*Table, error) {
	t := &Table{locus: l, index: map[string]int{}}
	nWithdrawn := 0
	for _, r := range records {
		if r.Locus() != string(l) {
			continue
		}
		if r.Withdrawn() {
			nWithdrawn++
			continue
		}
		if _, ok := t.index[r.ID]; ok {
			log.Error.Printf("compartment: duplicate allele %s ignored", r.ID)
			continue
		}
		t.index[r.ID] = len(t.sets)
		t.sets = append(t.sets, Extract(r, l))
	}
	if len(t.sets) == 0 {
		return nil, &NoLocusMatchError{Locus: l}
	}
	log.Printf("compartment: %d %s alleles (%d withdrawn skipped)", len(t.sets), l, nWithdrawn)
	return t, nil
}

// Locus returns the locus of the table.
func (t *Table) Locus() Locus { return t.locus }

// Len returns the number of alleles.
func (t *Table) Len() int { return len(t.sets) }

// At returns the i'th allele, 0 <= i < Len().
func (t *Table) At(i int) *Set { return &t.sets[i] }

// Lookup finds an allele by ID.
func (t *Table) Lookup(id string) (*Set, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return &t.sets[i], true
}
