package compartment

import (
	"testing"

	"github.com/grailbio/hla/encoding/embl"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

// newRecord builds a record whose sequence is the concatenation of the given
// regions; region i is a run of letter i.
func newRecord(id, name string, features ...embl.Feature) embl.Record {
	r := embl.Record{ID: id, Description: name + ", Human MHC sequence"}
	var seq []byte
	for i, f := range features {
		n := f.End
		f.Start = len(seq)
		f.End = f.Start + n
		for j := 0; j < n; j++ {
			seq = append(seq, "ACGT"[i%4])
		}
		r.Features = append(r.Features, f)
	}
	r.Sequence = string(seq)
	return r
}

func exon(n, length int) embl.Feature { return embl.Feature{Type: embl.Exon, Number: n, End: length} }

func intron(n, length int) embl.Feature {
	return embl.Feature{Type: embl.Intron, Number: n, End: length}
}

func utr(length int) embl.Feature { return embl.Feature{Type: embl.UTR, End: length} }

func utrNote(note string, length int) embl.Feature {
	return embl.Feature{Type: embl.UTR, Note: note, End: length}
}

func labels(segs []Segment) []string {
	var l []string
	for _, s := range segs {
		l = append(l, s.Label)
	}
	return l
}

func TestParseLocus(t *testing.T) {
	l, err := ParseLocus("HLA-DRB1")
	assert.NoError(t, err)
	expect.EQ(t, l, HLADRB1)
	_, err = ParseLocus("HLA-Z")
	expect.True(t, err != nil)
	expect.True(t, HLAA.TwoExonPrimary())
	expect.True(t, HLAC.TwoExonPrimary())
	expect.False(t, HLADQB1.TwoExonPrimary())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		f     embl.Feature
		locus Locus
		want  Kind
	}{
		{exon(2, 1), HLAA, Primary},
		{exon(3, 1), HLAB, Primary},
		{exon(3, 1), HLADRB1, Secondary},
		{exon(2, 1), HLADRB1, Primary},
		{exon(1, 1), HLAC, Secondary},
		{exon(0, 1), HLAA, Secondary},
		{intron(2, 1), HLAA, IntronOrUTR},
		{utr(1), HLADPA1, IntronOrUTR},
	}
	for _, test := range tests {
		expect.EQ(t, Classify(test.f, test.locus), test.want, "%+v %v", test.f, test.locus)
	}
}

func TestExtractClassI(t *testing.T) {
	r := newRecord("HLA00001", "HLA-A*01:01:01:01",
		utr(3), exon(1, 4), intron(1, 2), exon(2, 5), intron(2, 2), exon(3, 6), intron(3, 2), exon(4, 3), utr(2))
	s := Extract(r, HLAA)
	expect.EQ(t, s.AlleleID, "HLA00001")
	expect.EQ(t, s.Name, "HLA-A*01:01:01:01")
	expect.EQ(t, labels(s.Primary), []string{"exon2", "exon3"})
	expect.EQ(t, s.Primary[0].Seq, "TTTTT")
	expect.EQ(t, s.Primary[1].Seq, "CCCCCC")
	expect.EQ(t, labels(s.Secondary), []string{"exon1", "exon4"})
	expect.EQ(t, labels(s.IntronsAndUTRs), []string{"5'UTR", "intron1", "intron2", "intron3", "3'UTR"})
	expect.EQ(t, s.Len(), len(r.Features))
}

func TestExtractUTRLabels(t *testing.T) {
	// No 5'UTR: the remaining UTR is still the 3'UTR, with or without a note.
	r := newRecord("HLA00004", "HLA-A*02:01:01:01", exon(2, 5), exon(3, 5), utr(4))
	expect.EQ(t, labels(Extract(r, HLAA).IntronsAndUTRs), []string{"3'UTR"})
	r = newRecord("HLA00004", "HLA-A*02:01:01:01", exon(2, 5), exon(3, 5), utrNote("3'UTR", 4))
	expect.EQ(t, labels(Extract(r, HLAA).IntronsAndUTRs), []string{"3'UTR"})

	// The note wins over position.
	r = newRecord("HLA00005", "HLA-A*02:01:01:02", utrNote("3'UTR", 3), exon(2, 5))
	expect.EQ(t, labels(Extract(r, HLAA).IntronsAndUTRs), []string{"3'UTR"})
	r = newRecord("HLA00006", "HLA-A*02:01:01:03", utrNote("5'UTR", 3), exon(2, 5), utrNote("3'UTR", 2))
	expect.EQ(t, labels(Extract(r, HLAA).IntronsAndUTRs), []string{"5'UTR", "3'UTR"})
}

func TestExtractClassIExon2Only(t *testing.T) {
	r := newRecord("HLA00002", "HLA-B*07:02:01", exon(2, 5))
	s := Extract(r, HLAB)
	expect.EQ(t, labels(s.Primary), []string{"exon2"})
	expect.EQ(t, len(s.Secondary), 0)
}

func TestExtractPrimaryOrder(t *testing.T) {
	// Exon 3 listed before exon 2 still yields exon2, exon3.
	r := newRecord("HLA00003", "HLA-C*01:02", exon(3, 2), exon(2, 3))
	s := Extract(r, HLAC)
	expect.EQ(t, labels(s.Primary), []string{"exon2", "exon3"})
}

func TestExtractClassII(t *testing.T) {
	r := newRecord("HLA00664", "HLA-DRB1*01:01:01",
		exon(1, 2), intron(1, 2), exon(2, 3), intron(2, 1), exon(3, 4), exon(4, 2), exon(5, 2), exon(6, 1))
	s := Extract(r, HLADRB1)
	expect.EQ(t, labels(s.Primary), []string{"exon2"})
	expect.EQ(t, labels(s.Secondary), []string{"exon1", "exon3", "exon4", "exon5", "exon6"})
	expect.EQ(t, labels(s.IntronsAndUTRs), []string{"intron1", "intron2"})
}

// Every feature must land in exactly one compartment, for every locus.
func TestPartitionComplete(t *testing.T) {
	r := newRecord("HLA00001", "HLA-A*01:01:01:01",
		utr(3), exon(1, 4), intron(1, 2), exon(2, 5), intron(2, 2), exon(3, 6), exon(0, 2), utr(2))
	for _, l := range Loci {
		counts := [NumKinds]int{}
		for _, f := range r.Features {
			counts[Classify(f, l)]++
		}
		s := Extract(r, l)
		for k := Kind(0); k < NumKinds; k++ {
			expect.EQ(t, len(s.Get(k)), counts[k], "%v %v", l, k)
		}
		expect.EQ(t, s.Len(), len(r.Features), l)
	}
}

func TestNewTable(t *testing.T) {
	records := []embl.Record{
		newRecord("HLA00001", "HLA-A*01:01:01:01", exon(2, 3)),
		newRecord("HLA00132", "HLA-B*07:02:01", exon(2, 3)),
		{ID: "HLA00002", Description: "HLA-A*01:01:01:02N, Human MHC Class I sequence", Sequence: "A"},
		newRecord("HLA00005", "HLA-A*02:01:01:01", exon(2, 3), exon(3, 2)),
		newRecord("HLA00001", "HLA-A*01:01:01:01", exon(2, 4)),
	}
	table, err := NewTable(records, HLAA)
	assert.NoError(t, err)
	expect.EQ(t, table.Locus(), HLAA)
	assert.EQ(t, table.Len(), 2)
	expect.EQ(t, table.At(0).AlleleID, "HLA00001")
	expect.EQ(t, table.At(1).AlleleID, "HLA00005")
	s, ok := table.Lookup("HLA00005")
	assert.True(t, ok)
	expect.EQ(t, labels(s.Primary), []string{"exon2", "exon3"})
	_, ok = table.Lookup("HLA00002")
	expect.False(t, ok)

	_, err = NewTable(records, HLADQA1)
	lerr, ok := err.(*NoLocusMatchError)
	assert.True(t, ok)
	expect.EQ(t, lerr.Locus, HLADQA1)
}
