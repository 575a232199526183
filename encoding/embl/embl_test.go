package embl

import (
	"strings"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

// testDat is in the unrepaired IMGT layout.
const testDat = `ID   HLA00001; SV 1; standard; DNA; HUM; 40 BP.
XX
AC   HLA00001;
XX
DE   HLA-A*01:01:01:01, Human MHC Class I sequence
XX
FH   Key            Location/Qualifiers
FH
FT   UTR             1..5
FT                   /note="5'UTR"
FT   exon            6..15
FT                   /number="1"
FT   CDS             join(6..15,21..30,
FT                   31..38)
FT                   /translation="MAVMAPRTLLLLLSGALALTQTWAGSHSMRYFFTSVSRPGRGEPRFIAV
FT                   GYVDDTQFVRFDSDAASQRMEPRAPWIEQEGPEYWDQETRNVKAQSQTDRVDLGTLRG"
FT   intron          16..20
FT                   /number="1"
FT   exon            21..30
FT                   /number="2"
FT   exon            31..38
FT                   /number="3"
FT   UTR             39..40
FT                   /note="3'UTR"
XX
SQ   Sequence 40 BP; 11 A; 10 C; 10 G; 9 T; 0 other;
     acgtacgtac gtacgtacgt ttttgggggc cccaaaaatg                              40
//
ID   HLA00002; SV 1; standard; DNA; HUM; 0 BP.
DE   HLA-A*01:01:01:02N, Human MHC Class I sequence
SQ   Sequence 0 BP;
//
ID   HLA00003; SV 3; standard; DNA; HUM; 12 BP.
DE   HLA-DRB1*01:01:01, Human MHC Class II sequence
FT   source          1..12
FT                   /organism="Homo sapiens"
FT   exon            <1..>12
FT                   /number="2"
SQ   Sequence 12 BP;
     ggggcccctt aa                                                            12
//
`

func parseTestDat(t *testing.T) []Record {
	records, err := Parse(NewRepairReader(strings.NewReader(testDat)))
	assert.NoError(t, err)
	return records
}

func TestParse(t *testing.T) {
	records := parseTestDat(t)
	assert.EQ(t, len(records), 3)

	r := records[0]
	expect.EQ(t, r.ID, "HLA00001")
	expect.EQ(t, r.Version, "1")
	expect.EQ(t, r.AlleleName(), "HLA-A*01:01:01:01")
	expect.EQ(t, r.Locus(), "HLA-A")
	expect.EQ(t, r.Sequence, "ACGTACGTACGTACGTACGTTTTTGGGGGCCCCAAAAATG")
	expect.False(t, r.Withdrawn())
	expect.EQ(t, r.Features, []Feature{
		{Type: UTR, Note: "5'UTR", Start: 0, End: 5},
		{Type: Exon, Number: 1, Start: 5, End: 15},
		{Type: Intron, Number: 1, Start: 15, End: 20},
		{Type: Exon, Number: 2, Start: 20, End: 30},
		{Type: Exon, Number: 3, Start: 30, End: 38},
		{Type: UTR, Note: "3'UTR", Start: 38, End: 40},
	})
	expect.EQ(t, r.Subsequence(r.Features[3]), "TTTTGGGGGC")

	expect.EQ(t, records[1].ID, "HLA00002")
	expect.True(t, records[1].Withdrawn())

	r = records[2]
	expect.EQ(t, r.Version, "3")
	expect.EQ(t, r.Locus(), "HLA-DRB1")
	expect.EQ(t, r.Features, []Feature{{Type: Exon, Number: 2, Start: 0, End: 12}})
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"out of bounds",
			"ID   X1; SV 1; standard; DNA; IMGT; HUM; 4 BP.\nFT   exon            1..9\nSQ   Sequence 4 BP;\n     acgt\n//\n"},
		{"unterminated",
			"ID   X1; SV 1; standard; DNA; IMGT; HUM; 4 BP.\nSQ   Sequence 4 BP;\n     acgt\n"},
		{"bad location",
			"ID   X1; SV 1; standard; DNA; IMGT; HUM; 4 BP.\nFT   exon            4..1\nSQ   Sequence 4 BP;\n     acgt\n//\n"},
		{"orphan line",
			"DE   HLA-A*01:01\n"},
	}
	for _, test := range tests {
		_, err := Parse(strings.NewReader(test.data))
		expect.True(t, err != nil, "%s", test.name)
	}
}

func TestParseMalformedHeader(t *testing.T) {
	data := strings.Replace(testDat, "ID   HLA00003; SV 3; standard; DNA; HUM; 12 BP.", "ID   HLA00003; SV 3;", 1)
	_, err := Parse(NewRepairReader(strings.NewReader(data)))
	_, ok := err.(*MalformedHeaderError)
	expect.True(t, ok, "got %v", err)
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		loc        string
		start, end int
		ok         bool
	}{
		{"301..373", 300, 373, true},
		{"<1..300", 0, 300, true},
		{"3000..>3503", 2999, 3503, true},
		{"7", 6, 7, true},
		{"join(1..2,5..9)", 0, 0, false},
		{"complement(1..5)", 0, 0, false},
	}
	for _, test := range tests {
		start, end, ok, err := parseLocation(test.loc)
		assert.NoError(t, err)
		expect.EQ(t, ok, test.ok, test.loc)
		expect.EQ(t, start, test.start, test.loc)
		expect.EQ(t, end, test.end, test.loc)
	}
}
