// Package embl reads the IMGT/HLA reference database (hla.dat), an EMBL-style
// flat file. Each entry looks like
//
//   ID   HLA00001; SV 1; standard; DNA; IMGT; HUM; 3503 BP.
//   DE   HLA-A*01:01:01:01, Human MHC Class I sequence
//   FT   UTR             1..300
//   FT                   /note="5'UTR"
//   FT   exon            301..373
//   FT                   /number="1"
//   ...
//   SQ   Sequence 3503 BP; 775 A; 1045 C; 1041 G; 642 T; 0 other;
//        cagaagcaga gggtcagggc gaagtcccag ggccccaggc gtggctctca gggtctcagg        60
//   //
//
// The IMGT distribution omits the database tag from ID lines; see Repair.
// Only sub-region features (exons, introns and UTRs) with contiguous locations
// are recorded.
package embl

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/hla/util"
	"github.com/pkg/errors"
)

const maxLineLen = 1024 * 1024

// Feature types recorded by the parser.
const (
	Exon   = "exon"
	Intron = "intron"
	UTR    = "UTR"
)

// Feature is an annotated sub-region of a Record.
type Feature struct {
	// Type is the EMBL feature key, e.g. "exon".
	Type string
	// Number is the value of the /number qualifier, or 0 if absent.
	Number int
	// Note is the value of the /note qualifier, e.g. "5'UTR".
	Note string
	// Start and End are 0-based half-open offsets into Record.Sequence.
	Start, End int
}

// Len returns the length of the feature.
func (f Feature) Len() int { return f.End - f.Start }

// Record is one allele entry of the reference database.
type Record struct {
	// ID is the stable accession, e.g. "HLA00001".
	ID string
	// Version is the sequence version from the ID line, "" if missing.
	Version string
	// Description is the DE text, e.g. "HLA-A*01:01:01:01, Human MHC Class I
	// sequence".
	Description string
	// Sequence is the uppercase nucleotide sequence.
	Sequence string
	// Features lists the sub-regions in file order.
	Features []Feature
}

// Locus returns the gene name encoded in the description, e.g. "HLA-A". It
// returns "" if the description has no allele name.
func (r *Record) Locus() string {
	name := r.AlleleName()
	if i := strings.IndexByte(name, '*'); i > 0 {
		return name[:i]
	}
	return ""
}

// AlleleName returns the allele designation from the description, e.g.
// "HLA-A*01:01:01:01".
func (r *Record) AlleleName() string {
	d := r.Description
	if i := strings.IndexAny(d, ", "); i >= 0 {
		d = d[:i]
	}
	return d
}

// Withdrawn reports whether the entry has been deleted from the database.
// IMGT keeps deleted entries with an empty or single-base sequence.
func (r *Record) Withdrawn() bool { return len(r.Sequence) <= 1 }

// Subsequence returns the bases covered by f.
func (r *Record) Subsequence(f Feature) string { return r.Sequence[f.Start:f.End] }

func isRegionKey(key string) bool {
	return key == Exon || key == Intron || strings.Contains(key, UTR)
}

type parser struct {
	lineNum int
	records []Record
	cur     *Record
	inSeq   bool
	seq     strings.Builder
	desc    []string

	// Feature table state.
	fKey   string
	fLoc   string
	fQuals [][2]string
	fLine  int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return errors.Errorf("embl: line %d: "+format, append([]interface{}{p.lineNum}, args...)...)
}

// parseLocation parses a contiguous EMBL location ("12..345", "<1..300",
// "7"). ok is false for non-contiguous locations such as join(...).
func parseLocation(loc string) (start, end int, ok bool, err error) {
	if strings.ContainsAny(loc, "(,^:") {
		return 0, 0, false, nil
	}
	loc = strings.NewReplacer("<", "", ">", "").Replace(loc)
	from, to := loc, loc
	if i := strings.Index(loc, ".."); i >= 0 {
		from, to = loc[:i], loc[i+2:]
	}
	s, err := strconv.Atoi(from)
	if err != nil {
		return 0, 0, false, err
	}
	e, err := strconv.Atoi(to)
	if err != nil {
		return 0, 0, false, err
	}
	if s < 1 || e < s {
		return 0, 0, false, errors.Errorf("invalid location %q", loc)
	}
	return s - 1, e, true, nil
}

// flushFeature converts the pending feature table entry, if any.
func (p *parser) flushFeature() error {
	if p.fKey == "" {
		return nil
	}
	key, loc, quals, line := p.fKey, p.fLoc, p.fQuals, p.fLine
	p.fKey, p.fLoc, p.fQuals = "", "", nil
	if !isRegionKey(key) {
		return nil
	}
	start, end, ok, err := parseLocation(loc)
	if err != nil {
		return errors.Wrapf(err, "embl: line %d", line)
	}
	if !ok {
		log.Debug.Printf("embl: %s: skipping non-contiguous %s at %s", p.cur.ID, key, loc)
		return nil
	}
	f := Feature{Type: key, Start: start, End: end}
	for _, q := range quals {
		switch q[0] {
		case "number":
			if f.Number, err = strconv.Atoi(q[1]); err != nil {
				log.Debug.Printf("embl: %s: ignoring non-numeric /number=%q", p.cur.ID, q[1])
				f.Number = 0
			}
		case "note":
			f.Note = q[1]
		}
	}
	p.cur.Features = append(p.cur.Features, f)
	return nil
}

func (p *parser) featureLine(body string) error {
	if len(body) > 0 && body[0] != ' ' {
		// New feature key.
		if err := p.flushFeature(); err != nil {
			return err
		}
		fields := strings.Fields(body)
		p.fKey = fields[0]
		if len(fields) > 1 {
			p.fLoc = fields[1]
		}
		p.fLine = p.lineNum
		return nil
	}
	if p.fKey == "" {
		return nil
	}
	text := strings.TrimSpace(body)
	if strings.HasPrefix(text, "/") {
		name, value := text[1:], ""
		if i := strings.IndexByte(name, '='); i >= 0 {
			name, value = name[:i], name[i+1:]
		}
		p.fQuals = append(p.fQuals, [2]string{name, strings.Trim(value, `"`)})
		return nil
	}
	// Continuation of the location or of the last qualifier value.
	if len(p.fQuals) == 0 {
		p.fLoc += text
	} else {
		q := &p.fQuals[len(p.fQuals)-1]
		q[1] += strings.Trim(text, `"`)
	}
	return nil
}

func (p *parser) finishRecord() error {
	if err := p.flushFeature(); err != nil {
		return err
	}
	r := p.cur
	r.Sequence = strings.ToUpper(p.seq.String())
	r.Description = strings.Join(p.desc, " ")
	if !r.Withdrawn() {
		for _, f := range r.Features {
			if f.End > len(r.Sequence) {
				return p.errorf("%s: %s %d..%d exceeds sequence length %d",
					r.ID, f.Type, f.Start+1, f.End, len(r.Sequence))
			}
		}
	}
	p.records = append(p.records, *r)
	p.cur = nil
	p.inSeq = false
	p.seq.Reset()
	p.desc = nil
	return nil
}

func (p *parser) line(line string) error {
	if strings.HasPrefix(line, "//") {
		if p.cur == nil {
			return p.errorf("record terminator without ID line")
		}
		return p.finishRecord()
	}
	if p.inSeq {
		for i := 0; i < len(line); i++ {
			c := line[i]
			if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
				p.seq.WriteByte(c)
			}
		}
		return nil
	}
	if len(line) < 2 {
		return nil
	}
	code := line[:2]
	body := ""
	if len(line) > 5 {
		body = line[5:]
	}
	if code == "ID" {
		if p.cur != nil {
			return p.errorf("ID line inside record %s", p.cur.ID)
		}
		tokens := strings.Fields(line)
		if len(tokens) < 2 {
			return &MalformedHeaderError{Line: p.lineNum, Header: line}
		}
		p.cur = &Record{ID: strings.TrimSuffix(tokens[1], ";")}
		if len(tokens) > 3 && tokens[2] == "SV" {
			p.cur.Version = strings.TrimSuffix(tokens[3], ";")
		}
		return nil
	}
	if p.cur == nil {
		return p.errorf("%s line outside of a record", code)
	}
	switch code {
	case "DE":
		if d := strings.TrimSpace(body); d != "" {
			p.desc = append(p.desc, d)
		}
	case "FT":
		return p.featureLine(body)
	case "SQ":
		if err := p.flushFeature(); err != nil {
			return err
		}
		p.inSeq = true
	}
	return nil
}

// Parse reads all records from a standard-format stream. Use NewRepairReader
// to read IMGT files.
func Parse(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineLen)
	p := &parser{}
	for sc.Scan() {
		p.lineNum++
		if err := p.line(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		if _, ok := err.(*MalformedHeaderError); ok {
			return nil, err
		}
		return nil, errors.Wrap(err, "couldn't read EMBL data")
	}
	if p.cur != nil {
		return nil, p.errorf("%s: missing record terminator", p.cur.ID)
	}
	return p.records, nil
}

// ReadFile opens the IMGT reference at path (optionally gzipped), repairs its
// ID lines and parses it.
func ReadFile(ctx context.Context, path string) (records []Record, err error) {
	in, err := util.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	if records, err = Parse(NewRepairReader(in.Reader())); err != nil {
		return nil, err
	}
	log.Printf("embl: read %d records from %s", len(records), path)
	return records, nil
}
