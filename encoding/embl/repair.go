package embl

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/hla/util"
	"github.com/pkg/errors"
)

// DatabaseTag is the token the IMGT/HLA distribution omits from its ID lines.
// Standard EMBL ID lines carry it in the 7th whitespace-delimited column.
const DatabaseTag = "IMGT;"

// minIDTokens is the number of whitespace-delimited tokens of an unrepaired
// IMGT ID line, e.g.
//
//   ID   HLA00001; SV 1; standard; DNA; HUM; 3503 BP.
const minIDTokens = 9

// tagColumn is the token index where DatabaseTag is inserted.
const tagColumn = 6

// MalformedHeaderError is returned when an ID line cannot be repaired because
// it has fewer tokens than the IMGT layout requires.
type MalformedHeaderError struct {
	// Line is the 1-based line number, or 0 if unknown.
	Line   int
	Header string
}

func (e *MalformedHeaderError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("embl: malformed ID header at line %d: %q", e.Line, e.Header)
	}
	return fmt.Sprintf("embl: malformed ID header: %q", e.Header)
}

// Repair inserts DatabaseTag before the species token of an IMGT ID line:
//
//   ID   HLA00001; SV 1; standard; DNA; HUM; 3503 BP.
//
// becomes
//
//   ID   HLA00001; SV 1; standard; DNA; IMGT; HUM; 3503 BP.
//
// Lines that do not start with "ID" are returned unchanged, as are ID lines
// that already carry the tag. The returned line has no trailing newline.
func Repair(line string) (string, error) {
	if !strings.HasPrefix(line, "ID") {
		return line, nil
	}
	tokens := strings.Fields(line)
	if len(tokens) < minIDTokens || tokens[0] != "ID" {
		return "", &MalformedHeaderError{Header: line}
	}
	if tokens[tagColumn] == DatabaseTag {
		return line, nil
	}
	var b strings.Builder
	b.WriteString(tokens[0])
	b.WriteString("   ")
	b.WriteString(strings.Join(tokens[1:tagColumn], " "))
	b.WriteString(" ")
	b.WriteString(DatabaseTag)
	b.WriteString(" ")
	b.WriteString(strings.Join(tokens[tagColumn:], " "))
	return b.String(), nil
}

type repairReader struct {
	sc      *bufio.Scanner
	lineNum int
	buf     bytes.Buffer
	err     error
}

// NewRepairReader returns a reader that yields the contents of r with every ID
// line passed through Repair. A malformed ID line surfaces as a
// *MalformedHeaderError from Read.
func NewRepairReader(r io.Reader) io.Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineLen)
	return &repairReader{sc: sc}
}

func (r *repairReader) Read(p []byte) (int, error) {
	for r.buf.Len() == 0 {
		if r.err != nil {
			return 0, r.err
		}
		if !r.sc.Scan() {
			if r.err = r.sc.Err(); r.err == nil {
				r.err = io.EOF
			}
			continue
		}
		r.lineNum++
		line, err := Repair(r.sc.Text())
		if err != nil {
			err.(*MalformedHeaderError).Line = r.lineNum
			r.err = err
			continue
		}
		r.buf.WriteString(line)
		r.buf.WriteByte('\n')
	}
	return r.buf.Read(p)
}

// RepairFile writes a corrected copy of the reference at srcPath to dstPath.
func RepairFile(ctx context.Context, srcPath, dstPath string) (err error) {
	in, err := util.Open(ctx, srcPath)
	if err != nil {
		return err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	out, err := util.Create(ctx, dstPath)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out.Writer(ctx), NewRepairReader(in.Reader())); err != nil {
		if _, ok := err.(*MalformedHeaderError); !ok {
			err = errors.Wrapf(err, "repair %s", srcPath)
		}
		_ = out.Close(ctx)
		return err
	}
	return out.Close(ctx)
}
