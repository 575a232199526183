package coverage

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"v.io/x/lib/lookpath"
)

// DefaultGenomeCovBinary is the bedtools program GenomeCov runs.
const DefaultGenomeCovBinary = "genomeCoverageBed"

// GenomeCov is a Source that runs "genomeCoverageBed -bga -ibam <BAMPath>" and
// parses its output.
type GenomeCov struct {
	BAMPath string
	// GenomePath is passed as -g when set. genomeCoverageBed ignores it for BAM
	// input but older versions require it.
	GenomePath string
	// Binary is the program to run; DefaultGenomeCovBinary if empty. It is
	// looked up in $PATH.
	Binary string
}

// Args returns the command line, without the program name.
func (g GenomeCov) Args() []string {
	args := []string{"-bga", "-ibam", g.BAMPath}
	if g.GenomePath != "" {
		args = append(args, "-g", g.GenomePath)
	}
	return args
}

// LookPath finds the genomeCoverageBed binary.
func (g GenomeCov) LookPath() (string, error) {
	bin := g.Binary
	if bin == "" {
		bin = DefaultGenomeCovBinary
	}
	path, err := lookpath.Look(map[string]string{"PATH": os.Getenv("PATH")}, bin)
	if err != nil {
		return "", errors.E(errors.NotExist, err, bin)
	}
	return path, nil
}

// Scan implements Source.
func (g GenomeCov) Scan(ctx context.Context, fn func(Record) error) error {
	bin, err := g.LookPath()
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, bin, g.Args()...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.E(err, bin)
	}
	log.Printf("coverage: running %s %v", bin, g.Args())
	if err := cmd.Start(); err != nil {
		return errors.E(err, bin)
	}
	scanErr := scanBedGraph(ctx, stdout, fn)
	if scanErr != nil {
		// Unblock the child before waiting for it.
		_ = cmd.Process.Kill()
	}
	waitErr := cmd.Wait()
	if scanErr != nil {
		return scanErr
	}
	if waitErr != nil {
		return errors.E(waitErr, bin, stderr.String())
	}
	return nil
}
