// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hla/align"
	"github.com/grailbio/hla/coverage"
	"github.com/grailbio/hla/encoding/embl"
	"github.com/grailbio/hla/genotype"
	"v.io/x/lib/cmdline"
)

func newCmdRepair() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "repair",
		Short:    "Write a copy of an IMGT hla.dat file with the missing IMGT; token restored",
		ArgsName: "srcpath destpath",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("repair takes srcpath destpath, but found %v", argv)
		}
		return embl.RepairFile(vcontext.Background(), argv[0], argv[1])
	})
	return cmd
}

func newCmdCandidates() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "candidates",
		Short: "Rank panel contigs by average coverage and select the well-supported ones",
		Long: `
Coverage is read from a bedgraph file (-bedgraph), computed from a BAM file
(-bam), or computed by running genomeCoverageBed -bga on a BAM file (-bam with
-genomecov). Contigs are ranked by the mean depth over their bedgraph
intervals. The first contig is always selected; each following one is selected
if its average exceeds that of the last selected contig divided by
-drop-factor. Selected contigs are printed as "contig average" lines.`,
	}
	flags := candidatesFlags{}
	cmd.Flags.StringVar(&flags.bedGraphPath, "bedgraph", "", "Input bedgraph path (optionally gzipped)")
	cmd.Flags.StringVar(&flags.bamPath, "bam", "", "Input BAM path, aligned to the HLA panel")
	cmd.Flags.BoolVar(&flags.genomeCov, "genomecov", false, "Compute coverage of -bam with bedtools genomeCoverageBed")
	cmd.Flags.StringVar(&flags.genomePath, "genome", "", "Genome file passed to genomeCoverageBed -g")
	cmd.Flags.Float64Var(&flags.dropFactor, "drop-factor", coverage.DefaultRankOpts.DropFactor, "Largest allowed coverage ratio between consecutive selected contigs")
	cmd.Flags.BoolVar(&flags.all, "all", false, "Print every ranked contig, not only the selected ones")
	cmd.Flags.StringVar(&flags.tsvPath, "tsv", "", "If set, write the printed candidates as TSV to this path")
	cmd.Flags.StringVar(&flags.arrowPath, "arrow", "", "If set, write the printed candidates as an Arrow IPC file to this path")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("candidates takes no arguments, but found %v", argv)
		}
		return candidates(vcontext.Background(), env.Stdout, flags)
	})
	return cmd
}

func newCmdGenotype() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "genotype",
		Short: "Assign IMGT alleles to consensus sequences",
		Long: `
Each consensus in -cons is compared with the alleles of -locus in -dat, tier by
tier: primary exons, secondary exons, then introns and UTRs. The outcome of
every consensus (unique call, ambiguous call, or failure) is printed.`,
	}
	flags := genotypeFlags{}
	cmd.Flags.StringVar(&flags.datPath, "dat", "", "IMGT/HLA hla.dat path (optionally gzipped); repaired on the fly")
	cmd.Flags.StringVar(&flags.consPath, "cons", "", "Consensus FASTA path (optionally gzipped)")
	cmd.Flags.StringVar(&flags.locus, "locus", "", fmt.Sprintf("Locus to genotype, one of %v", locusNames()))
	cmd.Flags.StringVar(&flags.candidatesPath, "candidates", "", "If set, only consider the alleles in this candidate TSV (see 'candidates -tsv')")
	cmd.Flags.StringVar(&flags.aligner, "aligner", align.FittedName, fmt.Sprintf("Aligner, %q or %q", align.FittedName, align.UngappedName))
	cmd.Flags.IntVar(&flags.parallelism, "parallelism", 0, "Number of consensuses to resolve concurrently; 0 = runtime.NumCPU()")
	cmd.Flags.DurationVar(&flags.timeout, "align-timeout", genotype.DefaultOpts.AlignTimeout, "Upper bound on a single alignment; 0 disables it")
	cmd.Flags.StringVar(&flags.outPath, "out", "", "If set, write the calls as TSV to this path")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("genotype takes no arguments, but found %v", argv)
		}
		return genotypeConsensuses(vcontext.Background(), env.Stdout, flags)
	})
	return cmd
}

func newCmdRoot() *cmdline.Command {
	return &cmdline.Command{
		Name:     "bio-hla",
		Short:    "HLA genotyping against the IMGT/HLA database",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdRepair(),
			newCmdCandidates(),
			newCmdGenotype(),
		},
	}
}

// Run is the entry point of bio-hla.
func Run() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(newCmdRoot())
}
