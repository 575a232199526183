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

/*
Command bio-hla genotypes HLA consensus sequences against the IMGT/HLA
reference database.

A typical run has two steps. First, rank the alleles of a multi-allele
genomic panel by the coverage of reads aligned to it and keep the
well-supported ones:

  bio-hla candidates -bam sample.panel.bam -tsv candidates.tsv

Each selected contig is printed with its average coverage. Then assign each
assembled consensus an allele of the locus, optionally limited to the
candidates:

  bio-hla genotype -dat hla.dat -cons consensus.fa -locus HLA-A \
    -candidates candidates.tsv -out calls.tsv

Resolution compares the primary exons first (exons 2 and 3 for HLA-A, -B and
-C, exon 2 otherwise), then the remaining exons, then introns and UTRs, and
stops once a single allele remains. Every consensus is reported as a unique
call, an ambiguous call with N candidates, or a failure.

hla.dat files whose ID lines lack the "IMGT;" token are repaired on the fly;
"bio-hla repair" writes a corrected copy.
*/
package main
