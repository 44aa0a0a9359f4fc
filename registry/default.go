package registry

import "math"

const (
	u8  = math.MaxUint8
	u16 = math.MaxUint16
	u32 = math.MaxUint32
)

// defaultEntries covers the descriptor subsequences, quality values and tokenized read
// identifiers produced by the genomic record encoders.
//
// Descriptor classes are keyed by descriptor index (subseq.<descriptor>):
//
//	0 pos    1 rcomp   2 flags   3 mmpos   4 mmtype   5 clips
//	6 ureads 7 rlen    8 pair    9 mscore 10 mmap    11 msar
//	12 rtype 13 rgroup 14 qv    15 rname  16 rftp    17 rftt
var defaultEntries = map[string]Constraints{
	"subseq.0":  {MaxValue: u32, WordSize: 4},
	"subseq.1":  {MaxValue: 3, WordSize: 1},
	"subseq.2":  {MaxValue: 1, WordSize: 1},
	"subseq.3":  {MaxValue: u32, WordSize: 4},
	"subseq.4":  {MaxValue: 5, WordSize: 1},
	"subseq.5":  {MaxValue: u32, WordSize: 4},
	"subseq.6":  {MaxValue: u32, WordSize: 4},
	"subseq.7":  {MaxValue: u32, WordSize: 4},
	"subseq.8":  {MaxValue: u32, WordSize: 4},
	"subseq.9":  {MaxValue: u16, WordSize: 2},
	"subseq.10": {MaxValue: u32, WordSize: 4},
	"subseq.11": {MaxValue: u8, WordSize: 1},
	"subseq.12": {MaxValue: 7, WordSize: 1},
	"subseq.13": {MaxValue: u16, WordSize: 2},
	"subseq.14": {MaxValue: u8, WordSize: 1},
	"subseq.15": {MaxValue: u8, WordSize: 1},
	"subseq.16": {MaxValue: u32, WordSize: 4},
	"subseq.17": {MaxValue: 5, WordSize: 1},

	"quality_1": {MaxValue: u8, WordSize: 1},

	// Read identifier tokens: type, string, char, digits, delta, digits0.
	"id_1.0": {MaxValue: u8, WordSize: 1},
	"id_1.1": {MaxValue: u8, WordSize: 1},
	"id_1.2": {MaxValue: u8, WordSize: 1},
	"id_1.3": {MaxValue: u32, WordSize: 4},
	"id_1.4": {MaxValue: u8, WordSize: 1},
	"id_1.5": {MaxValue: u32, WordSize: 4},
}

var defaultRegistry = MustNew(defaultEntries)

// Default returns the built-in registry. The returned value is shared and immutable.
func Default() *Registry {
	return defaultRegistry
}
