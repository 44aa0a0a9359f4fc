// Package stream classifies raw stream names into the canonical config names that share
// one transform config.
//
// Raw names encode descriptor and subsequence indices:
//
//	quality_1.<subseq>                 quality values
//	id_1.<a>.<b>.<subseq>              tokenized read identifiers
//	subseq.<class>.<descriptor>.<sub>  descriptor subsequences
//
// Anything else (side channels such as "cp.bin") is its own canonical name.
package stream

import (
	"strconv"
	"strings"
)

// Kind is the class a raw stream name falls into.
type Kind uint8

const (
	KindPassThrough Kind = iota
	KindQuality
	KindID
	KindSubseq
)

func (k Kind) String() string {
	switch k {
	case KindQuality:
		return "quality"
	case KindID:
		return "id"
	case KindSubseq:
		return "subseq"
	default:
		return "passthrough"
	}
}

const (
	qualityPrefix = "quality_1"
	idPrefix      = "id_1"
	subseqPrefix  = "subseq"
)

// Classify returns the kind of name together with its dot separated integer fields.
// Fields are nil for KindPassThrough.
//
// Rules are tried in order: quality, id, subseq, pass-through.
func Classify(name string) (Kind, []string) {
	head, rest, ok := strings.Cut(name, ".")
	if !ok {
		return KindPassThrough, nil
	}

	switch head {
	case qualityPrefix:
		if fields, ok := intFields(rest, 1); ok {
			return KindQuality, fields
		}
	case idPrefix:
		if fields, ok := intFields(rest, 3); ok {
			return KindID, fields
		}
	case subseqPrefix:
		if fields, ok := intFields(rest, 3); ok {
			return KindSubseq, fields
		}
	}

	return KindPassThrough, nil
}

// ConfigName maps a raw stream name to its canonical config name.
//
//	ConfigName("quality_1.3")  == "quality_1"
//	ConfigName("id_1.2.0.5")   == "id_1.5"
//	ConfigName("subseq.8.2.0") == "subseq.2"
//	ConfigName("cp.bin")       == "cp.bin"
func ConfigName(name string) string {
	kind, fields := Classify(name)
	switch kind {
	case KindQuality:
		return qualityPrefix
	case KindID:
		return idPrefix + "." + fields[2]
	case KindSubseq:
		return subseqPrefix + "." + fields[1]
	default:
		return name
	}
}

// intFields splits s on dots and reports whether it has exactly n fields, each made of
// one or more ASCII digits.
func intFields(s string, n int) ([]string, bool) {
	fields := strings.SplitN(s, ".", n+1)
	if len(fields) != n {
		return nil, false
	}

	for _, f := range fields {
		if !isDigits(f) {
			return nil, false
		}
	}

	return fields, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

// QualityName builds the raw name of quality subsequence sub.
func QualityName(sub int) string {
	return qualityPrefix + "." + strconv.Itoa(sub)
}

// IDName builds the raw name of read identifier token subsequence sub.
func IDName(a, b, sub int) string {
	return join(idPrefix, a, b, sub)
}

// SubseqName builds the raw name of a descriptor subsequence.
func SubseqName(class, descriptor, sub int) string {
	return join(subseqPrefix, class, descriptor, sub)
}

func join(prefix string, fields ...int) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	for _, f := range fields {
		sb.WriteByte('.')
		sb.WriteString(strconv.Itoa(f))
	}

	return sb.String()
}
