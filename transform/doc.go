// Package transform implements the transform and entropy engine that compresses one
// genomic descriptor stream according to a Config.
//
// # Pipeline
//
// Compression runs four stages:
//
//  1. Symbolization: the input is read as little-endian words of Config.WordSize bytes.
//  2. Transform: the symbols are split into one to three subsequences (none, equality,
//     match, rle or diff).
//  3. Binarization: every subsequence is written with the minimal byte width that holds
//     its largest symbol (package encoding).
//  4. Entropy coding: every binarized subsequence is compressed with Config.Codec
//     (package compress).
//
// The result is a self-delimiting frame:
//
//	uvarint  symbol count
//	byte     subsequence count
//	per subsequence:
//	  uvarint  symbol count
//	  byte     binarization width
//	  uvarint  payload length
//	  bytes    payload
//
// # Analysis
//
// Engine.Analyze searches every transform, binarization and codec combination over a
// sample and returns the config with the smallest frame:
//
//	eng, _ := transform.NewEngine()
//	cfg, _ := eng.Analyze(sample, registry.Constraints{MaxValue: 93, WordSize: 1})
//	compressed, _ := eng.Run(cfg, data, false)
//	restored, _ := eng.Run(cfg, compressed, true)
//
// Configs persist as JSON with enum names spelled out:
//
//	{"word_size": 1, "transform": "rle", "transform_param": 255,
//	 "binarization": "fixed", "codec": "huffman", "max_value": 93}
package transform
