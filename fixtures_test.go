// Copyright 2024 Dillon Giacoppo
// SPDX-License-Identifier: MIT

package xz

import (
	"bytes"
	"encoding/base64"
	"sync"
	"testing"
)

// testInput mixes highly compressible text with incompressible bytes so the
// compressed form stays large enough to exercise the input-buffer paths.
var testInput = func() []byte {
	data := bytes.Repeat([]byte("The quick brown fox jumps over the lazy dog. "), 500)
	var tail [256]byte
	for i := range tail {
		tail[i] = byte(i)
	}
	return append(data, bytes.Repeat(tail[:], 20)...)
}()

var (
	compressedOnce  sync.Once
	compressedInput []byte
)

// compressedFixture returns testInput compressed with the defaults; the
// result is cached across tests.
func compressedFixture(t *testing.T) []byte {
	t.Helper()
	compressedOnce.Do(func() {
		data, err := Compress(testInput)
		if err != nil {
			return
		}
		compressedInput = data
	})
	if compressedInput == nil {
		t.Fatal("compressing the test input failed")
	}
	if len(compressedInput) <= 350 {
		t.Fatalf("compressed fixture only %d bytes, too small for the buffer tests", len(compressedInput))
	}
	return compressedInput
}

func mustDecode64(s string) []byte {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return data
}

// Upstream XZ Utils test files, from
// https://github.com/tukaani-project/xz/tree/fbb3ce541ef79cad1710e88a27a5babb5f6f8e5b/tests/files
var xzFixtures = []struct {
	name    string
	input   []byte
	want    string
	wantErr bool
}{
	{
		// has one stream with no blocks.
		name:  "good-0-empty.xz",
		input: mustDecode64("/Td6WFoAAAFpIt42AAAAABzfRCGQQpkNAQAAAAABWVo="),
	},
	{
		// has one stream with no blocks followed by four-byte stream padding.
		name:  "good-0pad-empty.xz",
		input: mustDecode64("/Td6WFoAAAFpIt42AAAAABzfRCGQQpkNAQAAAAABWVoAAAAA"),
	},
	{
		// has one stream with one block with two uncompressed LZMA2 chunks
		// and no integrity check
		name:  "good-1-check-none.xz",
		input: mustDecode64("/Td6WFoAAAD/EtlBAgAhAQgAAADYDyMTAQAFSGVsbG8KAgAGV29ybGQhCgAAASANNO2zywZynnoBAAAAAABZWg=="),
		want:  "Hello\nWorld!\n",
	},
	{
		// has one stream with one block with two uncompressed LZMA2 chunks
		// and CRC32 check.
		name:  "good-1-check-crc32.xz",
		input: mustDecode64("/Td6WFoAAAFpIt42AgAhAQgAAADYDyMTAQAFSGVsbG8KAgAGV29ybGQhCgBDo6IVAAEkDTAo36+QQpkNAQAAAAABWVo="),
		want:  "Hello\nWorld!\n",
	},
	{
		// is like good-1-check-crc32.xz but with CRC64.
		name:  "good-1-check-crc64.xz",
		input: mustDecode64("/Td6WFoAAATm1rRGAgAhAQgAAADYDyMTAQAFSGVsbG8KAgAGV29ybGQhCgDvLogRnT+WygABKA08Z2oDH7bzfQEAAAAABFla"),
		want:  "Hello\nWorld!\n",
	},
	{
		// is like good-1-check-crc32.xz but with SHA256.
		name:  "good-1-check-sha256.xz",
		input: mustDecode64("/Td6WFoAAArh+wyhAgAhAQgAAADYDyMTAQAFSGVsbG8KAgAGV29ybGQhCgCOWTXn4TNozZaI/o9IoJVSk2dqAhViWCx+hI2v4T+wRgABQA2Thk6uGJtLmgEAAAAAClla"),
		want:  "Hello\nWorld!\n",
	},
	{
		// has one stream with two blocks with one uncompressed LZMA2 chunk
		// in each block.
		name:  "good-2-lzma2.xz",
		input: mustDecode64("/Td6WFoAAAFpIt42AgAhAQgAAADYDyMTAQAFSGVsbG8KAAAAFjWWMQIAIQEIAAAA2A8jEwEABldvcmxkIQoAAN3RylMAAhoGGwcAAAbc510+MA2LAgAAAAABWVo="),
		want:  "Hello\nWorld!\n",
	},
	{
		// has both Compressed Size and Uncompressed Size in the block
		// Header. This has also four extra bytes of Header padding.
		name:  "good-1-block_header-1.xz",
		input: mustDecode64("/Td6WFoAAAFpIt42A8ARDSEBCAAAAAAAf9456wEADEhlbGxvCldvcmxkIQoAAAAAQ6OiFQABJQ1xGcS2kEKZDQEAAAAAAVla"),
		want:  "Hello\nWorld!\n",
	},
	{
		// has an empty LZMA2 stream with only the end of payload marker.
		// XZ Utils 5.0.1 and older incorrectly see this file as corrupt.
		name:  "good-1-lzma2-5.xz",
		input: mustDecode64("/Td6WFoAAAFpIt42AgAhARAAAACocI6GAAAAAAAAAAAAAREAO5Zfc5BCmQ0BAAAAAAFZWg=="),
	},
	{
		// has three Delta filters and LZMA2.
		name:  "good-1-3delta-lzma2.xz",
		input: mustDecode64("/Td6WFoAAATm1rRGBAMDAQADAQEDAQIhAQgAALwVZcYBAchMI7eE4glxT/q6ofdRYwisrvJYQg1m7qgBzWAuiFjXbts9JgAF8fuvNGcXwJ8/+fwNDgOk5q9psWKeR5dDwy9Ho6P1BFrAmz0BzFs6+rPCTJ1PV/27r1P/Bv/1p1FepJxjtLRi90egUG6v4wtSw6c3wFRJAbm0/ztfBK+7KMz/hGRxvjA/1VswqWF/pidTtb8AUz37urNeu/mBSbt0qaFO/bymTPG/VGbvpK1RIOMP7gwCpGM7/6jHVgKv3bFQwWf3S++0WkcGt1+jTarjF2W7qDAGtVJgp/TxFxX5Qa23OhW46p9mx1HRYRntCLz/W3Hxb3pnjgWmVZpx/pyiBF1g+6e28k5RvgfqUMKnSPse+O4R/Qae6bVmdJ4sVL+3VOIRCbZWMAmp0P4sXgyqWZZnBam7OLBGYA+srjfATGWuiFy/vELhe8E1SvW+oxZiNAKrtVsDA5/sf4bRZt88F+wKuEo8FLpflzgKwbxP8BGuNlEKt5pMMfD8p+e4WMT5OrX8p65aFgeo4JZfuGmlnVW2+wdLtJoHbkvoUxad/rG6UvK/751ewlboXfsEoltT/beqW7E2VgvBV4tRuwUKSVT5jRfNuUHdvAQ0AAAAALIHROkXM0uEAAHpA8kDAACS+728scRn+wIAAAAABFla"),
		want: "Lorem ipsum dolor sit amet, consectetur adipisicing \nelit, sed do eiusmod tempor incididunt ut \nlabore et dolore magna aliqua. Ut enim \nad minim veniam, quis nostrud exercitation ullamco \nlaboris nisi ut aliquip ex ea commodo \nconsequat. Duis aute irure dolor in reprehenderit \nin voluptate velit esse cillum dolore eu \nfugiat nulla pariatur. Excepteur sint occaecat cupidatat \nnon proident, sunt in culpa qui officia \ndeserunt mollit anim id est laborum. \n",
	},
	{
		// is good-0-empty.xz but with one byte wrong in the Header Magic
		// Bytes field. liblzma gives LZMA_FORMAT_ERROR for this.
		name:    "bad-0-header_magic.xz",
		input:   mustDecode64("/Td6WFkAAAFpIt42AAAAABzfRCGQQpkNAQAAAAABWVo="),
		wantErr: true,
	},
	{
		// is good-0-empty.xz but with one byte wrong in the Footer Magic
		// Bytes field. liblzma gives LZMA_DATA_ERROR for this.
		name:    "bad-0-footer_magic.xz",
		input:   mustDecode64("/Td6WFoAAAFpIt42AAAAABzfRCGQQpkNAQAAAAABWVg="),
		wantErr: true,
	},
	{
		// is good-0-empty.xz without the last byte of the file.
		name:    "bad-0-empty-truncated.xz",
		input:   mustDecode64("/Td6WFoAAAFpIt42AAAAABzfRCGQQpkNAQAAAAABWQ=="),
		wantErr: true,
	},
	{
		// has no blocks but Index claims that there is one block.
		name:    "bad-0-nonempty_index.xz",
		input:   mustDecode64("/Td6WFoAAAFpIt42AAEAACu1hiCQQpkNAQAAAAABWVo="),
		wantErr: true,
	},
	{
		// has wrong Backward Size in stream Footer.
		name:    "bad-0-backward_size.xz",
		input:   mustDecode64("/Td6WFoAAAFpIt42AAAAABzfRCE1kcXGAAAAAAABWVo="),
		wantErr: true,
	},
	{
		// has wrong CRC32 in block Header.
		name:    "bad-1-block_header-3.xz",
		input:   mustDecode64("/Td6WFoAAAFpIt42AgAhAQgAAADYDyMzAQAFSGVsbG8KAgAGV29ybGQhCgBDo6IVAAEkDTAo36+QQpkNAQAAAAABWVo="),
		wantErr: true,
	},
	{
		// has wrong Check (CRC32).
		name:    "bad-1-check-crc32.xz",
		input:   mustDecode64("/Td6WFoAAAFpIt42AgAhAQgAAADYDyMTAQAFSGVsbG8KAgAGV29ybGQhCgBDo6IUAAEkDTAo36+QQpkNAQAAAAABWVo="),
		want:    "Hello\nWorld!\n",
		wantErr: true,
	},
	{
		// has wrong Check (CRC64).
		name:    "bad-1-check-crc64.xz",
		input:   mustDecode64("/Td6WFoAAATm1rRGAgAhAQgAAADYDyMTAQAFSGVsbG8KAgAGV29ybGQhCgDvLogRnT+WywABKA08Z2oDH7bzfQEAAAAABFla"),
		want:    "Hello\nWorld!\n",
		wantErr: true,
	},
	{
		// has LZMA2 stream whose first chunk (uncompressed) doesn't reset
		// the dictionary.
		name:    "bad-1-lzma2-1.xz",
		input:   mustDecode64("/Td6WFoAAAD/EtlBAgAhAQgAAADYDyMTAgAFSGVsbG8KAgAGV29ybGQhCgAAASANNO2zywZynnoBAAAAAABZWg=="),
		wantErr: true,
	},
	{
		// has reserved LZMA2 control byte value (0x03).
		name:    "bad-1-lzma2-6.xz",
		input:   mustDecode64("/Td6WFoAAAFpIt42AgAhAQgAAADYDyMTAQAFSGVsbG8KAwAGV29ybGQhCgBDo6IVAAEkDTAo36+QQpkNAQAAAAABWVo="),
		want:    "Hello\n",
		wantErr: true,
	},
}
