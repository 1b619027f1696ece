// Copyright 2024 Dillon Giacoppo
// SPDX-License-Identifier: MIT

package lzma

/*
#include <lzma.h>
*/
import "C"
import (
	"fmt"
	"sync"
)

// The threaded .xz decoder of liblzma has a published use-after-free
// (CVE-2025-31115) affecting every release that shipped it up to and
// including 5.8.0. The bounds are lzma_version_number encodings
// (major*10000000 + minor*10000 + patch*10 + stability).
const (
	mtDecoderVulnerableFirst = 50030030 // 5.3.3alpha, first release with lzma_stream_decoder_mt
	mtDecoderVulnerableLast  = 50080002 // 5.8.0
)

var (
	versionOnce sync.Once
	versionNum  uint32
	versionStr  string
)

func loadVersion() {
	versionOnce.Do(func() {
		versionNum = uint32(C.lzma_version_number())
		versionStr = fmt.Sprintf("%d.%d.%d",
			versionNum/10000000,
			versionNum/10000%1000,
			versionNum/10%1000,
		)
	})
}

// Version returns the runtime liblzma version as "MAJOR.MINOR.PATCH".
func Version() string {
	loadVersion()
	return versionStr
}

// VersionNumber returns the runtime liblzma version in the packed
// lzma_version_number encoding.
func VersionNumber() uint32 {
	loadVersion()
	return versionNum
}

// MTDecoderSafe reports whether the threaded decoder of the runtime liblzma
// is outside the version range affected by CVE-2025-31115. Callers that get
// false here must decode single-threaded instead.
func MTDecoderSafe() bool {
	v := VersionNumber()
	return v < mtDecoderVulnerableFirst || v > mtDecoderVulnerableLast
}
