// Package tuning picks default sizing for §6.2 parameters that should
// scale with the host machine: maximum_decode_streams and the import
// pipeline's worker-pool width, plus a SIMD capability report for the
// resampler benchmark (§4.3 — observable, not a runtime error).
package tuning

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo summarizes the host's relevant capacity.
type SystemInfo struct {
	LogicalCores     int
	PerformanceCores int // 0 if undetermined (non-hybrid or unrecognized brand)
	TotalMemoryBytes uint64
	HasAVX2          bool
	HasAVX512        bool
}

// Probe reads the current host's CPU/memory capacity.
func Probe() SystemInfo {
	info := SystemInfo{
		LogicalCores:     runtime.NumCPU(),
		PerformanceCores: determinePerformanceCores(cpuid.CPU.BrandName),
		HasAVX2:          cpuid.CPU.Supports(cpuid.AVX2),
		HasAVX512:        cpuid.CPU.Supports(cpuid.AVX512F),
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemoryBytes = vm.Total
	}
	return info
}

// DefaultMaximumDecodeStreams picks a maximum_decode_streams default within
// the registered [1,32] range (§6.2), scaled from available cores: one
// decode stream per two logical cores, clamped to a sane floor/ceiling so a
// single-core box still gets useful look-ahead and a 64-core box doesn't
// open hundreds of file handles.
func (s SystemInfo) DefaultMaximumDecodeStreams() int {
	n := s.LogicalCores / 2
	if n < 4 {
		n = 4
	}
	if n > 32 {
		n = 32
	}
	return n
}

// DefaultImportWorkerCount picks the import pipeline's bounded worker-pool
// width (§4.10), preferring performance cores on a hybrid part and falling
// back to all logical cores otherwise, mirroring the teacher's
// GetOptimalThreadCount but generalized from "analysis threads" to "import
// worker goroutines".
func (s SystemInfo) DefaultImportWorkerCount() int {
	if s.PerformanceCores > 0 {
		if s.PerformanceCores > s.LogicalCores {
			return s.LogicalCores
		}
		return s.PerformanceCores
	}
	if s.LogicalCores < 1 {
		return 1
	}
	return s.LogicalCores
}

// determinePerformanceCores estimates the performance-core count on a
// hybrid part. WKMP doesn't need BirdNET's exhaustive per-SKU brand-string
// table (that level of precision matters for a sustained ML inference
// workload, not for sizing an I/O-bound import worker pool). Plain SMT has
// exactly two logical cores per physical core; a part whose two-way-SMT
// performance cores sit beside single-threaded E-cores has fewer logical
// cores than that, and its performance-core count is then LogicalCores -
// PhysicalCores, which is what is returned here.
func determinePerformanceCores(brandName string) int {
	physical := cpuid.CPU.PhysicalCores
	logical := cpuid.CPU.LogicalCores
	if physical <= 0 || logical <= 0 || physical >= logical {
		return 0
	}
	if logical == physical*2 {
		return 0 // uniform SMT, not a P/E split
	}
	return logical - physical
}
