package memory

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/Sumatoshi-tech/textfang/pkg/safeconv"
)

// ProcessMemory holds one reading of the process memory footprint.
type ProcessMemory struct {
	ResidentBytes int64
	VirtualBytes  int64
}

// Probe reads process and system memory. Implementations must be cheap
// enough to call between every chunk.
type Probe interface {
	// ProcessMemory returns the current resident and virtual size of this process.
	ProcessMemory() (ProcessMemory, error)

	// TotalSystemBytes returns the total physical memory of the machine.
	TotalSystemBytes() (int64, error)
}

const (
	procStatmPath   = "/proc/self/statm"
	procMemInfoPath = "/proc/meminfo"
	memTotalPrefix  = "MemTotal:"
	memTotalUnitKiB = "kB"

	// minMemInfoFields is the minimum number of space-separated fields in a
	// /proc/meminfo line (e.g. "MemTotal: 16384 kB" has 3 fields).
	minMemInfoFields = 2

	// statm fields are page counts: total program size, then resident set size.
	minStatmFields = 2

	kibibyte = int64(1024)
)

// SystemProbe reads memory from /proc on Linux and falls back to
// [runtime.MemStats] elsewhere. The zero value is ready to use.
type SystemProbe struct{}

// ProcessMemory implements Probe using /proc/self/statm when available.
func (SystemProbe) ProcessMemory() (ProcessMemory, error) {
	if runtime.GOOS == "linux" {
		pm, err := readProcStatm()
		if err == nil {
			return pm, nil
		}
	}

	// Heap-based approximation: close enough for tier classification when
	// /proc is unavailable.
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return ProcessMemory{
		ResidentBytes: safeconv.MustUint64ToInt64(m.HeapInuse + m.StackInuse),
		VirtualBytes:  safeconv.MustUint64ToInt64(m.Sys),
	}, nil
}

// TotalSystemBytes implements Probe using /proc/meminfo MemTotal.
func (SystemProbe) TotalSystemBytes() (int64, error) {
	if runtime.GOOS != "linux" {
		return 0, fmt.Errorf("total system memory: unsupported on %s", runtime.GOOS)
	}

	memInfo, err := os.ReadFile(procMemInfoPath)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", procMemInfoPath, err)
	}

	total := parseMemTotalBytes(memInfo)
	if total <= 0 {
		return 0, fmt.Errorf("parse %s: no MemTotal line", procMemInfoPath)
	}

	return total, nil
}

func readProcStatm() (ProcessMemory, error) {
	data, err := os.ReadFile(procStatmPath)
	if err != nil {
		return ProcessMemory{}, fmt.Errorf("read %s: %w", procStatmPath, err)
	}

	fields := bytes.Fields(data)
	if len(fields) < minStatmFields {
		return ProcessMemory{}, fmt.Errorf("parse %s: expected %d fields, got %d", procStatmPath, minStatmFields, len(fields))
	}

	virtPages, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil {
		return ProcessMemory{}, fmt.Errorf("parse %s size: %w", procStatmPath, err)
	}

	rssPages, err := strconv.ParseInt(string(fields[1]), 10, 64)
	if err != nil {
		return ProcessMemory{}, fmt.Errorf("parse %s resident: %w", procStatmPath, err)
	}

	pageSize := int64(os.Getpagesize())

	return ProcessMemory{
		ResidentBytes: rssPages * pageSize,
		VirtualBytes:  virtPages * pageSize,
	}, nil
}

func parseMemTotalBytes(memInfo []byte) int64 {
	for line := range bytes.SplitSeq(memInfo, []byte{'\n'}) {
		if !bytes.HasPrefix(line, []byte(memTotalPrefix)) {
			continue
		}

		fields := bytes.Fields(line)
		if len(fields) < minMemInfoFields {
			return 0
		}

		memTotal, err := strconv.ParseInt(string(fields[1]), 10, 64)
		if err != nil {
			return 0
		}

		unit := memTotalUnitKiB
		if len(fields) > minMemInfoFields {
			unit = string(fields[2])
		}

		if unit == memTotalUnitKiB {
			return memTotal * kibibyte
		}

		return memTotal
	}

	return 0
}
