package benchmark

import (
	"runtime"
	"time"
)

// Result captures one completed measurement cell.
type Result struct {
	Scenario        Scenario      `json:"scenario"`
	Timestamp       time.Time     `json:"timestamp"`
	Sample          Sample        `json:"sample"`
	ImagesPerSecond float64       `json:"images_per_second"`
	MemoryStats     MemoryMetrics `json:"memory_stats"`
}

// MemoryMetrics captures heap and GC statistics over a measurement cell.
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
}

// captureMemStats snapshots allocator state after forcing a collection, so
// deltas across a cell reflect the cell's own pressure.
func captureMemStats() runtime.MemStats {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return m
}

// memoryDelta summarizes allocator movement between two snapshots.
func memoryDelta(start, end runtime.MemStats) MemoryMetrics {
	return MemoryMetrics{
		AllocBytes:      end.Alloc,
		TotalAllocBytes: end.TotalAlloc - start.TotalAlloc,
		SysBytes:        end.Sys,
		NumGC:           end.NumGC - start.NumGC,
		HeapAllocBytes:  end.HeapAlloc,
		HeapSysBytes:    end.HeapSys,
	}
}
