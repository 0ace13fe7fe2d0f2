package pipeline

import (
	"runtime"
)

// RuntimeStats describes the process while the pipeline is serving.
type RuntimeStats struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	Goroutines      int    `json:"goroutines"`
	RecordsInFlight int    `json:"records_in_flight"`
	BatchRunning    bool   `json:"batch_running"`
}

// Stats captures memory figures and the orchestrator's current load.
func (o *Orchestrator) Stats() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return RuntimeStats{
		AllocBytes:      m.Alloc,
		SysBytes:        m.Sys,
		NumGC:           m.NumGC,
		Goroutines:      runtime.NumGoroutine(),
		RecordsInFlight: o.InFlight(),
		BatchRunning:    o.Running(),
	}
}
