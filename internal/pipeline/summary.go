package pipeline

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Summary captures what one run did: row counts, per-stage timings and the
// process resources it used. It is logged when the run finishes and exposed
// to callers for display.
type Summary struct {
	RunID         string                   `json:"run_id"`
	Pipeline      string                   `json:"pipeline"`
	State         string                   `json:"state"`
	Duration      time.Duration            `json:"duration"`
	Stages        map[string]time.Duration `json:"stages"`
	RowsExtracted int                      `json:"rows_extracted"`
	RowsDropped   int                      `json:"rows_dropped"`
	RowsLoaded    int                      `json:"rows_loaded"`
	CellsDemoted  int                      `json:"cells_demoted"`
	MemoryRSS     uint64                   `json:"memory_rss_bytes"`
	CPUPercent    float64                  `json:"cpu_percent"`
}

// resourceMonitor samples the running process so the summary can report RSS
// and CPU time spent over the run. Sampling failures degrade to zero values;
// they never affect the run itself.
type resourceMonitor struct {
	process      *process.Process
	startCPUTime float64
	startTime    time.Time
}

func newResourceMonitor() *resourceMonitor {
	m := &resourceMonitor{startTime: time.Now()}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return m
	}
	m.process = proc

	if cpuTime, err := proc.Times(); err == nil {
		m.startCPUTime = cpuTime.Total()
	}
	return m
}

// usage returns RSS bytes and the CPU percentage since the monitor started.
func (m *resourceMonitor) usage() (uint64, float64) {
	if m.process == nil {
		return 0, 0
	}

	var rss uint64
	if memInfo, err := m.process.MemoryInfo(); err == nil {
		rss = memInfo.RSS
	}

	var cpuPercent float64
	if cpuTime, err := m.process.Times(); err == nil {
		if elapsed := time.Since(m.startTime).Seconds(); elapsed > 0 {
			cpuPercent = ((cpuTime.Total() - m.startCPUTime) / elapsed) * 100
		}
	}

	return rss, cpuPercent
}
