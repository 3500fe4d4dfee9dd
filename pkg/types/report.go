package types

import "time"

// HostSnapshot describes the machine the connections were observed on.
type HostSnapshot struct {
	Hostname         string
	OS               string
	CPUPercent       float64
	MemoryPercent    float64
	TotalConnections int
}

// Report is everything a reporter needs to render one run.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Host        HostSnapshot
	Results     []AnalysisResult
}

// CountByState tallies results per connection state.
func (r *Report) CountByState() map[ConnState]int {
	counts := make(map[ConnState]int)
	for _, res := range r.Results {
		counts[res.Record.State]++
	}
	return counts
}

// CountByVerdict tallies results per verdict.
func (r *Report) CountByVerdict() map[Verdict]int {
	counts := make(map[Verdict]int)
	for _, res := range r.Results {
		counts[res.Verdict]++
	}
	return counts
}
