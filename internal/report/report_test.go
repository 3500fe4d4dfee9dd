package report

import (
	"time"

	"github.com/nozo-moto/connwatch/pkg/types"
)

// exampleReport holds the two-connection run used across reporter tests.
func exampleReport() *types.Report {
	return &types.Report{
		RunID:       "5f0c7c8e-7a4b-4e0e-9d53-2a7f7a0f4c11",
		GeneratedAt: time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC),
		Host:        types.HostSnapshot{Hostname: "workstation", OS: "ubuntu 24.04", CPUPercent: 12.5, MemoryPercent: 40},
		Results: []types.AnalysisResult{
			{
				Record: types.ConnectionRecord{
					IPVersion: types.IPVersion4, Transport: types.TransportTCP,
					LocalAddress: "127.0.0.1", LocalPort: 5000,
					RemoteAddress: "127.0.0.1", RemotePort: 40112,
					State: types.StateEstablished, PID: 42,
				},
				Verdict:    types.VerdictBenign,
				Annotation: "No findings",
			},
			{
				Record: types.ConnectionRecord{
					IPVersion: types.IPVersion4, Transport: types.TransportTCP,
					LocalAddress: "10.0.0.5", LocalPort: 443,
					State: types.StateListen, PID: 1,
					ProcessDetails: "pid=1, name='nginx', status='sleep'",
				},
				Verdict:    types.VerdictSuspicious,
				Findings:   []types.Finding{{Rule: "SUSPICIOUS_PORT", Severity: types.SeverityCritical, Description: "x"}},
				Annotation: "SUSPICIOUS <script>alert(1)</script>",
				Enrichment: types.Enrichment{ReverseDNS: "edge.example.net", Country: "NL"},
			},
		},
	}
}
