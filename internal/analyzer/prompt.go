package analyzer

import (
	"fmt"
	"strings"

	"github.com/nozo-moto/connwatch/pkg/types"
)

const systemPrompt = "You are a network security analyst reviewing the TCP connections of a single host."

// BuildPrompt asks for a verdict word followed by a one-sentence reason.
func BuildPrompt(rec types.ConnectionRecord, findings []types.Finding, enr types.Enrichment) string {
	var b strings.Builder
	b.WriteString("Assess this IPv4 connection observed on my machine.\n")
	fmt.Fprintf(&b, "Connection: %s\n", rec.String())
	if rec.ProcessName != "" && rec.ProcessName != types.Missing {
		fmt.Fprintf(&b, "Process name: %s\n", rec.ProcessName)
	}
	if enr.ReverseDNS != "" {
		fmt.Fprintf(&b, "Remote reverse DNS: %s\n", enr.ReverseDNS)
	}
	if enr.Country != "" {
		fmt.Fprintf(&b, "Remote country: %s\n", enr.Country)
	}
	if len(findings) > 0 {
		b.WriteString("Rule findings:\n")
		for _, f := range findings {
			fmt.Fprintf(&b, "- %s (%s): %s\n", f.Rule, f.Severity, f.Description)
		}
	}
	b.WriteString("Start your answer with BENIGN or SUSPICIOUS, then give one sentence explaining why.")
	return b.String()
}
