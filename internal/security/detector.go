package security

import (
	"fmt"
	"net/netip"

	"github.com/nozo-moto/connwatch/pkg/types"
)

type Rule string

const (
	RuleSuspiciousPort   Rule = "SUSPICIOUS_PORT"
	RuleLateralPort      Rule = "LATERAL_PORT"
	RuleExternalListener Rule = "EXTERNAL_LISTENER"
	RuleExternalPeer     Rule = "EXTERNAL_PEER"
	RuleOrphanSocket     Rule = "ORPHAN_SOCKET"
)

// Remote ports commonly used to move between hosts.
var LateralPorts = map[uint32]bool{
	22:   true,
	139:  true,
	389:  true,
	445:  true,
	636:  true,
	1433: true,
	3389: true,
	5985: true,
	5986: true,
}

// Detector classifies one connection at a time. It keeps no state between
// calls, so the same record always yields the same findings.
type Detector struct {
	watchPorts map[uint32]bool
}

func NewDetector(watchPorts []uint32) *Detector {
	d := &Detector{watchPorts: make(map[uint32]bool, len(watchPorts))}
	for _, p := range watchPorts {
		d.watchPorts[p] = true
	}
	return d
}

// Classify returns the findings for rec, most severe rules first.
func (d *Detector) Classify(rec types.ConnectionRecord) []types.Finding {
	var findings []types.Finding

	for _, port := range []uint32{rec.LocalPort, rec.RemotePort} {
		if port != 0 && d.watchPorts[port] {
			findings = append(findings, types.Finding{
				Rule:        string(RuleSuspiciousPort),
				Severity:    types.SeverityCritical,
				Description: fmt.Sprintf("Port %d is on the watch list", port),
			})
			break
		}
	}

	if rec.State != types.StateListen && LateralPorts[rec.RemotePort] {
		findings = append(findings, types.Finding{
			Rule:        string(RuleLateralPort),
			Severity:    types.SeverityWarning,
			Description: fmt.Sprintf("Outbound connection to remote administration port %d", rec.RemotePort),
		})
	}

	if rec.State == types.StateListen && isWildcard(rec.LocalAddress) {
		findings = append(findings, types.Finding{
			Rule:        string(RuleExternalListener),
			Severity:    types.SeverityWarning,
			Description: fmt.Sprintf("Listening on all interfaces, port %d", rec.LocalPort),
		})
	}

	if IsPublic(rec.RemoteAddress) {
		findings = append(findings, types.Finding{
			Rule:        string(RuleExternalPeer),
			Severity:    types.SeverityInfo,
			Description: fmt.Sprintf("Peer %s is outside private address space", rec.RemoteAddress),
		})
	}

	if rec.PID == 0 && rec.State != types.StateTimeWait {
		findings = append(findings, types.Finding{
			Rule:        string(RuleOrphanSocket),
			Severity:    types.SeverityInfo,
			Description: "No owning process reported",
		})
	}

	return findings
}

// Verdict is SUSPICIOUS when any finding is WARNING or worse.
func Verdict(findings []types.Finding) types.Verdict {
	for _, f := range findings {
		if f.Severity.Rank() >= types.SeverityWarning.Rank() {
			return types.VerdictSuspicious
		}
	}
	return types.VerdictBenign
}

// IsPublic reports whether addr is a routable unicast address.
func IsPublic(addr string) bool {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	return ip.IsGlobalUnicast() && !ip.IsPrivate()
}

func isWildcard(addr string) bool {
	if addr == "" {
		return true
	}
	ip, err := netip.ParseAddr(addr)
	return err == nil && ip.IsUnspecified()
}
