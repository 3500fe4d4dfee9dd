package types

import (
	"fmt"
	"strconv"
)

type ConnState string

const (
	StateEstablished ConnState = "ESTABLISHED"
	StateSynSent     ConnState = "SYN_SENT"
	StateSynRecv     ConnState = "SYN_RECV"
	StateFinWait1    ConnState = "FIN_WAIT1"
	StateFinWait2    ConnState = "FIN_WAIT2"
	StateTimeWait    ConnState = "TIME_WAIT"
	StateClose       ConnState = "CLOSE"
	StateCloseWait   ConnState = "CLOSE_WAIT"
	StateLastAck     ConnState = "LAST_ACK"
	StateListen      ConnState = "LISTEN"
	StateClosing     ConnState = "CLOSING"
	StateNone        ConnState = "NONE"
)

const (
	IPVersion4   = "IP4"
	TransportTCP = "TCP"

	// Placeholder for endpoints and process details the OS did not report.
	Missing = "-"
)

// ConnectionRecord is a snapshot of one OS-reported socket at observation
// time. Downstream stages read it and never modify it.
type ConnectionRecord struct {
	IPVersion      string
	Transport      string
	LocalAddress   string
	LocalPort      uint32
	RemoteAddress  string
	RemotePort     uint32
	State          ConnState
	PID            int32
	ProcessName    string
	ProcessDetails string
}

// Local returns the local endpoint as "addr:port".
func (r ConnectionRecord) Local() string {
	return joinEndpoint(r.LocalAddress, r.LocalPort)
}

// Remote returns the remote endpoint as "addr:port", or "-" for sockets
// without a peer.
func (r ConnectionRecord) Remote() string {
	if r.RemoteAddress == "" && r.RemotePort == 0 {
		return Missing
	}
	return joinEndpoint(r.RemoteAddress, r.RemotePort)
}

// Protocol returns the "IP4:TCP" style tag.
func (r ConnectionRecord) Protocol() string {
	return r.IPVersion + ":" + r.Transport
}

func (r ConnectionRecord) String() string {
	details := r.ProcessDetails
	if details == "" {
		details = Missing
	}
	return fmt.Sprintf("%s; Local:%s; Remote:%s; Status:%s; ProcessID:%d; ProcessDetails(%s)",
		r.Protocol(), r.Local(), r.Remote(), r.State, r.PID, details)
}

func joinEndpoint(addr string, port uint32) string {
	if addr == "" {
		addr = "0.0.0.0"
	}
	return addr + ":" + strconv.FormatUint(uint64(port), 10)
}

type Verdict string

const (
	VerdictBenign     Verdict = "BENIGN"
	VerdictSuspicious Verdict = "SUSPICIOUS"
	VerdictUnknown    Verdict = "UNKNOWN"
)

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities so callers can compare them.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Finding is one rule hit against a single connection.
type Finding struct {
	Rule        string
	Severity    Severity
	Description string
}

// Enrichment holds optional lookups about the remote peer.
type Enrichment struct {
	ReverseDNS string
	Country    string
}

// AnalysisResult pairs a record with everything derived from it.
type AnalysisResult struct {
	Record     ConnectionRecord
	Verdict    Verdict
	Findings   []Finding
	Annotation string
	Enrichment Enrichment
}

// Summary is the single-line classification text shown by reporters.
func (a AnalysisResult) Summary() string {
	if len(a.Findings) == 0 {
		return string(a.Verdict)
	}
	out := string(a.Verdict) + " ["
	for i, f := range a.Findings {
		if i > 0 {
			out += ", "
		}
		out += f.Rule
	}
	return out + "]"
}
