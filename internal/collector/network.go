package collector

import (
	"context"
	"log/slog"

	"github.com/nozo-moto/connwatch/internal/errors"
	"github.com/nozo-moto/connwatch/pkg/types"
	psnet "github.com/shirou/gopsutil/v3/net"
)

// ConnectionKind is the gopsutil connection filter for IPv4 TCP sockets.
const ConnectionKind = "tcp4"

type listFunc func(ctx context.Context, kind string) ([]psnet.ConnectionStat, error)

type NetworkCollector struct {
	list  listFunc
	procs ProcessLookup
}

func NewNetworkCollector(procs ProcessLookup) *NetworkCollector {
	return &NetworkCollector{
		list:  psnet.ConnectionsWithContext,
		procs: procs,
	}
}

// Watch returns the host's IPv4 TCP connections in the order the OS lists
// them.
func (nc *NetworkCollector) Watch(ctx context.Context) ([]types.ConnectionRecord, error) {
	conns, err := nc.list(ctx, ConnectionKind)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindOSQuery, "failed to get connections")
	}

	records := make([]types.ConnectionRecord, 0, len(conns))
	for _, conn := range conns {
		rec := toRecord(conn)
		if nc.procs != nil {
			rec.ProcessName, rec.ProcessDetails = nc.procs.Lookup(ctx, conn.Pid)
		}
		records = append(records, rec)
	}

	slog.Debug("Collected connections", "kind", ConnectionKind, "count", len(records))
	return records, nil
}

func toRecord(conn psnet.ConnectionStat) types.ConnectionRecord {
	state := types.ConnState(conn.Status)
	if state == "" {
		state = types.StateNone
	}
	return types.ConnectionRecord{
		IPVersion:     types.IPVersion4,
		Transport:     types.TransportTCP,
		LocalAddress:  conn.Laddr.IP,
		LocalPort:     conn.Laddr.Port,
		RemoteAddress: conn.Raddr.IP,
		RemotePort:    conn.Raddr.Port,
		State:         state,
		PID:           conn.Pid,
	}
}
