package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/nozo-moto/connwatch/pkg/types"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessLookup returns a short name and a details string for a PID.
type ProcessLookup interface {
	Lookup(ctx context.Context, pid int32) (name, details string)
}

type procInfo struct {
	name    string
	details string
}

// ProcessResolver looks processes up through gopsutil and remembers the
// answers for the lifetime of the resolver.
type ProcessResolver struct {
	cache map[int32]procInfo
	query func(ctx context.Context, pid int32) (name string, status []string, err error)
}

func NewProcessResolver() *ProcessResolver {
	return &ProcessResolver{
		cache: make(map[int32]procInfo),
		query: queryProcess,
	}
}

func (pr *ProcessResolver) Lookup(ctx context.Context, pid int32) (string, string) {
	if pid == 0 {
		return types.Missing, types.Missing
	}
	if info, ok := pr.cache[pid]; ok {
		return info.name, info.details
	}

	info := procInfo{name: types.Missing, details: types.Missing}
	name, status, err := pr.query(ctx, pid)
	if err == nil {
		if name == "" {
			name = fmt.Sprintf("PID %d", pid)
		}
		info.name = name
		info.details = fmt.Sprintf("pid=%d, name='%s', status='%s'", pid, name, strings.Join(status, ","))
	}

	pr.cache[pid] = info
	return info.name, info.details
}

func queryProcess(ctx context.Context, pid int32) (string, []string, error) {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return "", nil, err
	}
	name, err := proc.NameWithContext(ctx)
	if err != nil {
		return "", nil, err
	}
	status, _ := proc.StatusWithContext(ctx)
	return name, status, nil
}
