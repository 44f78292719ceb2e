//go:build linux || darwin || freebsd

package commands

import "syscall"

type diskUsage struct {
	Available   uint64
	Total       uint64
	UsedPercent float64
}

// getDiskUsage reports the filesystem holding path, where proof
// screenshots accumulate.
func getDiskUsage(path string) (*diskUsage, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return nil, err
	}
	available := uint64(stat.Bavail) * uint64(stat.Bsize)
	total := uint64(stat.Blocks) * uint64(stat.Bsize)
	if total == 0 {
		return &diskUsage{}, nil
	}
	return &diskUsage{
		Available:   available,
		Total:       total,
		UsedPercent: float64(total-available) / float64(total) * 100,
	}, nil
}
