package storage

import (
	"context"

	"github.com/dustin/go-humanize"
)

// Usage summarizes how much space a backend occupies.
type Usage struct {
	Strategy Strategy
	Root     string
	Bytes    int64
}

func (u Usage) String() string {
	return FormatUsage(u.Bytes)
}

// FormatUsage renders bytes in IEC units, e.g. "1.5 KiB".
func FormatUsage(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// GetUsage reports the current usage of backend.
func GetUsage(ctx context.Context, backend Backend) (Usage, error) {
	total, err := backend.TotalBytes(ctx)
	if err != nil {
		return Usage{}, err
	}

	return Usage{
		Strategy: backend.Strategy(),
		Root:     backend.Root(),
		Bytes:    total,
	}, nil
}
