package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/shashiranjanraj/beanleaf/config"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
)

// Manager holds the configured disks by name.
type Manager struct {
	disks       map[string]Disk
	defaultDisk string
}

// NewManager returns a manager whose default disk is def.
func NewManager(def string) *Manager {
	return &Manager{disks: map[string]Disk{}, defaultDisk: def}
}

// FromConfig boots the "local" disk and, when S3_BUCKET is set, the "s3"
// disk. An S3 disk that cannot be configured is logged and left out.
func FromConfig(ctx context.Context) (*Manager, error) {
	m := NewManager(config.StorageDefault())

	local, err := NewLocalDisk(config.StorageLocalRoot())
	if err != nil {
		return nil, err
	}
	m.Register("local", local)

	if bucket := config.StorageS3Bucket(); bucket != "" {
		d, err := NewS3Disk(ctx, S3Config{
			Bucket:   bucket,
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
		})
		if err != nil {
			logger.Warn("storage: s3 disk disabled", "error", err)
		} else {
			m.Register("s3", d)
		}
	}

	if _, err := m.Disk(m.defaultDisk); err != nil {
		return nil, err
	}
	return m, nil
}

// Register adds or replaces a disk.
func (m *Manager) Register(name string, d Disk) {
	m.disks[name] = d
}

// Disk returns the named disk.
func (m *Manager) Disk(name string) (Disk, error) {
	d, ok := m.disks[name]
	if !ok {
		return nil, fmt.Errorf("storage: disk %q is not configured (have %v)", name, m.Names())
	}
	return d, nil
}

// Default returns the STORAGE_DISK disk. FromConfig guarantees it exists.
func (m *Manager) Default() Disk {
	return m.disks[m.defaultDisk]
}

// Names lists the configured disks.
func (m *Manager) Names() []string {
	out := make([]string, 0, len(m.disks))
	for n := range m.disks {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
