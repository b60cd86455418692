package config

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/compozy/specmatch/pkg/logger"
)

// Manager owns the live configuration and reloads it when a source changes.
type Manager struct {
	Service     Service
	current     atomic.Pointer[Config]
	sources     []Source
	callbacks   []func(*Config)
	callbackMu  sync.RWMutex
	reloadMu    sync.Mutex
	watchCancel context.CancelFunc
	closeOnce   sync.Once
	debounce    time.Duration
}

// NewManager creates a new configuration manager.
func NewManager(service Service) *Manager {
	if service == nil {
		service = NewService()
	}
	return &Manager{Service: service, debounce: 100 * time.Millisecond}
}

// Load reads every source and starts watching the ones that support it.
func (m *Manager) Load(ctx context.Context, sources ...Source) (*Config, error) {
	m.reloadMu.Lock()
	m.sources = append([]Source(nil), sources...)
	m.reloadMu.Unlock()

	cfg, err := m.Service.Load(ctx, sources...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	m.apply(cfg)

	if m.watchCancel != nil {
		m.watchCancel()
	}
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.watchCancel = cancel
	m.startWatching(watchCtx, sources)
	return cfg, nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	return m.current.Load()
}

// Reload re-reads all sources. The previous configuration stays active on error.
func (m *Manager) Reload(ctx context.Context) error {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()
	cfg, err := m.Service.Load(ctx, m.sources...)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	m.apply(cfg)
	return nil
}

// SetDebounce must be called before Load.
func (m *Manager) SetDebounce(d time.Duration) {
	m.debounce = d
}

func (m *Manager) OnChange(callback func(*Config)) {
	m.callbackMu.Lock()
	defer m.callbackMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// Close stops watching and closes every source.
func (m *Manager) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		if m.watchCancel != nil {
			m.watchCancel()
		}
		m.reloadMu.Lock()
		sources := append([]Source(nil), m.sources...)
		m.reloadMu.Unlock()
		for _, source := range sources {
			if source == nil {
				continue
			}
			if err := source.Close(); err != nil {
				logger.FromContext(ctx).Error("failed to close configuration source", "error", err)
			}
		}
	})
	return nil
}

func (m *Manager) startWatching(ctx context.Context, sources []Source) {
	log := logger.FromContext(ctx)
	for _, source := range sources {
		if source == nil {
			continue
		}
		err := source.Watch(ctx, func() {
			if m.debounce > 0 {
				time.Sleep(m.debounce)
			}
			if err := m.Reload(ctx); err != nil {
				log.Error("failed to reload configuration", "error", err)
				return
			}
			log.Info("configuration reloaded", "source", source.Type())
		})
		if err != nil {
			log.Debug("source does not support watching", "source", source.Type(), "error", err)
		}
	}
}

func (m *Manager) apply(cfg *Config) {
	old := m.current.Swap(cfg)
	if old != nil && reflect.DeepEqual(old, cfg) {
		return
	}
	m.callbackMu.RLock()
	callbacks := append([]func(*Config){}, m.callbacks...)
	m.callbackMu.RUnlock()
	for _, cb := range callbacks {
		if cb != nil {
			cb(cfg)
		}
	}
}
