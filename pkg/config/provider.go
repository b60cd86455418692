package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/compozy/specmatch/pkg/logger"
	"gopkg.in/yaml.v3"
)

// envProvider marks the environment layer. The loader reads the process
// environment itself, so Load returns nothing.
type envProvider struct{}

func NewEnvProvider() Source {
	return &envProvider{}
}

func (e *envProvider) Load() (map[string]any, error)            { return map[string]any{}, nil }
func (e *envProvider) Watch(_ context.Context, _ func()) error { return nil }
func (e *envProvider) Type() SourceType                        { return SourceEnv }
func (e *envProvider) Close() error                            { return nil }

// cliProvider applies flag values keyed by dotted config path,
// e.g. "scorer.top_k" or "server.port".
type cliProvider struct {
	flags map[string]any
}

// NewCLIProvider creates a configuration source from explicitly set flags.
func NewCLIProvider(flags map[string]any) Source {
	return &cliProvider{flags: flags}
}

func (c *cliProvider) Load() (map[string]any, error) {
	out := make(map[string]any)
	for path, value := range c.flags {
		if err := setNested(out, path, value); err != nil {
			return nil, fmt.Errorf("failed to set CLI flag %s: %w", path, err)
		}
	}
	return out, nil
}

func (c *cliProvider) Watch(_ context.Context, _ func()) error { return nil }
func (c *cliProvider) Type() SourceType                        { return SourceCLI }
func (c *cliProvider) Close() error                            { return nil }

func setNested(m map[string]any, path string, value any) error {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	current := m
	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		if _, exists := current[part]; !exists {
			current[part] = make(map[string]any)
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return fmt.Errorf("configuration conflict: key %q is not a map", strings.Join(parts[:i+1], "."))
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
	return nil
}

// yamlProvider reads a YAML file. A missing file yields an empty layer.
type yamlProvider struct {
	path      string
	watcher   *Watcher
	mu        sync.Mutex
	closeOnce sync.Once
}

// NewYAMLProvider creates a new YAML file configuration source.
func NewYAMLProvider(path string) Source {
	return &yamlProvider{path: path}
}

func (y *yamlProvider) Load() (map[string]any, error) {
	data, err := os.ReadFile(y.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read YAML file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file %s: %w", y.path, err)
	}
	return filterNilValues(raw), nil
}

// filterNilValues drops nil leaves so an empty YAML key never clobbers a default.
func filterNilValues(m map[string]any) map[string]any {
	result := make(map[string]any)
	for k, v := range m {
		if v == nil {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			if filtered := filterNilValues(nested); len(filtered) > 0 {
				result[k] = filtered
			}
			continue
		}
		result[k] = v
	}
	return result
}

func (y *yamlProvider) Watch(ctx context.Context, callback func()) error {
	if _, err := os.Stat(y.path); err != nil {
		return fmt.Errorf("cannot watch %s: %w", y.path, err)
	}
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.watcher == nil {
		w, err := NewWatcher(logger.FromContext(ctx))
		if err != nil {
			return err
		}
		if err := w.Watch(ctx, y.path); err != nil {
			_ = w.Close()
			return fmt.Errorf("failed to watch YAML file: %w", err)
		}
		y.watcher = w
	}
	y.watcher.OnChange(callback)
	return nil
}

func (y *yamlProvider) Type() SourceType { return SourceYAML }

func (y *yamlProvider) Close() error {
	var closeErr error
	y.closeOnce.Do(func() {
		y.mu.Lock()
		defer y.mu.Unlock()
		if y.watcher != nil {
			closeErr = y.watcher.Close()
			y.watcher = nil
		}
	})
	return closeErr
}

// defaultProvider exposes Default() as an explicit source layer.
type defaultProvider struct{}

func NewDefaultProvider() Source {
	return &defaultProvider{}
}

func (d *defaultProvider) Load() (map[string]any, error)            { return map[string]any{}, nil }
func (d *defaultProvider) Watch(_ context.Context, _ func()) error { return nil }
func (d *defaultProvider) Type() SourceType                        { return SourceDefault }
func (d *defaultProvider) Close() error                            { return nil }
