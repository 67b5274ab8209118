// internal/config/watcher.go
package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/si0411/tourextract/internal/utils"
)

// FileWatcher calls its callbacks whenever one file is written or
// replaced. The parent directory is watched so editors and tools that
// rename a temp file over the target are seen too.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	path      string
	logger    utils.Logger
	callbacks []func()
	mu        sync.RWMutex
	stopped   bool
	done      chan struct{}
}

// NewFileWatcher starts watching path.
func NewFileWatcher(path string, logger utils.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	fw := &FileWatcher{
		watcher: watcher,
		path:    abs,
		logger:  logger.WithField("file", abs),
		done:    make(chan struct{}),
	}
	go fw.watch()
	return fw, nil
}

// OnChange registers a callback to be called when the file changes
func (fw *FileWatcher) OnChange(callback func()) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.callbacks = append(fw.callbacks, callback)
}

// watch handles file system events
func (fw *FileWatcher) watch() {
	defer close(fw.done)
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				fw.notify()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warnf("file watcher error: %v", err)
		}
	}
}

func (fw *FileWatcher) notify() {
	fw.mu.RLock()
	if fw.stopped {
		fw.mu.RUnlock()
		return
	}
	callbacks := make([]func(), len(fw.callbacks))
	copy(callbacks, fw.callbacks)
	fw.mu.RUnlock()

	for _, callback := range callbacks {
		callback()
	}
}

// Close stops the watcher and releases resources
func (fw *FileWatcher) Close() error {
	fw.mu.Lock()
	fw.stopped = true
	fw.mu.Unlock()

	err := fw.watcher.Close()
	<-fw.done
	return err
}

// ConfigWatcher reloads a configuration file when it changes. Invalid
// edits are logged and ignored; callbacks only see valid configurations.
type ConfigWatcher struct {
	*FileWatcher
}

// NewConfigWatcher creates a new configuration file watcher
func NewConfigWatcher(configPath string, logger utils.Logger) (*ConfigWatcher, error) {
	fw, err := NewFileWatcher(configPath, logger)
	if err != nil {
		return nil, err
	}
	return &ConfigWatcher{FileWatcher: fw}, nil
}

// OnConfigChange registers a callback receiving each reloaded configuration.
func (cw *ConfigWatcher) OnConfigChange(callback func(*Config)) {
	cw.OnChange(func() {
		config, err := LoadFromFile(cw.path)
		if err != nil {
			cw.logger.Warnf("failed to reload config: %v", err)
			return
		}
		callback(config)
	})
}
