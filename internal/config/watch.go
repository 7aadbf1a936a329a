package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"aurum/internal/logger"
)

// 中文说明：
// 配置热加载：盯配置文件的写入事件，去抖后重新 Load，把新的阈值
// 交给回调。加载失败只告警，继续用旧配置跑。

const watchDebounce = 500 * time.Millisecond

// Watch re-loads the config on file change and hands it to onChange.
// Blocks until stop is closed; run it on its own goroutine.
func Watch(path string, onChange func(*Config), stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// watch the directory: editors replace files instead of writing in place
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	var mu sync.Mutex
	var timer *time.Timer
	reload := func() {
		cfg, err := Load(path)
		if err != nil {
			logger.Warnf("config: reload failed, keeping previous: %v", err)
			return
		}
		logger.Infof("config: reloaded %s", path)
		onChange(cfg)
	}

	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, reload)
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("config: watcher error: %v", err)
		}
	}
}
