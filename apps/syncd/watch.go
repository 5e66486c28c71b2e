package main

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/schoolnotes/gradesync/core"
	"github.com/schoolnotes/gradesync/core/grades"
	"github.com/schoolnotes/gradesync/core/portal"
)

// watchSessionFile re-captures the persisted session whenever the
// embedded-browser helper rewrites its cookie file, so a fresh interactive
// login reaches the next background cycle without a restart. The watch is on
// the directory: the helper commits via rename, which replaces the inode a
// file watch would be pinned to.
func watchSessionFile(svc *grades.Service, fileJar *portal.FileJar, logger core.Logger) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating watcher")
	}
	if err := watcher.Add(filepath.Dir(fileJar.Path())); err != nil {
		_ = watcher.Close()
		return nil, errors.Wrap(err, "watching state dir")
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != fileJar.Path() {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				logger.Info("session file changed, refreshing session")
				if err := svc.RefreshSession(); err != nil {
					logger.Error(fmt.Sprintf("refreshing session: %v", err), err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error(fmt.Sprintf("session watcher: %v", err), err)
			}
		}
	}()
	return watcher, nil
}
