package snapshotfile

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const settle = 200 * time.Millisecond

// Watch calls onChange after the snapshot file is written, created or
// replaced. The parent directory is watched because atomic saves swap the
// file's inode. Bursts of events inside a short window collapse into one call.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	target, err := filepath.Abs(s.path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return err
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				mu.Unlock()
				return
			case evt, ok := <-w.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if name, _ := filepath.Abs(evt.Name); name != target {
					continue
				}
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(settle, onChange)
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Str("path", target).Msg("snapshot watcher error")
			}
		}
	}()
	log.Info().Str("path", target).Msg("watching durable snapshot")
	return nil
}
