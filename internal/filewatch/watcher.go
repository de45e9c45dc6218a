// Package filewatch watches a set of directories and pushes a debounced
// change event over a phoenix.Channel for every file that settles.
package filewatch

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/eshe-huli/phx/internal/crypto"
	"github.com/eshe-huli/phx/phoenix"
)

// ChangeEvent is the payload pushed for each settled file change.
type ChangeEvent struct {
	Path   string `json:"path"`
	Action string `json:"action"`
	Hash   string `json:"hash,omitempty"`
	Size   int    `json:"size,omitempty"`
}

// Watch watches dirs recursively, debounces changes within window, and
// pushes event on ch for each one. Blocks until ctx is cancelled or the
// fsnotify watcher's event channel closes.
func Watch(ctx context.Context, dirs []string, window time.Duration, ch *phoenix.Channel, event string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("filewatch: create watcher: %w", err)
	}
	defer w.Close()

	for _, dir := range dirs {
		if err := addRecursive(w, dir); err != nil {
			return fmt.Errorf("filewatch: watch %s: %w", dir, err)
		}
		log.Printf("[filewatch] watching %s", dir)
	}

	deb := newDebouncer(window)
	defer deb.stop()

	go func() {
		for path := range deb.out() {
			pushChange(ch, event, path)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if isHiddenPath(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				deb.trigger(ev.Name)
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addRecursive(w, ev.Name)
				}
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("[filewatch] error: %v", err)
		}
	}
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if info.Name() == ".git" || info.Name() == ".phxcli" {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}

func pushChange(ch *phoenix.Channel, event, path string) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		log.Printf("[filewatch] deleted: %s", path)
		ch.Push(event, ChangeEvent{Path: path, Action: "delete"}).
			Receive(phoenix.StatusError, func(msg phoenix.Message) {
				log.Printf("[filewatch] server rejected delete of %s: %s", path, msg.Payload)
			})
		return
	}
	if err != nil {
		log.Printf("[filewatch] stat %s: %v", path, err)
		return
	}
	if info.IsDir() {
		return
	}

	hash, err := crypto.Blake3HashFile(path)
	if err != nil {
		log.Printf("[filewatch] hash %s: %v", path, err)
		return
	}
	size := int(info.Size())
	log.Printf("[filewatch] changed: %s (blake3:%s, %d bytes)", path, hex.EncodeToString(hash)[:16], size)

	ch.Push(event, ChangeEvent{
		Path:   path,
		Action: "upsert",
		Hash:   hex.EncodeToString(hash),
		Size:   size,
	}).Receive(phoenix.StatusError, func(msg phoenix.Message) {
		log.Printf("[filewatch] server rejected update of %s: %s", path, msg.Payload)
	})
}

func isHiddenPath(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	matched, _ := filepath.Match("*/.phxcli/*", abs)
	dir := filepath.Base(filepath.Dir(path))
	return matched || dir == ".phxcli" || dir == ".git"
}
