//
// Tencent is pleased to support the open source community by making trpc-cassette-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the trpc-cassette-go source code from Tencent,
// please note that trpc-cassette-go source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

package file

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"trpc.group/trpc-go/trpc-cassette-go/cassette"
	"trpc.group/trpc-go/trpc-cassette-go/loader"
	"trpc.group/trpc-go/trpc-cassette-go/log"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// Watcher keeps a DB in sync with the YAML files of a directory.
type Watcher struct {
	db       *loader.DB
	dir      string
	debounce time.Duration
	onReload func(error)
	watcher  *fsnotify.Watcher

	mu     sync.Mutex
	loaded []cassette.Document
	done   chan struct{}
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithOnReload registers a callback run after every reload with its error.
func WithOnReload(fn func(error)) WatchOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// Watch loads dir into db and reloads it whenever a file in it changes, until
// ctx is done or Close is called.
func Watch(ctx context.Context, db *loader.DB, dir string, opts ...WatchOption) (*Watcher, error) {
	w := &Watcher{
		db:       db,
		dir:      dir,
		debounce: DefaultDebounce,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.Reload(); err != nil {
		log.Warnf("loader: initial load of %s: %v", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.watcher = watcher
	go w.run(ctx)
	return w, nil
}

// Reload replaces every document previously loaded by w with the current
// contents of the directory.
func (w *Watcher) Reload() error {
	files, readErr := ReadDir(w.dir)

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, doc := range w.loaded {
		if err := w.db.Remove(doc); err != nil {
			log.Debugf("loader: removing %s: %v", doc.Metadata.Name, err)
		}
	}
	w.loaded = w.loaded[:0]
	var loadErr error
	for _, name := range sortedKeys(files) {
		docs := files[name]
		for i := range docs {
			loader.EnsureUID(&docs[i].Metadata)
		}
		if err := w.db.Load(docs); err != nil {
			loadErr = err
		}
		w.loaded = append(w.loaded, docs...)
	}
	log.Infof("loader: loaded %d documents from %s", len(w.loaded), w.dir)
	if readErr != nil {
		return readErr
	}
	return loadErr
}

// Close stops watching and waits for the watch loop to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !IsDocumentFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			trigger = timer.C
		case <-trigger:
			trigger = nil
			err := w.Reload()
			if err != nil {
				log.Warnf("loader: reloading %s: %v", w.dir, err)
			}
			if w.onReload != nil {
				w.onReload(err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("loader: watching %s: %v", w.dir, err)
		}
	}
}
