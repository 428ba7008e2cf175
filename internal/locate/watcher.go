package locate

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cseek/internal/domain"
	"cseek/internal/eventbus"
)

// rebuildDebounce coalesces the burst of write events the indexer produces
// while rewriting the database.
const rebuildDebounce = 250 * time.Millisecond

// IndexWatcher publishes IndexRebuilt when the external indexer rewrites the
// database file. The index file is replaced, not appended, so Create and
// Rename count as rewrites too.
type IndexWatcher struct {
	bus      eventbus.EventBus
	location domain.DatabaseLocation
	watcher  *fsnotify.Watcher
	wg       sync.WaitGroup

	mu    sync.Mutex
	timer *time.Timer
}

// NewIndexWatcher creates a watcher for the resolved index file
func NewIndexWatcher(bus eventbus.EventBus, location domain.DatabaseLocation) (*IndexWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the containing directory; editors and indexers replace files
	// rather than writing them in place, which a file-level watch misses.
	if err := watcher.Add(location.Directory); err != nil {
		watcher.Close()
		return nil, err
	}

	iw := &IndexWatcher{
		bus:      bus,
		location: location,
		watcher:  watcher,
	}

	iw.wg.Add(1)
	go iw.processEvents()

	return iw, nil
}

// Close stops watching. Safe to call once.
func (iw *IndexWatcher) Close() error {
	err := iw.watcher.Close()
	iw.wg.Wait()

	iw.mu.Lock()
	if iw.timer != nil {
		iw.timer.Stop()
	}
	iw.mu.Unlock()

	return err
}

func (iw *IndexWatcher) processEvents() {
	defer iw.wg.Done()

	for {
		select {
		case event, ok := <-iw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(iw.location.Path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			iw.scheduleRebuildEvent()

		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("IndexWatcher: %v", err)
		}
	}
}

// scheduleRebuildEvent resets the debounce timer; the event fires once the
// write burst settles.
func (iw *IndexWatcher) scheduleRebuildEvent() {
	iw.mu.Lock()
	defer iw.mu.Unlock()

	if iw.timer != nil {
		iw.timer.Stop()
	}
	iw.timer = time.AfterFunc(rebuildDebounce, func() {
		log.Printf("IndexWatcher: index rewritten: %s", iw.location.Path)
		iw.bus.Publish(eventbus.IndexRebuiltEvent{Path: iw.location.Path})
	})
}
