package profile

import (
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher refreshes a Store when profile sources in its directory change.
// Bursts of file events are collapsed into one refresh.
type Watcher struct {
	store    *Store
	fs       *fsnotify.Watcher
	debounce time.Duration
	log      zerolog.Logger

	// OnRefresh, when set, is called with the result of every refresh.
	OnRefresh func(Report, error)

	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher creates a watcher for store's directory. The directory is
// created if missing so it can be watched.
func NewWatcher(store *Store, debounce time.Duration, log zerolog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(store.Dir(), 0o755); err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(store.Dir()); err != nil {
		fsw.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{
		store:    store,
		fs:       fsw,
		debounce: debounce,
		log:      log.With().Str("component", "profile-watcher").Logger(),
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() {
	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()
	w.log.Info().Str("dir", w.store.Dir()).Msg("Watching profile directory")
}

// Stop shuts the watcher down and waits for its goroutines.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	return w.fs.Close()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !IsSource(ev.Name) {
				continue
			}
			w.log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("Profile source changed")
			select {
			case w.kick <- struct{}{}:
			default:
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("Profile watcher error")
		}
	}
}

// debounceLoop refreshes once no change has arrived for the debounce period.
func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case <-w.kick:
			fire = time.After(w.debounce)

		case <-fire:
			fire = nil
			rep, err := w.store.Refresh()
			if err != nil {
				w.log.Error().Err(err).Msg("Profile refresh failed")
			}
			if w.OnRefresh != nil {
				w.OnRefresh(rep, err)
			}
		}
	}
}
