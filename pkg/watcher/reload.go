package watcher

import (
	"context"
	"time"

	"github.com/vanderheijden86/familytree/pkg/model"
)

// LoadFunc reads the family document at path.
type LoadFunc func(path string) (model.FamilyData, error)

// Reload is the outcome of reloading after a change on disk.
type Reload struct {
	Data model.FamilyData
	Err  error
	At   time.Time
}

// Reloader watches a data file and reloads it whenever it settles after a
// change. Removal of the file is reported as a Reload carrying
// ErrFileRemoved; the previous data stays the caller's to keep.
type Reloader struct {
	w    *Watcher
	load LoadFunc
	out  chan Reload
}

// NewReloader starts watching path. Reloads are delivered on Reloads until
// ctx is done, after which the watcher is stopped.
func NewReloader(ctx context.Context, path string, load LoadFunc, opts ...Option) (*Reloader, error) {
	r := &Reloader{load: load, out: make(chan Reload, 1)}

	opts = append(opts, WithOnError(func(err error) {
		r.send(Reload{Data: model.Empty(), Err: err, At: time.Now()})
	}))
	w, err := New(path, opts...)
	if err != nil {
		return nil, err
	}
	r.w = w
	if err := w.Start(); err != nil {
		return nil, err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				w.Stop()
				return
			case <-w.Changed():
				data, err := r.load(w.Path())
				r.send(Reload{Data: data, Err: err, At: time.Now()})
			}
		}
	}()
	return r, nil
}

// Reloads delivers reload outcomes. Only the latest undelivered outcome is
// kept.
func (r *Reloader) Reloads() <-chan Reload {
	return r.out
}

// Watcher exposes the underlying file watcher.
func (r *Reloader) Watcher() *Watcher {
	return r.w
}

func (r *Reloader) send(rl Reload) {
	for {
		select {
		case r.out <- rl:
			return
		default:
		}
		select {
		case <-r.out:
		default:
		}
	}
}
