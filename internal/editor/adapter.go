// Package editor binds a host editor's notifications and commands to a
// mirroring session.
package editor

import (
	"errors"
	"log"

	"github.com/code-mirror/mirror/internal/session"
)

// Host is what an editor must provide to be mirrored. Subscriptions return a
// function that removes the callback.
type Host interface {
	session.Editor
	OnContentChanged(fn func()) (unsubscribe func())
	OnSelectionChanged(fn func()) (unsubscribe func())
	OnViewActivated(fn func()) (unsubscribe func())
}

// Mirror is the session surface the adapter drives. *session.Session
// satisfies it.
type Mirror interface {
	Active() bool
	Start() error
	Stop() error
	ViewerURL() string
	ContentChanged() error
	SelectionChanged() error
	ViewActivated() error
}

// ErrNoViewer is returned by ViewerURL when no session has been assigned a
// viewer address.
var ErrNoViewer = errors.New("no active mirroring session")

// Adapter turns host notifications into session triggers.
type Adapter struct {
	mirror Mirror
	log    *log.Logger
	unsubs []func()
}

// Bind subscribes to host and forwards its notifications to m.
func Bind(host Host, m Mirror, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.Default()
	}
	a := &Adapter{mirror: m, log: logger}
	a.unsubs = []func(){
		host.OnContentChanged(a.guard("content", m.ContentChanged)),
		host.OnSelectionChanged(a.guard("selection", m.SelectionChanged)),
		host.OnViewActivated(a.guard("activate", m.ViewActivated)),
	}
	return a
}

// guard wraps a trigger so it only runs while mirroring. It runs on every
// keystroke; the check is a single atomic load.
func (a *Adapter) guard(name string, trigger func() error) func() {
	return func() {
		if !a.mirror.Active() {
			return
		}
		if err := trigger(); err != nil && !errors.Is(err, session.ErrNotMirroring) {
			a.log.Printf("%s event: %v", name, err)
		}
	}
}

// StartMirroring is the user command that opens a session.
func (a *Adapter) StartMirroring() error {
	if err := a.mirror.Start(); err != nil {
		a.log.Printf("start mirroring: %v", err)
		return err
	}
	return nil
}

// StopMirroring is the user command that ends the session. Without one it is
// a logged no-op returning session.ErrNotMirroring.
func (a *Adapter) StopMirroring() error {
	if err := a.mirror.Stop(); err != nil {
		a.log.Printf("stop mirroring: %v", err)
		return err
	}
	a.log.Printf("stopped mirroring")
	return nil
}

// ViewerURL is the user command that shows where the session can be viewed.
func (a *Adapter) ViewerURL() (string, error) {
	url := a.mirror.ViewerURL()
	if url == "" {
		return "", ErrNoViewer
	}
	return url, nil
}

// Close removes every host subscription.
func (a *Adapter) Close() {
	for _, unsub := range a.unsubs {
		if unsub != nil {
			unsub()
		}
	}
	a.unsubs = nil
}
