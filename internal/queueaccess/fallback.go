package queueaccess

import (
	"errors"
	"fmt"

	"contentflow/internal/ipc"
	"contentflow/internal/queue"
)

// Session is an open Access plus whatever must be released afterwards.
type Session struct {
	Access Access
	// Daemon is true when requests go through the running daemon. Direct
	// store sessions do not publish item events or wake the workflow.
	Daemon bool

	release func() error
}

// Close releases the IPC connection or database handle.
func (s Session) Close() error {
	if s.release == nil {
		return nil
	}
	return s.release()
}

// OpenWithFallback prefers the daemon and opens the store directly when
// dialing fails. The dial error is kept in the returned error only when
// the store cannot be opened either.
func OpenWithFallback(dial func() (*ipc.Client, error), openStore func() (*queue.Store, error)) (Session, error) {
	var dialErr error
	if dial != nil {
		client, err := dial()
		if err == nil {
			return Session{Access: NewIPCAccess(client), Daemon: true, release: client.Close}, nil
		}
		dialErr = err
	}
	if openStore == nil {
		return Session{}, errors.Join(dialErr, errors.New("open queue store: no store opener configured"))
	}
	store, err := openStore()
	if err != nil {
		return Session{}, errors.Join(dialErr, fmt.Errorf("open queue store: %w", err))
	}
	return Session{Access: NewStoreAccess(store), release: store.Close}, nil
}
