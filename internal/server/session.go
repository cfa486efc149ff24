package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName is the cookie name of the tree session.
const SessionName = "ganttree"

// SessionKV is an expansion.KV over the request's session. It lives for one
// request; Set saves the session into the response, so it must run before
// the body is written.
type SessionKV struct {
	store sessions.Store
	r     *http.Request
	w     http.ResponseWriter
}

// NewSessionKV binds store to one request/response pair.
func NewSessionKV(store sessions.Store, w http.ResponseWriter, r *http.Request) *SessionKV {
	return &SessionKV{store: store, r: r, w: w}
}

func (k *SessionKV) session() (*sessions.Session, error) {
	// A cookie that fails to decode still yields a new session.
	s, err := k.store.Get(k.r, SessionName)
	if s == nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return s, nil
}

// Get implements expansion.KV.
func (k *SessionKV) Get(key string) (string, bool, error) {
	s, err := k.session()
	if err != nil {
		return "", false, err
	}
	v, ok := s.Values[key].(string)
	return v, ok, nil
}

// Set implements expansion.KV.
func (k *SessionKV) Set(key, value string) error {
	s, err := k.session()
	if err != nil {
		return err
	}
	s.Values[key] = value
	if err := s.Save(k.r, k.w); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}
