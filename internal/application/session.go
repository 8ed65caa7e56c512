package application

import (
	"fmt"
	"strings"
)

type IsolationLevel string

const (
	ReadUncommitted IsolationLevel = "read uncommitted"
	ReadCommitted   IsolationLevel = "read committed"
	RepeatableRead  IsolationLevel = "repeatable read"
	Serializable    IsolationLevel = "serializable"
)

// DefaultIsolation is used when a caller passes the empty level.
const DefaultIsolation = ReadCommitted

// ParseIsolationLevel accepts the SQL spelling in any case, with spaces,
// dashes or underscores between words.
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	switch IsolationLevel(norm) {
	case "":
		return DefaultIsolation, nil
	case ReadUncommitted, ReadCommitted, RepeatableRead, Serializable:
		return IsolationLevel(norm), nil
	}
	return "", fmt.Errorf("%w: unknown isolation level %q", ErrBadRequest, s)
}

type SessionState string

const (
	SessionIdle       SessionState = "idle"
	SessionActive     SessionState = "active"
	SessionCommitted  SessionState = "committed"
	SessionRolledBack SessionState = "rolled-back"
	SessionReleased   SessionState = "released"
)

// CanBegin reports whether a transaction may be started from st. A session
// may run another transaction after the previous one finished.
func (st SessionState) CanBegin() bool {
	return st == SessionIdle || st == SessionCommitted || st == SessionRolledBack
}
