package core

type SessionManager interface {

	AddSession(s *Session) error

	Session(id string) (*Session, error)

	ListSessions() []*Session

	RemoveSession(id string)
}
