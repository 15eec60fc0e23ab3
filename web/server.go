package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ilievs/beatbox/core"
)

// Presence reports whether a device is currently connected.
type Presence interface {
	Online(deviceId string) bool
}

// Server is the HTTP face of the client: it turns requests into user intents
// on a session and serves snapshots of the mirrored state.
type Server struct {
	echo       *echo.Echo
	sessions   core.SessionManager
	presence   Presence
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	boxesMutex sync.RWMutex
	errorBoxes map[string]*ErrorBox
}

type Option func(*Server)

func WithPresence(presence Presence) Option {
	return func(s *Server) {
		s.presence = presence
	}
}

func NewServer(sessions core.SessionManager, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		echo:       echo.New(),
		sessions:   sessions,
		logger:     logger,
		errorBoxes: make(map[string]*ErrorBox),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Routes
	e.GET("/devices", s.handleListDevices)
	e.GET("/devices/:deviceId/state", s.handleState)
	e.GET("/devices/:deviceId/events", s.handleEvents)

	e.POST("/devices/:deviceId/volume/up", s.intent((*core.Session).VolumeUp))
	e.POST("/devices/:deviceId/volume/down", s.intent((*core.Session).VolumeDown))
	e.PUT("/devices/:deviceId/volume", s.handleSetValue((*core.Session).SetVolume))
	e.POST("/devices/:deviceId/tempo/up", s.intent((*core.Session).TempoUp))
	e.POST("/devices/:deviceId/tempo/down", s.intent((*core.Session).TempoDown))
	e.PUT("/devices/:deviceId/tempo", s.handleSetValue((*core.Session).SetTempo))
	e.PUT("/devices/:deviceId/mode", s.handleSetMode)
	e.POST("/devices/:deviceId/play/:sound", s.handlePlay)
	e.POST("/devices/:deviceId/uptime", s.intent((*core.Session).ReadUptime))
	e.POST("/devices/:deviceId/quit", s.intent((*core.Session).Quit))
	e.POST("/devices/:deviceId/command", s.handleCommand)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	s.logger.Info("http server listening", "address", address)
	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Track starts mirroring the session's errors into an error box. Sessions
// that are not tracked report no error in their state.
func (s *Server) Track(session *core.Session) {
	box := NewErrorBox(core.ErrorAutoHide)
	notifications, unsubscribe := session.Subscribe()

	s.boxesMutex.Lock()
	s.errorBoxes[session.Id()] = box
	s.boxesMutex.Unlock()

	go box.Watch(notifications)
	go func() {
		<-session.Done()
		unsubscribe()
	}()
}

func (s *Server) errorBox(deviceId string) *ErrorBox {
	s.boxesMutex.RLock()
	defer s.boxesMutex.RUnlock()
	return s.errorBoxes[deviceId]
}

func (s *Server) session(c echo.Context) (*core.Session, error) {
	session, err := s.sessions.Session(c.Param("deviceId"))
	if errors.Is(err, core.ErrSessionNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "unknown device")
	}
	return session, err
}

func intentError(err error) error {
	switch {
	case errors.Is(err, core.ErrInvalidMode):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrSessionClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}

func (s *Server) intent(action func(session *core.Session, ctx context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := s.session(c)
		if err != nil {
			return err
		}
		if err := action(session, c.Request().Context()); err != nil {
			return intentError(err)
		}
		return c.NoContent(http.StatusAccepted)
	}
}

type stateResponse struct {
	Device string `json:"device"`
	core.State
	Uptime string `json:"uptime"`
	Online *bool  `json:"online,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleListDevices(c echo.Context) error {
	ids := make([]string, 0)
	for _, session := range s.sessions.ListSessions() {
		ids = append(ids, session.Id())
	}
	slices.Sort(ids)
	return c.JSON(http.StatusOK, ids)
}

func (s *Server) handleState(c echo.Context) error {
	session, err := s.session(c)
	if err != nil {
		return err
	}

	snapshot := session.Snapshot()
	resp := stateResponse{
		Device: session.Id(),
		State:  snapshot,
		Uptime: snapshot.Uptime().String(),
	}
	if s.presence != nil {
		online := s.presence.Online(session.Id())
		resp.Online = &online
	}
	if box := s.errorBox(session.Id()); box != nil {
		resp.Error, _ = box.Current()
	}
	return c.JSON(http.StatusOK, resp)
}

type valueRequest struct {
	Value *int `json:"value"`
}

func (s *Server) handleSetValue(set func(session *core.Session, ctx context.Context, value int) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req valueRequest
		if err := c.Bind(&req); err != nil {
			return err
		}
		if req.Value == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "missing value")
		}
		return s.intent(func(session *core.Session, ctx context.Context) error {
			return set(session, ctx, *req.Value)
		})(c)
	}
}

type modeRequest struct {
	Mode core.Mode `json:"mode"`
}

func (s *Server) handleSetMode(c echo.Context) error {
	var req modeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid mode")
	}
	return s.intent(func(session *core.Session, ctx context.Context) error {
		return session.SetMode(ctx, req.Mode)
	})(c)
}

func (s *Server) handlePlay(c echo.Context) error {
	sound := core.Sound(c.Param("sound"))
	if !sound.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown sound")
	}
	return s.intent(func(session *core.Session, ctx context.Context) error {
		return session.Play(ctx, sound)
	})(c)
}

func (s *Server) handleCommand(c echo.Context) error {
	command := new(core.Command)
	if err := c.Bind(command); err != nil {
		return err
	}
	if command.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing command name")
	}
	return s.intent(func(session *core.Session, ctx context.Context) error {
		return session.Send(ctx, command)
	})(c)
}
