package ingest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/gorilla/websocket"
	"github.com/hooktrail/hooktrail/internal/engine"
	"github.com/hooktrail/hooktrail/internal/hook"
	"github.com/hooktrail/hooktrail/internal/shared"
	"go.uber.org/zap"
)

const defaultMinHostVersion = "1.0.0"

// hello is the first frame a host sends after the upgrade.
type hello struct {
	Host    string `json:"host"`
	Version string `json:"version"`
}

type handshakeReply struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

// Options configures the intake server.
type Options struct {
	// AuthToken, when set, is required from hosts via Authorization header
	// or token query parameter.
	AuthToken string
	// MinHostVersion is the lowest host protocol version accepted.
	MinHostVersion string
	// DedupCacheSize bounds the per-session duplicate-delivery cache.
	DedupCacheSize int
	Logger         *zap.Logger
}

// Server accepts one WebSocket connection per host process and streams its
// hook events into the engine. Delivery is fire-and-forget from the host's
// perspective; processing failures are logged, never pushed back.
type Server struct {
	engine     *engine.Engine
	logger     *zap.Logger
	guard      *deliveryGuard
	minVersion *semver.Version
	authToken  string
	upgrader   websocket.Upgrader
}

func NewServer(eng *engine.Engine, opts Options) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	raw := opts.MinHostVersion
	if raw == "" {
		raw = defaultMinHostVersion
	}
	minVersion, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("parse min host version %q: %w", raw, err)
	}

	cacheSize := opts.DedupCacheSize
	if cacheSize <= 0 {
		cacheSize = dedupCacheSizePerSession
	}
	guard, err := newDeliveryGuard(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create delivery guard: %w", err)
	}

	return &Server{
		engine:     eng,
		logger:     logger,
		guard:      guard,
		minVersion: minVersion,
		authToken:  opts.AuthToken,
		upgrader:   websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}, nil
}

// ServeWS handles a WebSocket upgrade request with token auth (header or query
// param), validates the host's announced protocol version, then consumes hook
// event frames until the connection drops.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	if s.authToken != "" {
		token := r.URL.Query().Get("token")
		if header := r.Header.Get("Authorization"); header != "" {
			token = strings.TrimPrefix(header, "Bearer ")
		}
		if token != s.authToken {
			s.logger.Warn("hook connection rejected: bad token", zap.String("remote", r.RemoteAddr))
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	var greeting hello
	if err := conn.ReadJSON(&greeting); err != nil {
		s.logger.Warn("read hello frame failed", zap.Error(err))
		return
	}

	if err := s.checkVersion(greeting.Version); err != nil {
		s.logger.Warn("host rejected",
			zap.String("host", greeting.Host),
			zap.String("version", greeting.Version),
			zap.Error(err),
		)
		_ = conn.WriteJSON(handshakeReply{Type: "reject", Reason: err.Error()})
		return
	}

	if err := conn.WriteJSON(handshakeReply{Type: "ready"}); err != nil {
		s.logger.Warn("write ready frame failed", zap.Error(err))
		return
	}

	s.logger.Info("host connected",
		zap.String("host", greeting.Host),
		zap.String("version", greeting.Version),
	)

	s.readLoop(r, conn)
}

func (s *Server) checkVersion(raw string) error {
	version, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("unparseable host version %q: %w", raw, err)
	}
	if version.LessThan(s.minVersion) {
		return fmt.Errorf("host version %s below supported minimum %s", version, s.minVersion)
	}
	return nil
}

func (s *Server) readLoop(r *http.Request, conn *websocket.Conn) {
	for {
		var ev hook.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("hook connection read failed", zap.Error(err))
			}
			return
		}

		if s.guard.seen(ev.SessionID, ev.ID) {
			s.logger.Debug("duplicate hook delivery suppressed",
				zap.String("session_id", ev.SessionID),
				zap.String("event_id", ev.ID),
			)
			continue
		}

		ctx := r.Context()
		if ev.ID != "" {
			ctx = shared.WithDeliveryID(ctx, ev.ID)
		}
		if err := s.engine.HandleEvent(ctx, ev); err != nil {
			s.logger.Warn("hook event processing failed",
				zap.String("session_id", ev.SessionID),
				zap.String("name", ev.Name),
				zap.Error(err),
			)
		}
	}
}
