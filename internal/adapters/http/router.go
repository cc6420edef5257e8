package http

import (
	"context"
	nethttp "net/http"
	"strconv"

	"github.com/dkeye/meetrelay/internal/adapters/signal"
	"github.com/dkeye/meetrelay/internal/adapters/stream"
	"github.com/dkeye/meetrelay/internal/app"
	"github.com/dkeye/meetrelay/internal/config"
	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/dkeye/meetrelay/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const maxHistoryLimit = 500

// Archive is the read side of the message store exposed over HTTP.
type Archive interface {
	RecentChats(ctx context.Context, meetingID domain.MeetingID, limit int) ([]domain.ChatMessage, error)
	Attendance(ctx context.Context, meetingID domain.MeetingID) ([]domain.Attendance, error)
}

type Deps struct {
	Controller *signal.Controller
	Registry   *app.Registry
	Archive    Archive
}

// RequestIDMiddleware tags every request with an id for log correlation.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *nethttp.Request) bool { return true },
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{
			"status":   "ok",
			"sessions": deps.Controller.ActiveSessions(),
			"rooms":    len(deps.Registry.List()),
		})
	})

	ws := func(c *gin.Context) { serveWS(ctx, c, cfg, deps.Controller) }
	r.GET("/ws/meeting/:meeting_id", ws)

	api := r.Group("/api")
	api.GET("/ws/signal", ws)
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, deps.Registry.List())
	})
	api.GET("/rooms/:meeting_id/members", func(c *gin.Context) {
		id := domain.MeetingID(c.Param("meeting_id"))
		members := lo.Map(deps.Registry.MembersOf(id), func(ms core.MemberSession, _ int) core.MemberDTO {
			return core.NewMemberDTO(ms)
		})
		c.JSON(nethttp.StatusOK, gin.H{"meeting_id": id, "members": members, "count": len(members)})
	})
	if deps.Archive != nil {
		api.GET("/meetings/:meeting_id/messages", func(c *gin.Context) { listMessages(c, deps.Archive) })
		api.GET("/meetings/:meeting_id/attendance", func(c *gin.Context) { listAttendance(c, deps.Archive) })
	}

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

// presetHandshake builds the handshake carried by the URL. Both the token
// and the meeting id are needed, otherwise the client sends a handshake frame.
func presetHandshake(token, meetingID string) *protocol.Handshake {
	if token == "" || meetingID == "" {
		return nil
	}
	return &protocol.Handshake{
		Type:       protocol.TypeHandshake,
		Credential: token,
		MeetingID:  meetingID,
	}
}

// serveWS upgrades the request and runs a relay session on it.
func serveWS(ctx context.Context, c *gin.Context, cfg *config.Config, ctl *signal.Controller) {
	preset := presetHandshake(c.Query("token"), c.Param("meeting_id"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("request_id", c.GetString("request_id")).Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "adapters.http").Str("request_id", c.GetString("request_id")).Str("path", c.FullPath()).Msg("ws connection")
	ctl.Serve(ctx, stream.NewWSConn(conn, cfg.Relay.MaxFrameSize), preset)
}

func listMessages(c *gin.Context, archive Archive) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			c.JSON(nethttp.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	msgs, err := archive.RecentChats(c.Request.Context(), domain.MeetingID(c.Param("meeting_id")), limit)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list messages")
		c.JSON(nethttp.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(nethttp.StatusOK, msgs)
}

func listAttendance(c *gin.Context, archive Archive) {
	recs, err := archive.Attendance(c.Request.Context(), domain.MeetingID(c.Param("meeting_id")))
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list attendance")
		c.JSON(nethttp.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(nethttp.StatusOK, recs)
}
