package http

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Telemed/internal/adapters/signal"
	"github.com/dkeye/Telemed/internal/config"
	transport "github.com/dkeye/Telemed/internal/transport/http"
)

const clientTokenSessionKey = "ct"

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware gives every caller a stable token kept in the cookie session.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenSessionKey).(string)
		if token == "" {
			token = genClientToken()
			session.Set(clientTokenSessionKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set(signal.ClientTokenKey, token)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, ctrl *signal.SignalWSController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("TelemedSessions", store))
	r.Use(ClientTokenMiddleware())

	h := &transport.Handlers{Hub: ctrl.Hub, ICEServers: cfg.WebRTCICEServers()}

	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/rooms", h.ListRooms)
	api.GET("/rooms/:id", h.GetRoom)
	api.DELETE("/rooms/:id", h.EvictRoom)
	api.DELETE("/rooms/:id/participants/:sid", h.KickParticipant)
	api.GET("/ice-servers", h.GetICEServers)

	// GET /api/ws/signal?role={doctor|patient}&appointmentId={id}
	api.GET("/ws/signal", ctrl.HandleSignal)

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
