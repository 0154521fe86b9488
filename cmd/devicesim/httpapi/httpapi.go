// Package httpapi is devicesim's HTTP surface, grounded on the
// teacher's webserver.NewWebServer: gin router, permissive CORS,
// recovery middleware, a statik-backed /dashboard, socket.io mounted
// under /socket.io, and root redirected to the dashboard. The teacher's
// broad device/gateway/codec/template CRUD surface is collapsed to the
// three operations a single embedded device actually exposes, plus
// Prometheus scraping.
package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/r3dpanda-labs/lorawan-device/response"
)

// StatusView is the JSON shape of GET /api/status.
type StatusView struct {
	Family   string `json:"family"`
	FCntUp   uint32 `json:"fcntUp"`
	FCntDown uint32 `json:"fcntDown"`
	Joined   bool   `json:"joined"`
}

// SendRequest is the JSON body POST /api/send expects.
type SendRequest struct {
	FPort     uint8  `json:"fPort"`
	Payload   []byte `json:"payload"`
	Confirmed bool   `json:"confirmed"`
}

// Runtime is the subset of the harness's run loop the HTTP layer
// drives; implemented by devicesim's main package so httpapi never
// needs to know about the engine's generic radio phy-event type.
type Runtime interface {
	Status() StatusView
	RequestJoin() error
	RequestSend(req SendRequest) (response.Response, error)
}

// NewRouter builds the gin engine, serving the dashboard, the
// socket.io event stream, the device API, and /metrics.
func NewRouter(rt Runtime, eventSocket *socketio.Server, dashboard http.FileSystem) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Access-Control-Allow-Origin", "Access-Control-Allow-Headers", "Content-Type"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))
	router.Use(gin.Recovery())

	router.Group("/dashboard").StaticFS("/", dashboard)

	api := router.Group("/api")
	{
		api.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, rt.Status())
		})
		api.POST("/join", func(c *gin.Context) {
			if err := rt.RequestJoin(); err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"status": "join requested"})
		})
		api.POST("/send", func(c *gin.Context) {
			var req SendRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			resp, err := rt.RequestSend(req)
			if err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"response": resp.Kind.String()})
		})
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/socket.io/*any", gin.WrapH(eventSocket))
	router.POST("/socket.io/*any", gin.WrapH(eventSocket))
	router.GET("/", func(c *gin.Context) { c.Redirect(http.StatusMovedPermanently, "/dashboard/") })

	return router
}
