package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
	"github.com/joelikes8/Discord-CBA-Bot/internal/roblox"
	"github.com/joelikes8/Discord-CBA-Bot/internal/storage"
)

// Server is the JSON dashboard API. It only reads and writes through
// the store; it never talks to Discord directly.
type Server struct {
	store  storage.Store
	roblox *roblox.Client
}

func NewServer(store storage.Store, rbx *roblox.Client) *Server {
	return &Server{store: store, roblox: rbx}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetTrustedProxies(nil)

	r.GET("/api/dashboard/stats", s.getDashboardStats)
	r.GET("/api/dashboard/activity", s.getDashboardActivity)

	r.GET("/api/security/settings", s.getSecuritySettings)
	r.POST("/api/security/settings", s.updateSecuritySettings)
	r.GET("/api/security/logs", s.getSecurityLogs)

	r.GET("/api/verification/list", s.getVerifications)
	r.POST("/api/verification/refresh-connection", s.refreshRobloxConnection)

	r.GET("/api/tickets/list", s.getOpenTickets)
	r.GET("/api/tickets/all", s.getAllTickets)

	r.GET("/api/server/info", s.getServerInfo)
	r.POST("/api/bot/restart", s.restartBot)

	// Handle 404
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"status": false,
			"error":  "Endpoint Not Found",
			"path":   c.Request.URL.Path,
		})
	})

	// Handle 405
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"status": false,
			"error":  "Method Not Allowed",
			"method": c.Request.Method,
		})
	})

	return r
}

// Run starts the API server. Blocks until the listener fails.
func (s *Server) Run(port string) error {
	logging.Info("Dashboard API listening on :%s", port)
	return s.Router().Run(":" + port)
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"status": true,
		"data":   data,
	})
}

func fail(c *gin.Context, code int, err string) {
	c.JSON(code, gin.H{
		"status": false,
		"error":  err,
	})
}

// requireServerID pulls the serverId query parameter every per-guild
// endpoint needs.
func requireServerID(c *gin.Context) (string, bool) {
	serverID := c.Query("serverId")
	if serverID == "" {
		fail(c, http.StatusBadRequest, "serverId query parameter is required")
		return "", false
	}
	return serverID, true
}

func limitParam(c *gin.Context, def int) int {
	limit := def
	if raw := c.Query("limit"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil || limit <= 0 {
			limit = def
		}
	}
	return limit
}
