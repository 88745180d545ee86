package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
	"github.com/joelikes8/Discord-CBA-Bot/internal/storage"
)

func (s *Server) getDashboardStats(c *gin.Context) {
	serverID, okParam := requireServerID(c)
	if !okParam {
		return
	}

	stats, err := s.store.GetServerStats(serverID)
	if err != nil {
		logging.Error("API: failed to compute stats for %s: %v", serverID, err)
		fail(c, http.StatusInternalServerError, "failed to compute server stats")
		return
	}
	ok(c, stats)
}

func (s *Server) getDashboardActivity(c *gin.Context) {
	serverID, okParam := requireServerID(c)
	if !okParam {
		return
	}

	logs, err := s.store.GetRecentSecurityLogs(serverID, limitParam(c, 20))
	if err != nil {
		logging.Error("API: failed to fetch activity for %s: %v", serverID, err)
		fail(c, http.StatusInternalServerError, "failed to fetch recent activity")
		return
	}
	ok(c, logs)
}

func (s *Server) getSecuritySettings(c *gin.Context) {
	serverID, okParam := requireServerID(c)
	if !okParam {
		return
	}

	settings, err := s.store.GetSecuritySettings(serverID)
	if err != nil {
		logging.Error("API: failed to fetch settings for %s: %v", serverID, err)
		fail(c, http.StatusInternalServerError, "failed to fetch security settings")
		return
	}
	ok(c, settings)
}

func (s *Server) updateSecuritySettings(c *gin.Context) {
	var settings storage.SecuritySettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		fail(c, http.StatusBadRequest, "invalid settings payload")
		return
	}
	if settings.ServerID == "" {
		fail(c, http.StatusBadRequest, "serverId is required")
		return
	}

	if err := s.store.UpsertSecuritySettings(&settings); err != nil {
		logging.Error("API: failed to update settings for %s: %v", settings.ServerID, err)
		fail(c, http.StatusInternalServerError, "failed to update security settings")
		return
	}
	ok(c, settings)
}

func (s *Server) getSecurityLogs(c *gin.Context) {
	serverID, okParam := requireServerID(c)
	if !okParam {
		return
	}

	logs, err := s.store.GetRecentSecurityLogs(serverID, limitParam(c, 50))
	if err != nil {
		logging.Error("API: failed to fetch logs for %s: %v", serverID, err)
		fail(c, http.StatusInternalServerError, "failed to fetch security logs")
		return
	}
	ok(c, logs)
}

func (s *Server) getVerifications(c *gin.Context) {
	serverID, okParam := requireServerID(c)
	if !okParam {
		return
	}

	verifications, err := s.store.GetRobloxVerifications(serverID)
	if err != nil {
		logging.Error("API: failed to fetch verifications for %s: %v", serverID, err)
		fail(c, http.StatusInternalServerError, "failed to fetch verifications")
		return
	}
	ok(c, verifications)
}

func (s *Server) refreshRobloxConnection(c *gin.Context) {
	if s.roblox == nil {
		fail(c, http.StatusServiceUnavailable, "roblox client not configured")
		return
	}
	if err := s.roblox.RefreshConnection(); err != nil {
		logging.Error("API: roblox connection refresh failed: %v", err)
		fail(c, http.StatusBadGateway, "roblox connection refresh failed")
		return
	}
	ok(c, gin.H{"connected": true})
}

func (s *Server) getOpenTickets(c *gin.Context) {
	serverID, okParam := requireServerID(c)
	if !okParam {
		return
	}

	tickets, err := s.store.GetOpenTickets(serverID)
	if err != nil {
		logging.Error("API: failed to fetch open tickets for %s: %v", serverID, err)
		fail(c, http.StatusInternalServerError, "failed to fetch tickets")
		return
	}
	ok(c, tickets)
}

func (s *Server) getAllTickets(c *gin.Context) {
	serverID, okParam := requireServerID(c)
	if !okParam {
		return
	}

	tickets, err := s.store.GetAllTickets(serverID)
	if err != nil {
		logging.Error("API: failed to fetch tickets for %s: %v", serverID, err)
		fail(c, http.StatusInternalServerError, "failed to fetch tickets")
		return
	}
	ok(c, tickets)
}
