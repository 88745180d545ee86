package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/joelikes8/Discord-CBA-Bot/internal/bot"
	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
)

var appStartTime = time.Now()

// restartBot cycles the Discord connection. The reconnect happens in
// the background so the dashboard gets an immediate answer.
func (s *Server) restartBot(c *gin.Context) {
	sess := bot.GetSession()
	if sess == nil {
		fail(c, http.StatusServiceUnavailable, "Bot session is not initialized")
		return
	}

	go func() {
		if err := sess.Restart(); err != nil {
			logging.Error("API: bot restart failed: %v", err)
		}
	}()

	ok(c, gin.H{"message": "Bot restart initiated"})
}

func (s *Server) getServerInfo(c *gin.Context) {
	botStatus := "offline"
	if sess := bot.GetSession(); sess != nil && sess.BotID != "" {
		botStatus = "online"
	}

	guilds, err := s.store.GetAllDiscordServers()
	if err != nil {
		logging.Warn("API: failed to list guilds: %v", err)
	}

	info := gin.H{
		"bot_status": botStatus,
		"uptime":     time.Since(appStartTime).String(),
		"goroutines": runtime.NumGoroutine(),
		"guilds":     guilds,
	}

	if hostInfo, err := host.Info(); err == nil {
		info["host"] = gin.H{
			"hostname": hostInfo.Hostname,
			"os":       hostInfo.OS,
			"platform": hostInfo.Platform,
			"uptime_s": hostInfo.Uptime,
		}
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		info["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info["memory"] = gin.H{
			"total_mb":     vm.Total / 1024 / 1024,
			"used_mb":      vm.Used / 1024 / 1024,
			"used_percent": vm.UsedPercent,
		}
	}

	ok(c, info)
}
