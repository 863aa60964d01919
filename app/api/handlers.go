package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-herald/app/cfg"
	"github.com/lysyi3m/rss-herald/app/feed"
	"github.com/lysyi3m/rss-herald/app/notify"
	"github.com/lysyi3m/rss-herald/app/tasks"
)

var testMessage = notify.Message{
	Title:    "Test notification",
	Link:     "https://github.com/lysyi3m/rss-herald",
	SiteName: "RSS Herald",
}

func NewHandler(runner FeedRunner, monitor Monitor, discoverer FeedDiscoverer, sender tasks.MessageSender) *Handler {
	return &Handler{
		runner:     runner,
		monitor:    monitor,
		discoverer: discoverer,
		sender:     sender,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp":  time.Now().In(time.Local).Format(time.RFC3339),
		"is_running": h.monitor.IsRunning(),
		"version":    cfg.GetVersion(),
	}

	if settings, err := h.runner.Settings(); err == nil {
		health["feeds"] = len(settings.Feeds)
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetConfig(c *gin.Context) {
	settings, err := h.runner.Settings()
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load configuration"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"check_interval":     settings.CheckInterval,
		"webhook_configured": settings.HasWebhook(),
	})
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.CheckInterval != nil && *req.CheckInterval < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_interval must be at least 1"})
		return
	}

	if req.WebhookURL != nil {
		trimmed := strings.TrimSpace(*req.WebhookURL)
		if trimmed != "" && !isHTTPURL(trimmed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "webhook_url must be an http(s) URL"})
			return
		}
		req.WebhookURL = &trimmed
	}

	_, err := h.runner.UpdateSettings(func(s *feed.Settings) error {
		if req.WebhookURL != nil {
			s.WebhookURL = *req.WebhookURL
		}
		if req.CheckInterval != nil {
			s.CheckInterval = *req.CheckInterval
		}
		return nil
	})
	if err != nil {
		slog.Error("Failed to update settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save configuration"})
		return
	}

	slog.Info("Configuration updated",
		"webhook_changed", req.WebhookURL != nil,
		"check_interval_changed", req.CheckInterval != nil)

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) ListFeeds(c *gin.Context) {
	settings, err := h.runner.Settings()
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load feeds"})
		return
	}

	feeds := settings.Feeds
	if feeds == nil {
		feeds = []feed.FeedConfig{}
	}

	c.JSON(http.StatusOK, feeds)
}

func (h *Handler) AddFeed(c *gin.Context) {
	var req addFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// Detached from the request, like CheckNow.
	fc, err := h.runner.RegisterFeed(context.WithoutCancel(c.Request.Context()), req.Name, req.URL)
	if errors.Is(err, tasks.ErrEmptyFeedURL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	if err != nil {
		slog.Error("Failed to register feed", "url", req.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register feed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "feed": fc})
}

func (h *Handler) DeleteFeed(c *gin.Context) {
	id := c.Param("id")

	_, err := h.runner.UpdateSettings(func(s *feed.Settings) error {
		idx, _ := s.FindFeed(id)
		if idx < 0 {
			return errFeedNotFound
		}
		s.Feeds = append(s.Feeds[:idx], s.Feeds[idx+1:]...)
		return nil
	})
	if !h.respondUpdateError(c, id, err) {
		return
	}

	slog.Info("Feed removed", "id", id)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) UpdateFeed(c *gin.Context) {
	id := c.Param("id")

	var req updateFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var updated feed.FeedConfig
	_, err := h.runner.UpdateSettings(func(s *feed.Settings) error {
		_, fc := s.FindFeed(id)
		if fc == nil {
			return errFeedNotFound
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			fc.Name = strings.TrimSpace(*req.Name)
		}
		updated = *fc
		return nil
	})
	if !h.respondUpdateError(c, id, err) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "feed": updated})
}

func (h *Handler) ToggleFeed(c *gin.Context) {
	id := c.Param("id")

	var enabled bool
	_, err := h.runner.UpdateSettings(func(s *feed.Settings) error {
		_, fc := s.FindFeed(id)
		if fc == nil {
			return errFeedNotFound
		}
		fc.Enabled = !fc.Enabled
		enabled = fc.Enabled
		return nil
	})
	if !h.respondUpdateError(c, id, err) {
		return
	}

	slog.Info("Feed toggled", "id", id, "enabled", enabled)
	c.JSON(http.StatusOK, gin.H{"status": "success", "enabled": enabled})
}

func (h *Handler) CheckNow(c *gin.Context) {
	// Detached from the request: entries are already seen when delivery starts.
	result, err := h.runner.CheckFeeds(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"checked":   result.Checked,
		"failed":    result.Failed,
		"new":       result.New,
		"delivered": result.Delivered,
	})
}

func (h *Handler) DetectFeed(c *gin.Context) {
	var req detectFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	target := strings.TrimSpace(req.URL)
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}

	ctx := c.Request.Context()
	feeds, err := h.discoverer.Discover(ctx, target)
	siteInfo := h.discoverer.SiteInfo(ctx, target)

	if err != nil {
		slog.Warn("Feed detection failed", "url", target, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":    "error",
			"message":   err.Error(),
			"site_info": siteInfo,
		})
		return
	}

	if len(feeds) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"status":    "not_found",
			"message":   "No feeds found on this site",
			"site_info": siteInfo,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"feeds":     feeds,
		"site_info": siteInfo,
	})
}

func (h *Handler) StartMonitor(c *gin.Context) {
	if !h.monitor.Start() {
		c.JSON(http.StatusOK, gin.H{"status": "already_running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (h *Handler) StopMonitor(c *gin.Context) {
	h.monitor.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (h *Handler) MonitorStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"is_running": h.monitor.IsRunning()})
}

func (h *Handler) TestWebhook(c *gin.Context) {
	settings, err := h.runner.Settings()
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load configuration"})
		return
	}

	if !settings.HasWebhook() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No webhook configured"})
		return
	}

	if err := h.sender.Send(c.Request.Context(), settings.WebhookURL, testMessage); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// respondUpdateError writes the error response, if any, and reports whether
// the handler should continue.
func (h *Handler) respondUpdateError(c *gin.Context, id string, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, errFeedNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
	default:
		slog.Error("Failed to update feed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save configuration"})
	}
	return false
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
