package bridge

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PerkLab/SlicerMatlabBridge/internal/commander"
	"github.com/PerkLab/SlicerMatlabBridge/internal/observability"
	"github.com/PerkLab/SlicerMatlabBridge/internal/protocol/session"
)

type CommandRequest struct {
	Command          string `json:"command" binding:"required"`
	Host             string `json:"host,omitempty"`
	Port             int    `json:"port,omitempty"`
	ReceiveTimeoutMS int64  `json:"receive_timeout_ms,omitempty"`
}

type CommandResponse struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
	CallID string `json:"call_id"`
	State  string `json:"state"`
	Error  string `json:"error,omitempty"`
}

type ExitRequest struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

func (s *Server) registerRoutes(limit gin.HandlerFunc) {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.appeared).String(),
			"service": s.name,
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(observability.Registry, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/v1", limit)
	v1.POST("/commands", s.handleCommand)
	v1.POST("/exit", s.handleExit)
}

func (s *Server) handleCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ReceiveTimeoutMS < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receive_timeout_ms must not be negative"})
		return
	}

	s.mu.Lock()
	res := s.exec.Execute(c.Request.Context(), commander.Request{
		Endpoint:       session.Endpoint{Host: req.Host, Port: req.Port},
		Command:        req.Command,
		ReceiveTimeout: time.Duration(req.ReceiveTimeoutMS) * time.Millisecond,
	})
	s.mu.Unlock()

	out := CommandResponse{
		Status: res.Status.String(),
		Reply:  res.Reply,
		CallID: res.CallID,
		State:  string(res.State),
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleExit(c *gin.Context) {
	var req ExitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	s.mu.Lock()
	err := s.exec.RequestExit(c.Request.Context(), session.Endpoint{Host: req.Host, Port: req.Port})
	s.mu.Unlock()

	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"status": "failed", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
