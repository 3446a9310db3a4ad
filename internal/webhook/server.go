package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/tenant"
	"gitlab.com/astradesk/api/wa-campaign-bridge/pkg/logger"
)

// Server hosts the webhook and campaign routes on gin.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
}

// NewServer builds the HTTP surface. Campaign routes run in the configured
// organization's tenant scope; the webhook route resolves its tenant from
// the instance token instead.
func NewServer(port int, handler *Handler, orgID string, environment string) *Server {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestContext())

	engine.POST("/webhook", handler.HandleEvent)

	api := engine.Group("/v1")
	api.Use(tenantScope(orgID))
	{
		api.POST("/messages", handler.HandleSendMessage)
		api.POST("/campaigns", handler.HandleCreateCampaign)
		api.POST("/campaigns/:id/pause", handler.HandleCampaignAction("pause"))
		api.POST("/campaigns/:id/resume", handler.HandleCampaignAction("resume"))
		api.DELETE("/campaigns/:id", handler.HandleCampaignAction("delete"))
	}

	return &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// requestContext assigns each request an id and a scoped logger.
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx := tenant.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-Id", requestID)
		c.Next()
	}
}

// tenantScope pins the request to the deployment's organization.
func tenantScope(orgID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if orgID == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "no organization configured"})
			return
		}
		c.Request = c.Request.WithContext(tenant.WithOrgID(c.Request.Context(), orgID))
		c.Next()
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	logger.Log.Info("Starting webhook server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
