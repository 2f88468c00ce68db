// Package api exposes the CRM board over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/crm/account"
	"innovation-crm/internal/crm/assistant"
	"innovation-crm/internal/crm/board"
	"innovation-crm/internal/crm/challenges"
	"innovation-crm/internal/crm/composer"
	"innovation-crm/internal/crm/contacts"
	"innovation-crm/internal/crm/profile"
	"innovation-crm/internal/crm/stages"
	"innovation-crm/internal/crm/timeline"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Assistant answers chat messages.
type Assistant interface {
	Ask(ctx context.Context, message, sessionID string, isAnonymous bool) (*assistant.Reply, error)
}

// HealthCheck is a named readiness check.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Dependencies struct {
	ServiceName string
	Logger      logger.Logger
	Tokens      TokenValidator
	Stages      *stages.Store
	Board       *board.Controller
	Contacts    *contacts.Manager
	Composer    *composer.Composer
	Timeline    *timeline.Log
	Profiles    *profile.Directory
	Challenges  *challenges.Service
	Account     *account.Service
	Assistant   Assistant
	Checks      []HealthCheck
}

type handlers struct {
	Dependencies
}

// NewRouter wires the middleware chain and every route.
func NewRouter(deps Dependencies) *gin.Engine {
	h := &handlers{Dependencies: deps}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(deps.Logger))
	r.Use(otelgin.Middleware(deps.ServiceName))
	r.Use(Metrics())

	r.GET("/health", h.health)
	r.GET("/ready", h.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	publicGroup := r.Group("/public/challenges")
	{
		publicGroup.GET("/:slug", h.getPublicChallenge)
		publicGroup.POST("/:slug/startups", h.applyToChallenge)
	}

	apiGroup := r.Group("/api", Authenticate(deps.Tokens))
	{
		stageGroup := apiGroup.Group("/stages")
		{
			stageGroup.GET("", h.listStages)
			stageGroup.PUT("", h.saveStages)
			stageGroup.POST("", h.addStage)
			stageGroup.POST("/reorder", h.reorderStages)
			stageGroup.PUT("/:stageId", h.editStage)
			stageGroup.DELETE("/:stageId", h.deleteStage)
		}

		apiGroup.GET("/board", h.listBoard)

		startupGroup := apiGroup.Group("/startups")
		{
			startupGroup.POST("", h.saveStartup)
			startupGroup.GET("/:id", h.getStartup)
			startupGroup.DELETE("/:id", h.removeStartup)
			startupGroup.POST("/:id/move", h.moveStartup)

			startupGroup.GET("/:id/contacts", h.listContacts)
			startupGroup.POST("/:id/contacts", h.addContact)
			startupGroup.PUT("/:id/contacts/:cid", h.updateContact)
			startupGroup.DELETE("/:id/contacts/:cid", h.deleteContact)

			startupGroup.POST("/:id/messages", h.sendMessage)
			startupGroup.GET("/:id/timeline", h.listTimeline)
		}

		apiGroup.GET("/profile", h.getProfile)
		apiGroup.PUT("/profile", h.saveProfile)

		apiGroup.POST("/chat", h.chat)

		challengeGroup := apiGroup.Group("/challenges")
		{
			challengeGroup.POST("", h.createChallenge)
			challengeGroup.GET("", h.listChallenges)
			challengeGroup.GET("/:id/messages", h.listChallengeMessages)
			challengeGroup.POST("/:id/messages", h.sendChallengeMessage)
			challengeGroup.POST("/:id/publish", h.publishChallenge)
		}

		apiGroup.GET("/plans", h.listPlans)

		accountGroup := apiGroup.Group("/account")
		{
			accountGroup.POST("/register", h.register)
			accountGroup.POST("/verify-email", h.verifyEmail)
			accountGroup.POST("/plan", h.activatePlan)
			accountGroup.GET("/usage", h.getUsage)
			accountGroup.GET("/consents", h.listConsents)
			accountGroup.DELETE("", h.deleteAccount)
		}
	}

	return r
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().UTC()})
}

func (h *handlers) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.Checks))
	for _, check := range h.Checks {
		if err := check.Check(ctx); err != nil {
			results[check.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[check.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}
