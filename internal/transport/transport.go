package transport

import (
	"net/http"
	"time"

	"github.com/ds124wfegd/uabc-events/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Events       *EventHandler
	Wizard       *WizardHandler
	Certificates *CertificateHandler
	Admin        *AdminHandler
	Downloads    *DownloadHandler
}

type RouterConfig struct {
	JWTSecret      string
	AllowedOrigins []string
	RequestTimeout time.Duration
	Version        string
}

func InitRoutes(h Handlers, cfg RouterConfig) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory

	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": cfg.Version,
			"time":    time.Now().UTC(),
		})
	})

	router.GET("/files/*path", h.Downloads.Download)

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		wizard := api.Group("/wizard")
		{
			wizard.POST("", h.Wizard.Start)
			wizard.GET("/:id", h.Wizard.Get)
			wizard.PUT("/:id/draft", h.Wizard.UpdateDraft)
			wizard.POST("/:id/next", h.Wizard.Next)
			wizard.POST("/:id/back", h.Wizard.Back)
			wizard.POST("/:id/finalize", h.Wizard.Finalize)
		}

		events := api.Group("/events")
		{
			events.POST("", h.Events.CreateEvent)
			events.GET("", h.Events.ListEvents)
			events.GET("/:id", h.Events.GetEvent)
			events.PUT("/:id", h.Events.UpdateEvent)
			events.POST("/:id/submit", h.Events.SubmitEvent)
			events.DELETE("/:id", h.Events.DeleteEvent)

			events.POST("/:id/files", h.Events.UploadFile)
			events.GET("/:id/files", h.Events.ListFiles)
			events.GET("/:id/files/:fileId/url", h.Events.FileURL)
			events.DELETE("/:id/files/:fileId", h.Events.DeleteFile)

			events.POST("/:id/certificates", h.Certificates.Request)
			events.GET("/:id/certificates", h.Certificates.ListForEvent)
		}

		admin := api.Group("/admin")
		{
			admin.GET("/review", h.Admin.ListForReview)
			admin.POST("/review/:id/decision", h.Admin.Decide)

			admin.GET("/certificates", h.Certificates.ListPending)
			admin.POST("/certificates/:id/approve", h.Certificates.Approve)
			admin.POST("/certificates/:id/reject", h.Certificates.Reject)

			admin.GET("/statistics", h.Events.GetStatistics)

			admin.GET("/notifications/failed", h.Admin.ListFailed)
			admin.GET("/notifications/stats", h.Admin.FailedStats)
			admin.POST("/notifications/failed/:taskId/requeue", h.Admin.RequeueFailed)
			admin.DELETE("/notifications/failed/:taskId", h.Admin.DeleteFailed)
		}
	}

	return router, nil
}
