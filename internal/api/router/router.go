package router

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wb-go/wbf/ginext"

	"github.com/pixmill/pixmill/internal/api/handlers/job"
	"github.com/pixmill/pixmill/internal/middleware"
)

func Setup(h *job.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	api := r.Group("/api")

	api.POST("/jobs", h.Upload)                  // uploading image
	api.GET("/jobs", h.List)                     // listing jobs
	api.GET("/jobs/:id", h.Get)                  // getting job record by id
	api.GET("/jobs/:id/output", h.GetOutput)     // serving processed bytes
	api.PUT("/jobs/:id/settings", h.PutOverride) // replacing per-job override
	api.DELETE("/jobs/:id", h.Delete)            // deleting job by id

	api.GET("/settings", h.GetSettings)                 // current global settings
	api.PUT("/settings", h.PutSettings)                 // replacing global settings
	api.POST("/settings/preset/:preset", h.ApplyPreset) // merging a preset

	promHandler := promhttp.Handler()
	r.GET("/metrics", func(c *ginext.Context) {
		promHandler.ServeHTTP(c.Writer, c.Request)
	})

	return r
}
