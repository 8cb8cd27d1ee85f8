package v1

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/config"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterDeps is everything the HTTP surface needs. SUS may be nil.
type RouterDeps struct {
	Config  *config.Config
	Log     *zap.Logger
	Metrics *metrics.Collector
	Tokens  middleware.TokenValidator

	Auth          *AuthHandler
	Patients      *PatientHandler
	Prescriptions *PrescriptionHandler
	Dashboard     *DashboardHandler
	SUS           *SUSHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.AccessLog(d.Log),
		middleware.Metrics(d.Metrics),
		middleware.Recovery(d.Log),
		middleware.Tracing(),
		cors.New(corsConfig(d.Config.CORS)),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": d.Config.App.Version})
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	api := r.Group("/api/v1", middleware.SecurityHeaders())
	if rl := d.Config.RateLimit; rl.RequestsPerSecond > 0 {
		api.Use(middleware.NewRateLimiter(rl.RequestsPerSecond, rl.BurstSize).Middleware())
	}

	public := api.Group("/auth", middleware.PerMinute(max(d.Config.RateLimit.AuthRequestsPerMinute, 1)).Middleware())
	public.POST("/signup", d.Auth.SignUp)
	public.POST("/signin", d.Auth.SignIn)
	public.POST("/refresh", d.Auth.Refresh)

	authed := api.Group("", middleware.Authenticate(d.Tokens))

	authed.POST("/auth/signout", d.Auth.SignOut)
	authed.GET("/auth/me", d.Auth.Me)
	authed.POST("/auth/mfa/enroll", d.Auth.EnrollMFA)
	authed.POST("/auth/mfa/confirm", d.Auth.ConfirmMFA)

	authed.GET("/patients", d.Patients.List)
	authed.POST("/patients", d.Patients.Create)
	authed.GET("/patients/:id", d.Patients.Get)
	authed.PUT("/patients/:id", d.Patients.Update)
	authed.DELETE("/patients/:id", middleware.RequireRole(domain.RoleAdmin), d.Patients.Delete)

	authed.GET("/patients/:id/prescriptions", d.Prescriptions.ListForPatient)
	authed.POST("/patients/:id/prescriptions", d.Prescriptions.CreateForPatient)
	authed.GET("/prescriptions/:id", d.Prescriptions.Get)
	authed.PUT("/prescriptions/:id", d.Prescriptions.Update)
	authed.DELETE("/prescriptions/:id", d.Prescriptions.Delete)

	authed.GET("/dashboard", d.Dashboard.Dashboard)
	authed.GET("/reports/top-medications", d.Dashboard.TopMedications)
	authed.GET("/reports/monthly", d.Dashboard.Monthly)
	authed.GET("/reports/export.csv", d.Dashboard.ExportCSV)

	if d.SUS != nil {
		authed.GET("/sus/patients", d.SUS.ListPatients)
	}

	r.NoRoute(staticFallback(d.Config.Server.StaticDir))

	return r
}

// corsConfig allows any origin, without credentials, when no origin list is set.
func corsConfig(c config.CORSConfig) cors.Config {
	cfg := cors.Config{
		AllowOrigins:     c.AllowedOrigins,
		AllowMethods:     c.AllowedMethods,
		AllowHeaders:     c.AllowedHeaders,
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           c.MaxAge,
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	}
	return cfg
}

// staticFallback serves the built front end from dir. Paths that are not
// files get index.html so client-side routes resolve. API paths and a
// missing dir answer 404.
func staticFallback(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		urlPath := c.Request.URL.Path
		if dir == "" || strings.HasPrefix(urlPath, "/api/") || c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "route not found"})
			return
		}

		file := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+urlPath)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}

		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "route not found"})
			return
		}
		c.File(index)
	}
}
