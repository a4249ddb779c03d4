package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"anoa.com/peerlink/internal/config"
	"anoa.com/peerlink/internal/entity"
	"anoa.com/peerlink/internal/middleware"
	"anoa.com/peerlink/internal/scheduler"
	"anoa.com/peerlink/pkg/cache"
	"anoa.com/peerlink/pkg/database"
	"anoa.com/peerlink/pkg/storage"
	"anoa.com/peerlink/pkg/token"

	connectionHttp "anoa.com/peerlink/internal/modules/connection/delivery/http"
	connectionRepo "anoa.com/peerlink/internal/modules/connection/repository"
	connectionService "anoa.com/peerlink/internal/modules/connection/service"

	notifHttp "anoa.com/peerlink/internal/modules/notification/delivery/http"
	notifService "anoa.com/peerlink/internal/modules/notification/service"

	projectHttp "anoa.com/peerlink/internal/modules/project/delivery/http"
	projectRepo "anoa.com/peerlink/internal/modules/project/repository"
	projectService "anoa.com/peerlink/internal/modules/project/service"

	searchService "anoa.com/peerlink/internal/modules/search/service"

	sponsorHttp "anoa.com/peerlink/internal/modules/sponsor/delivery/http"
	sponsorRepo "anoa.com/peerlink/internal/modules/sponsor/repository"
	sponsorService "anoa.com/peerlink/internal/modules/sponsor/service"

	studentHttp "anoa.com/peerlink/internal/modules/student/delivery/http"
	studentRepo "anoa.com/peerlink/internal/modules/student/repository"
	studentService "anoa.com/peerlink/internal/modules/student/service"

	userHttp "anoa.com/peerlink/internal/modules/user/delivery/http"
	userRepo "anoa.com/peerlink/internal/modules/user/repository"
	userService "anoa.com/peerlink/internal/modules/user/service"

	visibilityService "anoa.com/peerlink/internal/modules/visibility/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	cfg       *config.Config
	engine    *gin.Engine
	http      *http.Server
	scheduler *scheduler.Scheduler
	students  studentService.StudentService

	mu     sync.Mutex
	closed bool
}

// NewServer wires every module. redisClient and meiliClient may be nil; the
// server then runs without realtime events, distributed locks and the search index.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, meiliClient meilisearch.ServiceManager) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	imageStorage, err := newImageStorage(cfg)
	if err != nil {
		return nil, err
	}

	var studentIndex searchService.StudentIndex
	if meiliClient != nil {
		studentIndex = searchService.NewMeiliStudentIndex(meiliClient)
	}

	tx := database.NewTransactor(db)
	tokens := token.NewManager(cfg.JWTSecret)

	userRepository := userRepo.NewUserRepository(db)
	studentRepository := studentRepo.NewStudentRepository(db)
	sponsorRepository := sponsorRepo.NewSponsorRepository(db)
	projectRepository := projectRepo.NewProjectRepository(db)
	connectionRepository := connectionRepo.NewConnectionRepository(db)

	notificationSvc := notifService.NewNotificationService(redisClient)
	notificationHandler := notifHttp.NewNotificationHandler(redisClient, cfg.AllowedOrigins)

	facts := visibilityService.NewFactsLoader(connectionRepository, sponsorRepository, projectRepository)

	studentSvc := studentService.NewStudentService(studentRepository, userRepository, tx, facts, imageStorage, studentIndex)
	studentHandler := studentHttp.NewStudentHandler(studentSvc)

	authSvc := userService.NewAuthService(userRepository, tokens, userService.Options{
		AccessTTL:          cfg.AccessTokenTTL,
		RefreshedAccessTTL: cfg.RefreshedAccessTTL,
		RefreshTTL:         cfg.RefreshTokenTTL,
		GoogleConfig:       userService.NewGoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
		OnUserCreated: func(ctx context.Context, user *entity.User) {
			if user.Role == entity.RoleStudent {
				studentSvc.IndexStudent(ctx, user.ID)
			}
		},
	})
	authHandler := userHttp.NewAuthHandler(authSvc, cfg.IsProduction(), cfg.FrontendURL)

	connectionSvc := connectionService.NewConnectionService(
		connectionRepository,
		studentRepository,
		userRepository,
		tx,
		notificationSvc,
		cache.NewRateLimiter(redisClient),
		connectionService.Options{
			PendingTTL:      cfg.ConnectionPendingTTL,
			RequestInterval: cfg.RateLimitConnection,
		},
	)
	connectionHandler := connectionHttp.NewConnectionHandler(connectionSvc)

	projectSvc := projectService.NewProjectService(projectRepository, sponsorRepository, studentRepository, tx, notificationSvc)
	projectHandler := projectHttp.NewProjectHandler(projectSvc)

	sponsorSvc := sponsorService.NewSponsorService(sponsorRepository, userRepository, projectRepository, projectSvc, tx, imageStorage)
	sponsorHandler := sponsorHttp.NewSponsorHandler(sponsorSvc)

	jobs := scheduler.New()
	if err := jobs.Register(connectionService.NewSweepJob(connectionSvc, cache.NewLocker(redisClient), cfg.ConnectionSweepSchedule)); err != nil {
		return nil, err
	}

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	router.Use(middleware.Metrics())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if !cfg.CloudinaryEnabled() {
		router.Static("/uploads", cfg.UploadDir)
	}

	authMiddleware := middleware.NewAuthMiddleware(tokens, userHttp.AccessCookie)
	requireStudent := authMiddleware.RequireRole(string(entity.RoleStudent))
	requireSponsor := authMiddleware.RequireRole(string(entity.RoleSponsor))

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/refresh-token", authHandler.RefreshToken)
		auth.GET("/google/login", authHandler.GoogleLogin)
		auth.GET("/google/callback", authHandler.GoogleCallback)
	}
	api.GET("/student/skills", studentHandler.ListSkills)

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/auth/user-info", authHandler.UserInfo)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		connection := protected.Group("/connection", requireStudent)
		{
			connection.POST("/request", connectionHandler.SendRequest)
			connection.PUT("/accept", connectionHandler.Accept)
			connection.PUT("/reject", connectionHandler.Reject)
			connection.GET("/pending", connectionHandler.ListPending)
			connection.GET("/", connectionHandler.ListConnections)
		}

		student := protected.Group("/student", requireStudent)
		{
			student.PUT("/update-profile", studentHandler.UpdateProfile)
			student.GET("/profile", studentHandler.GetOwnProfile)
			student.GET("/profile/:studentId", studentHandler.GetProfile)
			student.GET("/check-profile-access/:studentId", studentHandler.CheckProfileAccess)
			student.GET("/search", studentHandler.Search)

			student.POST("/skills", studentHandler.AddSkill)
			student.PUT("/skills", studentHandler.UpdateSkill)
			student.DELETE("/skills", studentHandler.DeleteSkill)
			student.DELETE("/skills/:name", studentHandler.DeleteSkill)

			student.POST("/project", studentHandler.AddProject)
			student.PUT("/project/:id", studentHandler.UpdateProject)
			student.DELETE("/project/:id", studentHandler.DeleteProject)

			student.GET("/available-projects", projectHandler.ListAvailable)
			student.POST("/apply-project/:projectId", projectHandler.Apply)
			student.GET("/applied-projects", projectHandler.ListApplied)
			student.GET("/projects", projectHandler.ListStudentProjects)

			student.POST("/send-connection-request", connectionHandler.StudentSendRequest)
			student.GET("/connection-requests", connectionHandler.ListPending)
			student.POST("/handle-connection-request", connectionHandler.HandleRequest)
			student.GET("/connected-students", connectionHandler.ListConnections)
			student.POST("/remove-connection", connectionHandler.RemoveConnection)
		}

		// Sponsor pages are readable by any signed-in user. The :id of
		// /sponsor/projects/:id is a sponsor id on GET and a project id elsewhere.
		protected.GET("/sponsor/profile/:sponsorId", sponsorHandler.GetSponsorProfile)
		protected.GET("/sponsor/projects/:id", projectHandler.ListBySponsor)

		sponsor := protected.Group("/sponsor", requireSponsor)
		{
			sponsor.PUT("/update-profile", sponsorHandler.UpdateProfile)
			sponsor.GET("/profile", sponsorHandler.GetOwnProfile)

			sponsor.GET("/projects", projectHandler.ListOwn)
			sponsor.POST("/projects", projectHandler.Create)
			sponsor.PUT("/projects/:id", projectHandler.Update)
			sponsor.DELETE("/projects/:id", projectHandler.Delete)
			sponsor.GET("/projects/:id/enrolled-students", projectHandler.ListEnrolledStudents)
			sponsor.POST("/projects/:id/select-student", projectHandler.SelectStudent)

			sponsor.GET("/student-profile/:studentId", studentHandler.GetProfile)
			sponsor.GET("/search-students", studentHandler.Search)
		}
	}

	return &Server{
		cfg:       cfg,
		engine:    router,
		http:      newHTTPServer(":"+cfg.Port, router),
		scheduler: jobs,
		students:  studentSvc,
	}, nil
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run starts the scheduler and serves HTTP until Shutdown is called.
// It returns nil right away when Shutdown has already run.
func (s *Server) Run() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.scheduler.Start()
	s.mu.Unlock()

	log.Printf("🚀 Listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	err := s.http.Shutdown(ctx)
	s.scheduler.Stop(ctx)
	return err
}

// Reindex rebuilds the student search index from the database.
func (s *Server) Reindex(ctx context.Context) error {
	return s.students.ReindexAll(ctx)
}

func newImageStorage(cfg *config.Config) (storage.ImageStorage, error) {
	if cfg.CloudinaryEnabled() {
		return storage.NewCloudinaryStorage(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryUploadFolder)
	}
	log.Printf("⚠️ Cloudinary is not configured, storing uploads in %s", cfg.UploadDir)
	return storage.NewLocalStorage(cfg.UploadDir, "/uploads")
}

func setupCORS(router *gin.Engine, origins []string) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
