package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/vidyadesk/school-api/api/swagger"
	"github.com/vidyadesk/school-api/internal/handler"
	"github.com/vidyadesk/school-api/internal/middleware"
	"github.com/vidyadesk/school-api/internal/models"
	"github.com/vidyadesk/school-api/internal/repository"
	"github.com/vidyadesk/school-api/internal/service"
	"github.com/vidyadesk/school-api/pkg/cache"
	"github.com/vidyadesk/school-api/pkg/config"
	"github.com/vidyadesk/school-api/pkg/database"
	"github.com/vidyadesk/school-api/pkg/export"
	"github.com/vidyadesk/school-api/pkg/jobs"
	"github.com/vidyadesk/school-api/pkg/logger"
	"github.com/vidyadesk/school-api/pkg/mailer"
	corsmiddleware "github.com/vidyadesk/school-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vidyadesk/school-api/pkg/middleware/requestid"
)

// @title School Admin API
// @version 1.0.0
// @description Multi-tenant school administration service
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer redisClient.Close()
		}
	}

	mail := mailer.NewSendGrid(cfg.Mail.SendGridKey, cfg.Mail.FromName, cfg.Mail.FromEmail)
	mailQueue := jobs.NewQueue("mail", func(ctx context.Context, job jobs.Job) error {
		msg, ok := job.Payload.(mailer.Message)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		return mail.Send(ctx, msg)
	}, jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		MaxRetries: cfg.Mail.MaxRetries,
		RetryDelay: cfg.Mail.RetryDelay,
		Logger:     logr,
	})
	mailQueue.Start(ctx)
	defer mailQueue.Stop()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	accountRepo := repository.NewAccountRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	resultRepo := repository.NewResultRepository(db)
	historyRepo := repository.NewSessionHistoryRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)

	authSvc := service.NewAuthService(accountRepo, mailQueue, validate, logr, service.AuthConfig{
		JWTSecret:     cfg.JWT.Secret,
		TokenExpiry:   cfg.JWT.Expiration,
		ResetTokenTTL: cfg.Reset.TokenTTL,
		ResetBaseURL:  cfg.Reset.BaseURL,
	})
	studentSvc := service.NewStudentService(studentRepo, ledgerRepo, cacheRepo, cfg.Cache.TTL, validate, logr)
	historySvc := service.NewSessionHistoryService(historyRepo, ledgerRepo, resultRepo, studentRepo, validate, logr)
	resultSvc := service.NewResultService(resultRepo, studentRepo, historyRepo, historySvc, export.NewPDFExporter(), validate, logr)
	feeSvc := service.NewFeeService(feeRepo, ledgerRepo, studentRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, validate, logr)
	staffSvc := service.NewStaffService(staffRepo, validate, logr)
	timetableSvc := service.NewTimetableService(timetableRepo, validate, logr)

	authH := handler.NewAuthHandler(authSvc, handler.CookieSettings{
		Name:   cfg.JWT.CookieName,
		MaxAge: int(cfg.JWT.Expiration / time.Second),
		Secure: cfg.Env == config.EnvProduction,
	})
	studentH := handler.NewStudentHandler(studentSvc)
	resultH := handler.NewResultHandler(resultSvc)
	historyH := handler.NewSessionHistoryHandler(historySvc)
	feeH := handler.NewFeeHandler(feeSvc)
	attendanceH := handler.NewAttendanceHandler(attendanceSvc)
	staffH := handler.NewStaffHandler(staffSvc)
	timetableH := handler.NewTimetableHandler(timetableSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.CookieAuth(authSvc, cfg.JWT.CookieName))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	admin := r.Group("/admin")
	{
		admin.POST("/signup", authH.Signup)
		admin.POST("/signin", authH.Login)
		admin.POST("/logout", authH.Logout)
		admin.GET("/profile", authH.Profile)
		admin.POST("/reset-password", authH.ForgotPassword)
		admin.POST("/reset-password/:token", authH.ResetPassword)
	}

	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleNormal, models.RoleAccountant)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	academic := middleware.RequireRoles(models.RoleAdmin, models.RoleNormal)
	accounts := middleware.RequireRoles(models.RoleAdmin, models.RoleAccountant)

	students := r.Group("/students", anyRole)
	{
		students.GET("", studentH.List)
		students.GET("/overview", studentH.Overview)
		students.GET("/details/:registrationNo", studentH.Get)
		students.GET("/export", studentH.Export)
		students.POST("/register", studentH.Register)
	}
	studentsAdmin := r.Group("/students", adminOnly)
	{
		studentsAdmin.PUT("/edit/:registrationNo", studentH.Update)
		studentsAdmin.DELETE("/:registrationNo", studentH.Delete)
		studentsAdmin.POST("/delete-multiple", studentH.BulkDelete)
		studentsAdmin.PUT("/total-fees", studentH.SetClassFees)
		studentsAdmin.POST("/import", studentH.Import)
	}

	results := r.Group("/result", anyRole)
	{
		results.GET("/class", resultH.ListCohort)
		// marksheet routes stay reachable for any signed-in account
		results.GET("/marksheet", resultH.Marksheet)
		results.GET("/marksheet/pdf", resultH.MarksheetPDF)
	}
	resultsWrite := r.Group("/result", academic)
	{
		resultsWrite.POST("/submit", resultH.Submit)
		resultsWrite.GET("/edit", resultH.EditRoster)
		resultsWrite.PUT("/edit", resultH.Update)
	}

	histories := r.Group("/sessionHistory", anyRole)
	{
		histories.GET("", historyH.List)
	}
	r.POST("/sessionHistory/promote", academic, historyH.Promote)
	r.PUT("/sessionHistory/edit/:registrationNo/:session/:class", accounts, historyH.SettleDues)
	r.PATCH("/sessionHistory/edit/:registrationNo/:session/:class", accounts, historyH.Amend)

	fees := r.Group("/fees", accounts)
	{
		fees.POST("/pay", feeH.RecordPayment)
		fees.GET("/receipt/:receiptNo", feeH.GetReceipt)
		fees.PUT("/receipt/:receiptNo", feeH.EditReceipt)
		fees.GET("/transactions/:registrationNo", feeH.Transactions)
		fees.GET("/daywise", feeH.Daywise)
	}

	attendance := r.Group("/attendance", academic)
	{
		attendance.POST("", attendanceH.Mark)
		attendance.GET("", attendanceH.Sheet)
		attendance.PUT("/:id", attendanceH.Amend)
		attendance.POST("/report", attendanceH.Report)
		attendance.DELETE("", attendanceH.Purge)
		attendance.POST("/staff", attendanceH.MarkStaff)
		attendance.GET("/staff", attendanceH.StaffSheet)
		attendance.PUT("/staff/:id", attendanceH.AmendStaff)
		attendance.GET("/staff/report", attendanceH.StaffReport)
		attendance.DELETE("/staff", attendanceH.PurgeStaff)
	}

	staff := r.Group("/staff", academic)
	{
		staff.GET("", staffH.List)
		staff.GET("/payroll", staffH.Payroll)
		staff.GET("/:empId", staffH.Get)
	}
	staffAdmin := r.Group("/staff", adminOnly)
	{
		staffAdmin.POST("/register", staffH.Register)
		staffAdmin.DELETE("/:empId", staffH.Delete)
	}

	timetable := r.Group("/exam-timetable", academic)
	{
		timetable.POST("", timetableH.Publish)
		timetable.GET("", timetableH.Get)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
