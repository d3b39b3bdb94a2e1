package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campus/internal/apperr"
	"campus/internal/attendance"
	"campus/internal/auth"
	"campus/internal/cloudinary"
	"campus/internal/config"
	"campus/internal/directory"
	"campus/internal/httpmiddleware"
	"campus/internal/leave"
	"campus/internal/message"
	"campus/internal/metrics"
	"campus/internal/queue"
	"campus/internal/rbac"
	"campus/internal/reports"
	"campus/internal/store"
	"campus/internal/syllabus"
	"campus/internal/tasks"
	"campus/internal/verifyclient"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if db == nil {
		return err
	}
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "campus:attendance")
	}

	users := directory.NewRepository(db.Client)
	authSvc := directory.NewService(users)
	leaveSvc := leave.NewService(leave.NewRepository(db.Client))
	msgSvc := message.NewService(message.NewRepository(db.Client))
	syllabusRepo := syllabus.NewRepository(db.Client)
	taskRepo := tasks.NewRepository(db.Client)
	overview := reports.NewService(db.Client)

	verifier := verifyclient.New(cfg.VerifyServiceURL, cfg.VerifySkip)
	attRepo := attendance.NewRepository(db.Client)
	sessions := attendance.NewRedisSessionStore(redisClient.Client, cfg.SessionTTL)
	attSvc := attendance.NewService(sessions, attRepo, verifyclient.NewGatekeeper(verifier), cfg.DedupWindow)

	// Frame storage client (nil when not configured)
	var frames *cloudinary.Client
	if cfg.FrameCloudName != "" && cfg.FrameAPIKey != "" && cfg.FrameAPISecret != "" {
		frames = cloudinary.New(cfg.FrameCloudName, cfg.FrameAPIKey, cfg.FrameAPISecret, cfg.FrameFolder)
		log.Println("frame storage configured:", cfg.FrameCloudName)
	} else {
		log.Println("frame storage not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		dbHealthy := db.Client.PingContext(pingCtx) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/login", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
			Role     string `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := authSvc.Authenticate(c.Request.Context(), req.Email, req.Password, rbac.Role(req.Role))
		if err != nil {
			metrics.LoginFailures.Inc()
			respondErr(c, err)
			return
		}
		capability, err := rbac.CapabilityFor(user.Role)
		if err != nil {
			respondErr(c, err)
			return
		}

		tokens, err := auth.Issue(user.ID, user.Role, user.Dept(), cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		_ = users.SaveRefreshToken(c.Request.Context(), user.ID, tokens.RefreshToken, tokens.RefreshExp)
		metrics.Logins.WithLabelValues(string(user.Role)).Inc()

		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
			"user":          user,
			"capabilities":  capability,
		})
	})

	r.POST("/v1/auth/refresh", func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims, err := auth.Parse(req.RefreshToken, cfg.JWTSigningKey, cfg.JWTIssuer)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}
		ok, err := users.RefreshTokenValid(c.Request.Context(), req.RefreshToken)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token revoked or expired"})
			return
		}

		// Rotation: the old token dies with the new issue.
		_ = users.RevokeRefreshToken(c.Request.Context(), req.RefreshToken)
		tokens, err := auth.Issue(claims.Subject, claims.Role, claims.Department, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		_ = users.SaveRefreshToken(c.Request.Context(), claims.Subject, tokens.RefreshToken, tokens.RefreshExp)

		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	authGroup := r.Group("/v1", auth.UserAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	authGroup.POST("/auth/logout", func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := users.RevokeRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})

	authGroup.GET("/leave-requests", func(c *gin.Context) {
		claims := auth.FromContext(c)
		reqs, err := leaveSvc.ListForViewer(c.Request.Context(), claims.Role, claims.Department)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"leave_requests": reqs})
	})

	authGroup.POST("/leave-requests", auth.Require(rbac.ActionSubmitLeave), func(c *gin.Context) {
		var req struct {
			Type      string    `json:"type" binding:"required"`
			StartDate time.Time `json:"start_date" binding:"required"`
			EndDate   time.Time `json:"end_date" binding:"required"`
			Reason    string    `json:"reason" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims := auth.FromContext(c)
		user, err := users.GetUser(c.Request.Context(), claims.Subject)
		if err != nil || user == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "requester lookup failed"})
			return
		}
		employeeID := ""
		if user.EmployeeID != nil {
			employeeID = *user.EmployeeID
		}
		created, err := leaveSvc.Submit(c.Request.Context(), leave.Request{
			RequesterID:   user.ID,
			RequesterName: user.Name,
			EmployeeID:    employeeID,
			Department:    user.Dept(),
			Type:          req.Type,
			StartDate:     req.StartDate,
			EndDate:       req.EndDate,
			Reason:        req.Reason,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	})

	authGroup.POST("/leave-requests/:id/approve", func(c *gin.Context) {
		claims := auth.FromContext(c)
		req, err := leaveSvc.Approve(c.Request.Context(), claims.Role, claims.Department, claims.Subject, c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		metrics.LeaveDecisions.WithLabelValues("approve").Inc()
		c.JSON(http.StatusOK, req)
	})

	authGroup.POST("/leave-requests/:id/reject", func(c *gin.Context) {
		var body struct {
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims := auth.FromContext(c)
		req, err := leaveSvc.Reject(c.Request.Context(), claims.Role, claims.Department, claims.Subject, c.Param("id"), body.Reason)
		if err != nil {
			respondErr(c, err)
			return
		}
		metrics.LeaveDecisions.WithLabelValues("reject").Inc()
		c.JSON(http.StatusOK, req)
	})

	authGroup.GET("/messages", func(c *gin.Context) {
		claims := auth.FromContext(c)
		msgs, err := msgSvc.ListForViewer(c.Request.Context(), claims.Role, claims.Department)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	})

	authGroup.POST("/messages", auth.Require(rbac.ActionSendMessage), func(c *gin.Context) {
		var req struct {
			Subject  string `json:"subject" binding:"required"`
			Body     string `json:"body" binding:"required"`
			Priority string `json:"priority"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims := auth.FromContext(c)
		user, err := users.GetUser(c.Request.Context(), claims.Subject)
		if err != nil || user == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sender lookup failed"})
			return
		}
		sent, err := msgSvc.Send(c.Request.Context(), message.Message{
			SenderID:         user.ID,
			SenderName:       user.Name,
			SenderEmail:      user.Email,
			SenderDepartment: user.Dept(),
			Subject:          req.Subject,
			Body:             req.Body,
			Priority:         message.Priority(req.Priority),
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, sent)
	})

	authGroup.POST("/messages/:id/read", func(c *gin.Context) {
		claims := auth.FromContext(c)
		msg, err := msgSvc.MarkRead(c.Request.Context(), claims.Role, claims.Department, c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
	})

	authGroup.POST("/messages/:id/star", func(c *gin.Context) {
		claims := auth.FromContext(c)
		msg, err := msgSvc.ToggleStar(c.Request.Context(), claims.Role, claims.Department, c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
	})

	authGroup.GET("/syllabus", func(c *gin.Context) {
		items, err := syllabusRepo.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"syllabus": items})
	})

	authGroup.POST("/syllabus", auth.Require(rbac.ActionManageSyllabus), func(c *gin.Context) {
		var req struct {
			Subject     string `json:"subject" binding:"required"`
			Topic       string `json:"topic" binding:"required"`
			Description string `json:"description"`
			Percent     int    `json:"progress_percent"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		item, err := syllabusRepo.Create(c.Request.Context(), syllabus.Item{
			Subject:         req.Subject,
			Topic:           req.Topic,
			Description:     req.Description,
			ProgressPercent: req.Percent,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, item)
	})

	authGroup.PUT("/syllabus/:id/progress", auth.Require(rbac.ActionManageSyllabus), func(c *gin.Context) {
		// Non-numeric percents die here in binding; the repo only clamps.
		var req struct {
			Percent *int `json:"percent" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		item, err := syllabusRepo.UpdateProgress(c.Request.Context(), c.Param("id"), *req.Percent)
		if err != nil {
			respondErr(c, err)
			return
		}
		if item == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "syllabus item not found"})
			return
		}
		c.JSON(http.StatusOK, item)
	})

	authGroup.GET("/tasks", auth.Require(rbac.ActionManageTasks), func(c *gin.Context) {
		claims := auth.FromContext(c)
		list, err := taskRepo.ListByStudent(c.Request.Context(), claims.Subject)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"tasks": list})
	})

	authGroup.POST("/tasks", auth.Require(rbac.ActionManageTasks), func(c *gin.Context) {
		var req struct {
			Title       string     `json:"title" binding:"required"`
			Description string     `json:"description"`
			Category    string     `json:"category"`
			DueDate     *time.Time `json:"due_date"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims := auth.FromContext(c)
		task, err := taskRepo.Create(c.Request.Context(), tasks.Task{
			StudentID:   claims.Subject,
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			DueDate:     req.DueDate,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, task)
	})

	authGroup.PATCH("/tasks/:id/status", auth.Require(rbac.ActionManageTasks), func(c *gin.Context) {
		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims := auth.FromContext(c)
		task, err := taskRepo.UpdateStatus(c.Request.Context(), c.Param("id"), claims.Subject, tasks.TaskStatus(req.Status))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	})

	authGroup.POST("/attendance/sessions", auth.Require(rbac.ActionMarkAttendance), func(c *gin.Context) {
		claims := auth.FromContext(c)
		sess, err := attSvc.Begin(c.Request.Context(), claims.Subject)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, sess)
	})

	authGroup.POST("/attendance/sessions/:id/advance", auth.Require(rbac.ActionMarkAttendance), func(c *gin.Context) {
		var ev attendance.Evidence
		if err := c.ShouldBindJSON(&ev); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims := auth.FromContext(c)
		sess, evt, err := attSvc.Advance(c.Request.Context(), claims.Subject, claims.Department, c.Param("id"), ev)
		if err != nil {
			if sess != nil {
				metrics.VerificationSteps.WithLabelValues(string(sess.CurrentStep), "fail").Inc()
			}
			respondErr(c, err)
			return
		}
		metrics.VerificationSteps.WithLabelValues(string(sess.StepHistory[len(sess.StepHistory)-1]), "pass").Inc()

		resp := gin.H{"session": sess}
		if evt != nil {
			metrics.AttendancePresent.Inc()
			if err := q.Publish(c.Request.Context(), queue.Message{Type: "present", Body: []byte(evt.ID)}); err != nil {
				log.Printf("queue publish failed: %v", err)
			}
			resp["event"] = evt
		}
		c.JSON(http.StatusOK, resp)
	})

	authGroup.GET("/attendance/events", func(c *gin.Context) {
		claims := auth.FromContext(c)
		capability, err := rbac.CapabilityFor(claims.Role)
		if err != nil {
			respondErr(c, err)
			return
		}
		limit, offset := 50, 0
		if v := c.Query("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				limit = parsed
			}
		}
		if v := c.Query("offset"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				offset = parsed
			}
		}
		events, err := attRepo.ListEvents(c.Request.Context(), capability.Scope, claims.Subject, claims.Department, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	})

	// Uploads a captured verification frame and returns its public URL for
	// use as image_url evidence on the biometric and liveness gates.
	authGroup.POST("/attendance/frames", auth.Require(rbac.ActionMarkAttendance), func(c *gin.Context) {
		if frames == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "frame storage not configured"})
			return
		}

		contentType := c.ContentType()
		var result *cloudinary.UploadResult
		var err error

		switch {
		case strings.Contains(contentType, "multipart/form-data"):
			file, header, ferr := c.Request.FormFile("file")
			if ferr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
				return
			}
			defer file.Close()
			data, ferr := io.ReadAll(file)
			if ferr != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
				return
			}
			result, err = frames.UploadBytes(data, header.Filename)

		default:
			var body struct {
				Data string `json:"data" binding:"required"`
			}
			if berr := c.ShouldBindJSON(&body); berr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"data\": \"<base64 data URL>\"}"})
				return
			}
			result, err = frames.UploadBase64(body.Data)
		}

		if err != nil {
			log.Printf("frame upload failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "frame upload failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"url":       result.SecureURL,
			"public_id": result.PublicID,
			"width":     result.Width,
			"height":    result.Height,
			"bytes":     result.Bytes,
		})
	})

	authGroup.GET("/stats/overview", func(c *gin.Context) {
		claims := auth.FromContext(c)
		stats, err := overview.ForViewer(c.Request.Context(), claims.Role, claims.Department)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// respondErr maps service errors onto HTTP responses.
func respondErr(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
