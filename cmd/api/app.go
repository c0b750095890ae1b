package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hotelbooking/internal/config"
	"hotelbooking/internal/middleware"
	"hotelbooking/internal/modules/auth"
	"hotelbooking/internal/modules/availability"
	"hotelbooking/internal/modules/booking"
	"hotelbooking/internal/modules/channel"
	"hotelbooking/internal/modules/jobs"
	"hotelbooking/internal/modules/notification"
	"hotelbooking/internal/modules/payment"
	"hotelbooking/internal/modules/room"
	jwtsvc "hotelbooking/internal/pkg/jwt"
	"hotelbooking/internal/repository"
)

// externals are the optional outside systems. Nil fields fall back to
// local-only behaviour.
type externals struct {
	cache      availability.CalendarCache
	publishers []notification.Publisher
	gateway    payment.Gateway
	channel    channel.Client
}

type app struct {
	router    *gin.Engine
	scheduler *jobs.Scheduler
	hub       *notification.Hub
}

func buildApp(cfg *config.Config, db *gorm.DB, ext externals) (*app, error) {
	roomRepo := repository.NewRoomRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	intentRepo := repository.NewPaymentIntentRepository(db)
	taskRepo := repository.NewSyncTaskRepository(db)

	hub := notification.NewHub()
	publishers := append([]notification.Publisher{hub, notification.NewLogPublisher(log.Printf)}, ext.publishers...)
	notifSvc := notification.NewService(log.Printf, publishers...)

	gateway := ext.gateway
	if gateway == nil {
		gateway = payment.Disabled{}
	}

	availabilityService := availability.NewService(bookingRepo, roomRepo, cfg.Availability, ext.cache, log.Printf)
	availabilityHandler := availability.NewHandler(availabilityService)

	bookingService := booking.NewService(booking.ServiceOptions{
		Bookings:     bookingRepo,
		Rooms:        roomRepo,
		Intents:      intentRepo,
		Availability: availabilityService,
		Gateway:      gateway,
		Notifs:       notifSvc,
		Currency:     cfg.Currency,
		Loggerf:      log.Printf,
	})
	bookingHandler := booking.NewHandler(bookingService)

	roomService := room.NewService(roomRepo, availabilityService, log.Printf)
	roomHandler := room.NewHandler(roomService)

	jwtService := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(cfg.AdminEmail, cfg.AdminPasswordHash, jwtService)
	authHandler := auth.NewHandler(authService)

	webhookService := channel.NewWebhookService(bookingRepo, roomRepo, availabilityService, notifSvc, log.Printf)
	channelHandler := channel.NewHandler(webhookService, cfg.ChannelWebhookSecret)

	wsHandler := notification.NewWSHandler(hub, jwtService, cfg.CORSAllowedOrigins)

	scheduler := jobs.NewScheduler(log.Printf)
	if ext.channel != nil {
		worker := channel.NewSyncWorker(taskRepo, bookingRepo, ext.channel, channel.WorkerOptions{
			MaxAttempts: cfg.ChannelSyncMaxTries,
			Backoff:     cfg.ChannelSyncBackoff,
			Loggerf:     log.Printf,
		})
		if err := scheduler.AddChannelSync(cfg.ChannelSyncInterval, worker); err != nil {
			return nil, err
		}
	} else {
		log.Printf("level=warn msg=\"CHANNEL_API_URL not set, outbound channel sync paused\"")
	}
	reminders := jobs.NewReminderJob(bookingRepo, notifSvc, cfg.ReminderLead, log.Printf)
	if err := scheduler.AddReminders("@hourly", reminders); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AddAllowHeaders("Authorization", middleware.RequestIDHeader, channel.SignatureHeader)
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		// public
		availabilityHandler.RegisterRoutes(v1)
		bookingHandler.RegisterPublicRoutes(v1)
		roomHandler.RegisterPublicRoutes(v1)
		authHandler.RegisterPublicRoutes(v1)
		channelHandler.RegisterRoutes(v1)
		wsHandler.RegisterRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(jwtService))
		authHandler.RegisterProtectedRoutes(protected)

		admin := v1.Group("/admin")
		admin.Use(middleware.JWTAuth(jwtService), middleware.RequireRole(jwtsvc.RoleAdmin))
		{
			bookingHandler.RegisterAdminRoutes(admin)
			roomHandler.RegisterAdminRoutes(admin)
		}
	}

	return &app{router: r, scheduler: scheduler, hub: hub}, nil
}
