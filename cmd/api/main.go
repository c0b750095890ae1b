package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"hotelbooking/internal/config"
	"hotelbooking/internal/database"
	"hotelbooking/internal/modules/availability"
	"hotelbooking/internal/modules/channel"
	"hotelbooking/internal/modules/notification"
	"hotelbooking/internal/modules/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	var ext externals

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("level=warn msg=\"redis unavailable, calendar cache disabled\" err=%v", err)
		} else {
			ext.cache = availability.NewRedisCache(rdb, cfg.CalendarCacheTTL)
		}
		cancel()
	}

	if cfg.AMQPURL != "" {
		conn, ch, err := notification.SetupConn(cfg.AMQPURL, 5)
		if err != nil {
			log.Printf("level=warn msg=\"amqp unavailable, events stay local\" err=%v", err)
		} else {
			defer closeAMQP(conn, ch)
			ext.publishers = append(ext.publishers, notification.NewAMQPPublisher(ch))
		}
	}

	if cfg.PaymentAPIURL != "" {
		ext.gateway = payment.NewHTTPGateway(cfg.PaymentAPIURL, cfg.PaymentSecretKey, cfg.PaymentTimeout, log.Printf)
	} else {
		log.Printf("level=warn msg=\"PAYMENT_API_URL not set, card payments disabled\"")
	}

	if cfg.ChannelAPIURL != "" {
		ext.channel = channel.NewHTTPClient(cfg.ChannelAPIURL, cfg.ChannelAPIKey, 0)
	}

	a, err := buildApp(cfg, db, ext)
	if err != nil {
		log.Fatalf("wiring failed: %v", err)
	}
	defer a.hub.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.scheduler.Start()
	go func() {
		log.Printf("level=info msg=\"listening\" addr=%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("level=info msg=\"shutting down\"")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("level=error msg=\"http shutdown\" err=%v", err)
	}
	a.scheduler.Stop(shutdownCtx)
}

func closeAMQP(conn *amqp.Connection, ch *amqp.Channel) {
	if err := ch.Close(); err != nil {
		log.Printf("level=warn msg=\"amqp channel close\" err=%v", err)
	}
	if err := conn.Close(); err != nil {
		log.Printf("level=warn msg=\"amqp connection close\" err=%v", err)
	}
}
