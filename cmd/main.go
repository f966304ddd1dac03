package main

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/roll-social-network/roll-social-network/internal/app"
	"github.com/roll-social-network/roll-social-network/internal/config"
	"github.com/roll-social-network/roll-social-network/internal/controllers"
	"github.com/roll-social-network/roll-social-network/internal/gateways"
	"github.com/roll-social-network/roll-social-network/internal/metrics"
	"github.com/roll-social-network/roll-social-network/internal/middleware"
	"github.com/roll-social-network/roll-social-network/internal/repositories"
	"github.com/roll-social-network/roll-social-network/internal/routes"
	"github.com/roll-social-network/roll-social-network/internal/services"
	"github.com/roll-social-network/roll-social-network/internal/utils"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()
	metrics.MustRegister(cfg.AppName)

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize application:", err)
	}
	defer application.Close()

	gateway, err := gateways.SelectGateway(cfg.SMSGateway, cfg.SMSGatewayArgs)
	if err != nil {
		utils.Logger.WithError(err).Fatalf("invalid phone auth gateway '%s'", cfg.SMSGateway)
	}
	utils.Logger.Infof("Using SMS gateway '%s'", cfg.SMSGateway)

	//----------------------------------------------------------------------
	// Repositories
	//----------------------------------------------------------------------
	userRepo := repositories.NewUserRepository(application.DB)
	codeRepo := repositories.NewVerificationCodeRepository(application.DB)
	otpSecretRepo := repositories.NewOTPSecretRepository(application.DB, cfg.DBEncryptionKey)
	siteRepo := repositories.NewSiteRepository(application.DB)
	rateLimitRepo := repositories.NewRateLimitRepository(application.DB)

	//----------------------------------------------------------------------
	// Services
	//----------------------------------------------------------------------
	codeService := services.NewVerificationCodeService(userRepo, codeRepo, gateway, cfg)
	otpService := services.NewOTPSecretService(userRepo, otpSecretRepo, siteRepo, cfg)
	rateLimiterService := services.NewRateLimiterService(rateLimitRepo, cfg)
	jwtService := services.NewJWTService(cfg)
	loginMethodService := services.NewLoginMethodService(otpService)
	loginService := services.NewPhoneLoginService(
		codeService,
		otpService,
		rateLimiterService,
		jwtService,
		userRepo,
		cfg,
	)
	rateLimitCleanupService := services.NewRateLimitCleanupService(rateLimitRepo)

	//----------------------------------------------------------------------
	// Controllers
	//----------------------------------------------------------------------
	phoneController := controllers.NewPhoneAuthController(loginService, loginMethodService, cfg)
	otpController := controllers.NewOTPSecretController(otpService, userRepo)
	healthController := controllers.NewHealthController(application)

	//----------------------------------------------------------------------
	// Router & Endpoints
	//----------------------------------------------------------------------
	router := mux.NewRouter()
	router.Use(middleware.MetricsMiddleware)

	router.HandleFunc(routes.Health, healthController.HealthCheckHandler).Methods("GET")
	router.Handle(routes.Metrics, promhttp.Handler()).Methods("GET")

	router.HandleFunc(routes.PhoneLoginMethods, phoneController.LoginMethods).Methods("POST")
	router.HandleFunc(routes.PhoneRequestCode, phoneController.RequestCode).Methods("POST")
	router.HandleFunc(routes.PhoneVerifyCode, phoneController.VerifyCode).Methods("POST")
	router.HandleFunc(routes.PhoneVerifyOTP, phoneController.VerifyOTP).Methods("POST")

	// Protected endpoints require a valid token
	protected := router.NewRoute().Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.RSAPublicKey))
	protected.HandleFunc(routes.OTPSecret, otpController.GetSecret).Methods("GET")
	protected.HandleFunc(routes.OTPValidate, otpController.Validate).Methods("POST")

	//----------------------------------------------------------------------
	// Setup daily cleanup via cron
	//----------------------------------------------------------------------
	c := cron.New()

	// rate limit counter cleanup
	_, schErr := c.AddFunc("10 3 * * *", func() {
		if e := rateLimitCleanupService.CleanupDaily(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled rate limit counter cleanup failed")
		}
	})
	if schErr != nil {
		utils.Logger.WithError(schErr).Fatal("Failed to schedule rate limit counter cleanup job")
	}

	c.Start()
	defer c.Stop()

	allowedOrigins := []string{cfg.AppUrl}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, utils.CORSLowSecurityAllowedOriginLocalhost)
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Platform", "X-Device-ID"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("Failed to start server:", err)
	}
}
