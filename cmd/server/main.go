package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/ae-utbm/sith-pos/internal/config"
	"github.com/ae-utbm/sith-pos/internal/database"
	routerpkg "github.com/ae-utbm/sith-pos/internal/router"
	"github.com/ae-utbm/sith-pos/internal/services"
	"github.com/ae-utbm/sith-pos/pkg/etransaction"
	"github.com/ae-utbm/sith-pos/pkg/mailer"
	"github.com/ae-utbm/sith-pos/pkg/utils"
)

func main() {
	// .env is optional, real deployments use actual environment variables
	_ = godotenv.Load()

	utils.InitLogger()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}

	signer, verifier := loadGatewayKeys(cfg)

	var mail services.Mailer = mailer.LogMailer{}
	if cfg.SMTPAddr != "" {
		mail = mailer.NewSMTPMailer(cfg.SMTPAddr, cfg.MailFrom)
	}

	engine := gin.Default()
	engine.Use(utils.GinLogger())

	// CORS configuration
	var allowedOrigins []string
	if cfg.CORSAllowedOrigins != "" {
		allowedOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	} else {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	backend := routerpkg.Setup(engine, db, cfg, signer, verifier, mail)

	scheduler := cron.New()
	// force-close permanencies left inactive
	_, _ = scheduler.AddFunc("* * * * *", func() {
		if _, err := backend.Permanency.Sweep(time.Now()); err != nil {
			utils.LogError(err, "Permanency sweep failed")
		}
	})
	// drop unconsumed baskets past their TTL
	_, _ = scheduler.AddFunc("@hourly", func() {
		if _, err := backend.Eboutic.PurgeExpired(time.Now()); err != nil {
			utils.LogError(err, "Basket purge failed")
		}
	})
	// dormant account handling, daily at 5am
	_, _ = scheduler.AddFunc("0 5 * * *", func() {
		if _, err := backend.AccountDump.WarningPass(time.Now()); err != nil {
			utils.LogError(err, "Account dump warning pass failed")
		}
		if _, err := backend.AccountDump.DumpPass(time.Now()); err != nil {
			utils.LogError(err, "Account dump drain pass failed")
		}
	})
	scheduler.Start()
	defer scheduler.Stop()

	utils.LogInfo("Server starting", map[string]interface{}{"port": cfg.Port})
	if err := engine.Run(":" + cfg.Port); err != nil {
		utils.LogError(err, "Failed to start server")
		log.Fatalf("Failed to start server: %v", err)
	}
}

// loadGatewayKeys reads the RSA key pair of the bank gateway exchange.
// Both keys are required: the e-shop cannot run without them.
func loadGatewayKeys(cfg *config.Config) (*etransaction.Signer, *etransaction.Verifier) {
	privPEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		log.Fatalf("Cannot read gateway private key %s: %v", cfg.PrivateKeyPath, err)
	}
	signer, err := etransaction.NewSigner(privPEM)
	if err != nil {
		log.Fatalf("Cannot parse gateway private key: %v", err)
	}

	pubPEM, err := os.ReadFile(cfg.BankPublicKeyPath)
	if err != nil {
		log.Fatalf("Cannot read bank public key %s: %v", cfg.BankPublicKeyPath, err)
	}
	verifier, err := etransaction.NewVerifier(pubPEM)
	if err != nil {
		log.Fatalf("Cannot parse bank public key: %v", err)
	}
	return signer, verifier
}
