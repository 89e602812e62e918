package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ae-utbm/sith-pos/pkg/utils"
)

// Config carries every tunable of the POS engine. It is built once in main
// and passed into service constructors; there are no module-level singletons.
type Config struct {
	// HTTP
	Port               string
	CORSAllowedOrigins string

	// Database
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSSLMode    string
	DBSchemaPath string

	// Auth
	JWTSecret string

	// The distinguished group every currently-subscribed member belongs to.
	SubscribersGroupID int64

	// Tray discount: a flat per-item reduction applied once when at least
	// TrayThreshold tray-flagged lines are in the basket.
	TrayThreshold int
	TrayDiscount  decimal.Decimal

	// Permanencies are force-closed after this much inactivity.
	PermanencyInactivity time.Duration

	// E-shop
	BasketTTL          time.Duration
	GatewayURL         string
	PrivateKeyPath     string
	BankPublicKeyPath  string
	EshopSellerID      int64 // the distinguished system user selling on the e-shop
	// Card-paid items of this product type credit the buyer's account
	// instead of selling goods.
	RefillingProductTypeID int64

	// Account dumps
	AccountDumpIdle   time.Duration
	AccountDumpGrace  time.Duration
	DumpCounterID     int64 // the counter on which dump sellings are recorded

	// Outgoing mail. An empty SMTPAddr disables real delivery and the
	// notifications land in the log instead.
	SMTPAddr string
	MailFrom string
}

// FromEnv builds a Config from environment variables, with the same
// defaults in development as the docker-compose setup.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:               utils.Getenv("PORT", "8080"),
		CORSAllowedOrigins: os.Getenv("CORS_ALLOWED_ORIGINS"),

		DBHost:       utils.Getenv("DB_HOST", "localhost"),
		DBPort:       utils.Getenv("DB_PORT", "5432"),
		DBUser:       utils.Getenv("DB_USER", "sith_pos_user"),
		DBPassword:   utils.Getenv("DB_PASSWORD", "sith_pos_password"),
		DBName:       utils.Getenv("DB_NAME", "sith_pos_db"),
		DBSSLMode:    utils.Getenv("DB_SSLMODE", "disable"),
		DBSchemaPath: utils.Getenv("DB_SCHEMA_PATH", ""),

		JWTSecret: utils.Getenv("JWT_SECRET", "dev-only-jwt-secret-change-me"),

		GatewayURL:        utils.Getenv("ETRANSACTION_GATEWAY_URL", "https://tpeweb.paybox.com/cgi/MYchoix_pagepaiement.cgi"),
		PrivateKeyPath:    utils.Getenv("ETRANSACTION_PRIVATE_KEY_PATH", "keys/etransaction.key"),
		BankPublicKeyPath: utils.Getenv("ETRANSACTION_BANK_PUBKEY_PATH", "keys/bank.pub"),

		SMTPAddr: os.Getenv("SMTP_ADDR"),
		MailFrom: utils.Getenv("MAIL_FROM", "ae@utbm.fr"),
	}

	var err error
	if cfg.TrayThreshold, err = intEnv("TRAY_THRESHOLD", 3); err != nil {
		return nil, err
	}
	if cfg.TrayDiscount, err = decimalEnv("TRAY_DISCOUNT", "0.50"); err != nil {
		return nil, err
	}
	if cfg.PermanencyInactivity, err = durationEnv("PERMANENCY_INACTIVITY", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BasketTTL, err = durationEnv("BASKET_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.AccountDumpIdle, err = durationEnv("ACCOUNT_DUMP_IDLE", 2*365*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.AccountDumpGrace, err = durationEnv("ACCOUNT_DUMP_GRACE", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.EshopSellerID, err = int64Env("ESHOP_SELLER_ID", 1); err != nil {
		return nil, err
	}
	if cfg.RefillingProductTypeID, err = int64Env("REFILLING_PRODUCT_TYPE_ID", 3); err != nil {
		return nil, err
	}
	if cfg.SubscribersGroupID, err = int64Env("SUBSCRIBERS_GROUP_ID", 2); err != nil {
		return nil, err
	}
	if cfg.DumpCounterID, err = int64Env("DUMP_COUNTER_ID", 1); err != nil {
		return nil, err
	}
	return cfg, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func int64Env(key string, fallback int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func decimalEnv(key string, fallback string) (decimal.Decimal, error) {
	raw := utils.Getenv(key, fallback)
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
