package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridApiKey   string

		PasswordResetTimeoutDelta time.Duration
		CalendarLocation          *time.Location

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
		Files    FilesConfig
		Kafka    KafkaConfig
	}

	ServerConfig struct {
		Host            string
		Port            int
		DebugHost       string
		ShutdownTimeout time.Duration

		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration

		// requests per second & burst allowed per client IP on auth endpoints (no limit when <= 0)
		AuthRateLimit float64
		AuthRateBurst int
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	StorageConfig struct {
		Backend string // memory | postgres
	}

	FilesConfig struct {
		Endpoint     string
		AccessKey    string
		SecretKey    string
		Bucket       string
		UseSSL       bool
		MaxSize      int64
		AllowedTypes []string
		URLExpiry    time.Duration
	}

	KafkaConfig struct {
		Brokers []string
		Topic   string
	}
)

func (sc ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", sc.Host, sc.Port)
}

func (dc DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", dc.Host, dc.Port)
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Jamii")
	v.SetDefault("secretKey", "kq8-z!w2@pl)vm#4t&ub9c=yh^j0xd$3n(+5re7a*gs61oqf")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("defaultFromName", "Jamii")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("calendarTimezone", "UTC")

	v.SetDefault("serverHost", "")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("authRateLimit", 1.0)
	v.SetDefault("authRateBurst", 5)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbName", "jamii")
	v.SetDefault("dbUser", "jamii")
	v.SetDefault("dbPassword", "jamii")
	v.SetDefault("dbAdminUser", "")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("storageBackend", "memory")

	v.SetDefault("filesEndpoint", "localhost:9000")
	v.SetDefault("filesAccessKey", "")
	v.SetDefault("filesSecretKey", "")
	v.SetDefault("filesBucket", "jamii-resources")
	v.SetDefault("filesUseSSL", false)
	v.SetDefault("filesMaxSize", int64(10<<20))
	v.SetDefault("filesAllowedTypes", "application/pdf,image/jpeg,image/png,text/plain")
	v.SetDefault("filesURLExpiry", time.Hour)

	v.SetDefault("kafkaBrokers", "")
	v.SetDefault("kafkaTopic", "jamii.records")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	loc, err := time.LoadLocation(v.GetString("calendarTimezone"))
	if err != nil {
		log.Fatalf("config.LoadLocation(%s): %v", v.GetString("calendarTimezone"), err)
	}

	return &Config{
		Env:             env,
		Build:           v.GetString("build"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("defaultFromName"),
			Address: v.GetString("defaultFromEmail"),
		},
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridApiKey: v.GetString("sendgridApiKey"),

		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		CalendarLocation:          loc,

		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Port:                      v.GetInt("serverPort"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			AuthRateLimit:             v.GetFloat64("authRateLimit"),
			AuthRateBurst:             v.GetInt("authRateBurst"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetInt("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString("storageBackend")),
		},
		Files: FilesConfig{
			Endpoint:     v.GetString("filesEndpoint"),
			AccessKey:    v.GetString("filesAccessKey"),
			SecretKey:    v.GetString("filesSecretKey"),
			Bucket:       v.GetString("filesBucket"),
			UseSSL:       v.GetBool("filesUseSSL"),
			MaxSize:      v.GetInt64("filesMaxSize"),
			AllowedTypes: splitAndTrim(v.GetString("filesAllowedTypes")),
			URLExpiry:    v.GetDuration("filesURLExpiry"),
		},
		Kafka: KafkaConfig{
			Brokers: splitAndTrim(v.GetString("kafkaBrokers")),
			Topic:   v.GetString("kafkaTopic"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: in-memory storage, fixed secret, no external services.
func NewTestConfig() *Config {
	return &Config{
		Env:             "TEST",
		Build:           "test",
		Debug:           false,
		TestMode:        true,
		AppName:         "Jamii",
		SecretKey:       "test-secret",
		FrontendBaseURL: "http://localhost:3000",
		DefaultFromEmail: mail.Address{
			Name:    "Jamii",
			Address: "noreply@localhost",
		},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		CalendarLocation:          time.UTC,
		Server: ServerConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Storage: StorageConfig{Backend: "memory"},
		Files: FilesConfig{
			Bucket:       "test",
			MaxSize:      1 << 20,
			AllowedTypes: []string{"application/pdf", "text/plain"},
			URLExpiry:    time.Hour,
		},
	}
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
