package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		SecretKey        string
		DefaultFromEmail mail.Address
		AlertEmail       mail.Address
		SendgridAPIKey   string
		RollbarToken     string
		Server           ServerConfig
		Portal           PortalConfig
		Sync             SyncConfig
		State            StateConfig
		Database         DatabaseConfig
	}

	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugAddr                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	PortalConfig struct {
		BaseURL              string
		EmbedBaseURL         string
		School               string
		ComponentID          int
		Timeout              time.Duration
		MaxConcurrentFetches int
	}

	SyncConfig struct {
		Interval           time.Duration
		BackgroundDeadline time.Duration
	}

	StateConfig struct {
		Backend string // jsonfile | postgres
		Dir     string
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "GradeSync")
	v.SetDefault("secretKey", "x3m$7kq)wgn&+02=rv&pfeh9(j!z)#*d5(#tg8h^$qwum4abc")
	v.SetDefault("build", "develop")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("alertEmail", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverDebugAddr", ":4000")
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("portalBaseUrl", "https://portals.veracross.com")
	v.SetDefault("portalEmbedBaseUrl", "https://portals-embed.veracross.com/oakwood/student")
	v.SetDefault("portalSchool", "oakwood")
	v.SetDefault("portalComponentId", 1308)
	v.SetDefault("portalTimeout", 15*time.Second)
	v.SetDefault("portalMaxConcurrentFetches", 24)

	v.SetDefault("syncInterval", 15*time.Minute)
	v.SetDefault("syncBackgroundDeadline", 25*time.Second)

	v.SetDefault("stateBackend", "jsonfile")
	v.SetDefault("stateDir", filepath.Join(Getwd(), "var"))

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbName", "gradesync")
	v.SetDefault("dbUser", "gradesync")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbDisableTls", true)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		AlertEmail:       mail.Address{Address: v.GetString("alertEmail")},
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Addr:                      v.GetString("serverAddr"),
			DebugAddr:                 v.GetString("serverDebugAddr"),
			ShutdownTimeout:           v.GetDuration("shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Portal: PortalConfig{
			BaseURL:              v.GetString("portalBaseUrl"),
			EmbedBaseURL:         v.GetString("portalEmbedBaseUrl"),
			School:               v.GetString("portalSchool"),
			ComponentID:          v.GetInt("portalComponentId"),
			Timeout:              v.GetDuration("portalTimeout"),
			MaxConcurrentFetches: v.GetInt("portalMaxConcurrentFetches"),
		},
		Sync: SyncConfig{
			Interval:           v.GetDuration("syncInterval"),
			BackgroundDeadline: v.GetDuration("syncBackgroundDeadline"),
		},
		State: StateConfig{
			Backend: v.GetString("stateBackend"),
			Dir:     v.GetString("stateDir"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			DisableTLS:    v.GetBool("dbDisableTls"),
		},
	}

	if err := conf.validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

func (c *Config) validate() error {
	return vala.BeginValidation().Validate(
		vala.StringNotEmpty(c.AppName, "appName"),
		vala.StringNotEmpty(c.SecretKey, "secretKey"),
		vala.StringNotEmpty(c.Portal.BaseURL, "portalBaseUrl"),
		vala.StringNotEmpty(c.Portal.EmbedBaseURL, "portalEmbedBaseUrl"),
		vala.StringNotEmpty(c.Portal.School, "portalSchool"),
		vala.StringNotEmpty(c.State.Backend, "stateBackend"),
		vala.GreaterThan(c.Portal.ComponentID, 0, "portalComponentId"),
		vala.GreaterThan(c.Portal.MaxConcurrentFetches, 0, "portalMaxConcurrentFetches"),
	).Check()
}
