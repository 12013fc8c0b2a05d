package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port     string
		GRPCAddr string
		LogLevel string
	}
	Backend struct {
		BaseURL      string
		Timeout      time.Duration
		MenuAttempts int
	}
	Conversation struct {
		GreetingDelay time.Duration
		FollowUpDelay time.Duration
		StaffDelay    time.Duration
	}
	Capture struct {
		TokenSecret   string
		TokenSkewSecs int
		TokenTTL      time.Duration
		WorkerCmd     string
	}
	Kitchen struct {
		AMQPURL  string
		Exchange string
		KioskID  string
	}
}

func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_addr", ":9090")
	v.SetDefault("server.log_level", "info")

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", "10s")
	v.SetDefault("backend.menu_attempts", 5)

	v.SetDefault("conversation.greeting_delay", "1500ms")
	v.SetDefault("conversation.follow_up_delay", "3s")
	v.SetDefault("conversation.staff_delay", "3s")

	v.SetDefault("capture.token_skew_secs", 60)
	v.SetDefault("capture.token_ttl", "12h")

	v.SetDefault("kitchen.exchange", "orders_topic")
	v.SetDefault("kitchen.kiosk_id", "1")

	// Map envs
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.grpc_addr", "GRPC_ADDR")
	v.BindEnv("server.log_level", "LOG_LEVEL")

	v.BindEnv("backend.base_url", "BACKEND_URL")
	v.BindEnv("backend.timeout", "INTERPRETER_TIMEOUT")
	v.BindEnv("backend.menu_attempts", "MENU_FETCH_ATTEMPTS")

	v.BindEnv("conversation.greeting_delay", "GREETING_DELAY")
	v.BindEnv("conversation.follow_up_delay", "FOLLOW_UP_DELAY")
	v.BindEnv("conversation.staff_delay", "STAFF_CALL_DELAY")

	v.BindEnv("capture.token_secret", "CAPTURE_TOKEN_SECRET")
	v.BindEnv("capture.token_skew_secs", "CAPTURE_TOKEN_SKEW_SECS")
	v.BindEnv("capture.token_ttl", "CAPTURE_TOKEN_TTL")
	v.BindEnv("capture.worker_cmd", "CAPTURE_WORKER_CMD")

	v.BindEnv("kitchen.amqp_url", "KITCHEN_AMQP_URL")
	v.BindEnv("kitchen.exchange", "KITCHEN_EXCHANGE")
	v.BindEnv("kitchen.kiosk_id", "KIOSK_ID")

	var c Config
	c.Server.Port = toString(v.Get("server.port"))
	c.Server.GRPCAddr = v.GetString("server.grpc_addr")
	c.Server.LogLevel = v.GetString("server.log_level")

	c.Backend.BaseURL = strings.TrimRight(v.GetString("backend.base_url"), "/")
	c.Backend.Timeout = v.GetDuration("backend.timeout")
	c.Backend.MenuAttempts = v.GetInt("backend.menu_attempts")

	c.Conversation.GreetingDelay = v.GetDuration("conversation.greeting_delay")
	c.Conversation.FollowUpDelay = v.GetDuration("conversation.follow_up_delay")
	c.Conversation.StaffDelay = v.GetDuration("conversation.staff_delay")

	c.Capture.TokenSecret = v.GetString("capture.token_secret")
	c.Capture.TokenSkewSecs = v.GetInt("capture.token_skew_secs")
	c.Capture.TokenTTL = v.GetDuration("capture.token_ttl")
	c.Capture.WorkerCmd = v.GetString("capture.worker_cmd")

	c.Kitchen.AMQPURL = v.GetString("kitchen.amqp_url")
	c.Kitchen.Exchange = v.GetString("kitchen.exchange")
	c.Kitchen.KioskID = v.GetString("kitchen.kiosk_id")

	slog.Info("config loaded", "component", "config", "port", c.Server.Port, "backend", c.Backend.BaseURL)
	return c
}

func toString(v any) string { return fmt.Sprint(v) }
