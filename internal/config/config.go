package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	DBMaxConns  int    `env:"DB_MAX_CONNS" envDefault:"8"`
	DBMinConns  int    `env:"DB_MIN_CONNS" envDefault:"2"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`

	JWTSecret   string `env:"JWT_SECRET"`
	JWTTTLHours int    `env:"JWT_TTL_HOURS" envDefault:"5"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPorts    []int  `env:"SMTP_PORTS" envDefault:"465,587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"Digital Voyager"`

	ContactEmail string `env:"CONTACT_EMAIL" envDefault:"info@dgvoyager.com"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	LLMBaseURL   string `env:"LLM_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	OTPRateWindowMinutes int `env:"OTP_RATE_WINDOW_MINUTES" envDefault:"5"`
	OTPRateMax           int `env:"OTP_RATE_MAX" envDefault:"3"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
