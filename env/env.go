package env

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	envconfig "github.com/sethvargo/go-envconfig"
)

const (
	Development = "development"
	Production  = "production"
)

type EnvironmentSettings struct {
	NodeEnv        string `env:"NODE_ENV, default=development"`
	HTTPServerPort string `env:"HTTP_SERVER_PORT, default=8080"`

	MongoDBURL   string `env:"MONGO_DB_URL, default=mongodb://127.0.0.1:27017"`
	DatabaseName string `env:"MONGO_DB_NAME, default=natours"`

	SECRET_KEY         string        `env:"SECRET_KEY, required"`
	JWTExpiresIn       time.Duration `env:"JWT_EXPIRES_IN, default=2160h"`
	JWTCookieExpiresIn int           `env:"JWT_COOKIE_EXPIRES_IN, default=90"`

	RedisAddr     string `env:"REDIS_ADDR, default=127.0.0.1:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB, default=0"`

	RateLimitMax    int64         `env:"RATE_LIMIT_MAX, default=100"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW, default=1h"`

	// Only honour X-Forwarded-For and friends when a reverse proxy sets them.
	TrustProxy bool `env:"TRUST_PROXY, default=false"`

	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	EmailFrom      string `env:"EMAIL_FROM, default=hello@natours.io"`
	EmailFromName  string `env:"EMAIL_FROM_NAME, default=Natours"`

	AWSRegion   string `env:"AWS_REGION, default=us-east-1"`
	AWSS3Bucket string `env:"AWS_S3_BUCKET"`
	PhotoDir    string `env:"PHOTO_DIR, default=public/img/users"`
}

func (e *EnvironmentSettings) IsProduction() bool {
	return e.NodeEnv == Production
}

// LoadEnvironment reads config.env (when present) into the process
// environment and then decodes the settings from it.
func LoadEnvironment(ctx context.Context) (*EnvironmentSettings, error) {
	if err := godotenv.Load("config.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	var settings EnvironmentSettings
	if err := envconfig.Process(ctx, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}
