package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config is read from SGI_* variables; every field also accepts its
// unprefixed name (AWS_REGION, USER_SECRET, ...).
type Config struct {
	AWSRegion        string `envconfig:"AWS_REGION" required:"true"`
	AWSID            string `envconfig:"AWS_ID"`
	AWSSecret        string `envconfig:"AWS_SECRET"`
	AWSToken         string `envconfig:"AWS_TOKEN"`
	DynamoDBEndpoint string `envconfig:"DYNAMODB_ENDPOINT"`

	UserSecret     string        `envconfig:"USER_SECRET" required:"true"`
	AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"15m"`

	AuthRedisURL  string `envconfig:"AUTH_REDIS_URL" required:"true"`
	AuthRedisPass string `envconfig:"AUTH_REDIS_PASS"`
	ChatRedisURL  string `envconfig:"CHAT_REDIS_URL" required:"true"`
	ChatRedisPass string `envconfig:"CHAT_REDIS_PASS"`

	WebURL         string   `envconfig:"WEB_URL"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	InboxAddr   string `envconfig:"INBOX_ADDR" default:":81"`
	BotAddr     string `envconfig:"BOT_ADDR" default:":82"`
	WSAddr      string `envconfig:"WS_ADDR" default:":83"`
	QueueSize   int    `envconfig:"QUEUE_SIZE" default:"10"`
	WorkerCount int    `envconfig:"WORKER_COUNT" default:"10"`

	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile       string `envconfig:"LOG_FILE"`
	LogMaxSize    int    `envconfig:"LOG_MAX_SIZE" default:"100"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"7"`
	LogMaxAge     int    `envconfig:"LOG_MAX_AGE" default:"7"`
	LogCompress   bool   `envconfig:"LOG_COMPRESS" default:"true"`

	WhatsAppStore     string `envconfig:"WHATSAPP_STORE" default:"whatsapp.db"`
	OutboxKey         string `envconfig:"OUTBOX_KEY" default:"sgi:inbox:outbox"`
	NotificationsRoom string `envconfig:"NOTIFICATIONS_ROOM" default:"inbox:notifications"`
	MediaBaseURL      string `envconfig:"MEDIA_BASE_URL"`

	// the first admin is created on startup when both are set
	SeedAdminEmail    string `envconfig:"SEED_ADMIN_EMAIL"`
	SeedAdminName     string `envconfig:"SEED_ADMIN_NAME" default:"Administrador"`
	SeedAdminPassword string `envconfig:"SEED_ADMIN_PASSWORD"`
}

func Load() (*Config, error) {
	// a missing .env file is normal outside local development
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("sgi", &c); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.QueueSize <= 0 || c.WorkerCount <= 0 {
		return errors.Errorf("queue size and worker count must be positive (got %d/%d)", c.QueueSize, c.WorkerCount)
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("access token ttl must be positive")
	}
	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.AllowedOrigins = origins
	return nil
}
