package config

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type RabbitMQ struct {
	URL   string `envconfig:"RABBITMQ_URL"`
	Host  string `envconfig:"RABBITMQ_HOST"  default:"rabbitmq"`
	Port  string `envconfig:"RABBITMQ_PORT"  default:"5672"`
	User  string `envconfig:"RABBITMQ_USER"  default:"admin"`
	Pass  string `envconfig:"RABBITMQ_PASS"  default:"admin"`
	VHost string `envconfig:"RABBITMQ_VHOST" default:"/"`
	// Queue is bound by the consumer; the producer only reports it.
	Queue      string `envconfig:"RABBITMQ_QUEUE"       default:"weather.data"`
	Exchange   string `envconfig:"RABBITMQ_EXCHANGE"    default:"weather.exchange" validate:"required"`
	RoutingKey string `envconfig:"RABBITMQ_ROUTING_KEY" default:"weather.raw"      validate:"required"`

	RetryDelay  int    `envconfig:"RABBITMQ_CONNECT_RETRY_SECONDS" default:"5" validate:"gt=0"`
	MaxAttempts uint64 `envconfig:"RABBITMQ_CONNECT_MAX_ATTEMPTS"  default:"0"`
}

type Collector struct {
	MultiLocation   bool    `envconfig:"ENABLE_MULTI_LOCATION"       default:"true"`
	Latitude        float64 `envconfig:"LATITUDE"                    default:"-23.65221" validate:"gte=-90,lte=90"`
	Longitude       float64 `envconfig:"LONGITUDE"                   default:"-46.45428" validate:"gte=-180,lte=180"`
	LocationName    string  `envconfig:"LOCATION_NAME"`
	IntervalMinutes int     `envconfig:"COLLECTION_INTERVAL_MINUTES" default:"60" validate:"gt=0"`
	RequestDelay    int     `envconfig:"REQUEST_DELAY_SECONDS"       default:"2"  validate:"gte=0"`
}

type Weather struct {
	APIURL   string `envconfig:"WEATHER_API_URL"     default:"https://api.open-meteo.com/v1/forecast" validate:"url"`
	Timezone string `envconfig:"WEATHER_TIMEZONE"    default:"America/Sao_Paulo"`
	Timeout  int    `envconfig:"WEATHER_API_TIMEOUT" default:"10" validate:"gt=0"`
}

type Geocoding struct {
	URL       string `envconfig:"GEOCODING_URL"        default:"https://nominatim.openstreetmap.org/reverse" validate:"url"`
	Language  string `envconfig:"GEOCODING_LANGUAGE"   default:"pt"`
	UserAgent string `envconfig:"GEOCODING_USER_AGENT" default:"weather-collector/1.0"`
	Timeout   int    `envconfig:"GEOCODING_TIMEOUT"    default:"5" validate:"gt=0"`
}

type Breaker struct {
	TimeInterval int    `envconfig:"BREAKER_INTERVAL"   default:"30"`
	TimeTimeOut  int    `envconfig:"BREAKER_TIMEOUT"    default:"60"`
	RepeatNumber uint32 `envconfig:"BREAKER_REPEAT_NUM" default:"5"`
}

type Redis struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED"   default:"false"`
	Host     string `envconfig:"REDIS_HOST"      default:"localhost"`
	Port     string `envconfig:"REDIS_PORT"      default:"6379"`
	DbType   int    `envconfig:"REDIS_DB_TYPE"   default:"0"`
	LiveTime int    `envconfig:"REDIS_LIVE_TIME" default:"24"`
}

type Db struct {
	Dialect string `envconfig:"DB_DIALECT" default:"sqlite3"`
	// Source is the SQLite file for cycle history; empty disables it.
	Source string `envconfig:"DB_NAME" default:"weather_collector.db"`
}

type Server struct {
	Enabled     bool   `envconfig:"OPS_SERVER_ENABLED" default:"true"`
	Host        string `envconfig:"OPS_SERVER_HOST"    default:"0.0.0.0"`
	Port        string `envconfig:"OPS_SERVER_PORT"    default:"9090"`
	ReadTimeout int    `envconfig:"OPS_SERVER_TIMEOUT" default:"10"`
}

type Config struct {
	RabbitMQ  RabbitMQ
	Collector Collector
	Weather   Weather
	Geocoding Geocoding
	Breaker   Breaker
	Redis     Redis
	DB        Db
	Server    Server

	LogsPath     string `envconfig:"LOGS_PATH"      default:"./log/weather-collector.log"`
	HTTPLogsPath string `envconfig:"HTTP_LOGS_PATH" default:"./log/weather-collector-http.log"`
	LogLevel     string `envconfig:"LOG_LEVEL"      default:"info"`
}

func NewConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

func (c *Config) RedisAddress() string {
	return net.JoinHostPort(c.Redis.Host, c.Redis.Port)
}

func (c *Collector) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *Collector) Delay() time.Duration {
	return time.Duration(c.RequestDelay) * time.Second
}

// Address returns RABBITMQ_URL when set, otherwise builds the URI from parts.
func (r *RabbitMQ) Address() string {
	if r.URL != "" {
		return r.URL
	}
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(r.User, r.Pass),
		Host:   net.JoinHostPort(r.Host, r.Port),
		Path:   "/",
	}
	if r.VHost != "" && r.VHost != "/" {
		u.Path = "/" + r.VHost
	}
	return u.String()
}

func (r *RabbitMQ) ConnectRetryDelay() time.Duration {
	return time.Duration(r.RetryDelay) * time.Second
}
