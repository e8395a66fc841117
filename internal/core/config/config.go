package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host              string
	Port              int
	ReadTimeoutSec    int
	WriteTimeoutSec   int
	IdleTimeoutSec    int
	RequestTimeoutSec int
	MaxBodyBytes      int64
	RateLimitRPS      float64
	RateLimitBurst    int
	PerIPRPS          float64
	PerIPBurst        int
	MaxConcurrent     int64
}

type AdminHTTP struct {
	Host string
	Port int
	// 启动时确保存在的管理员账号（为空则跳过）
	BootstrapEmail    string
	BootstrapPassword string
	BootstrapPhone    string
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	NeedTTLSec int    `mapstructure:"needttlsec"`
}

type DB struct {
	Driver             string // postgres / mysql / sqlite / mongo
	DSN                string
	Database           string // mongo 数据库名
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type NATS struct {
	URL           string
	SubjectPrefix string
}

type SendGrid struct {
	APIKey    string
	FromEmail string
	FromName  string
}

type Market struct {
	UnitPrice        int64
	PaymentPrefixes  []string
	NeedTTLDays      int
	SweepIntervalMin int
}

type Sync struct {
	QueuePath        string
	APIBaseURL       string
	Token            string
	ProbeEverySec    int
	SubmitTimeoutSec int
}

type Config struct {
	App      App
	Log      Log
	JWT      JWT
	DB       DB
	Redis    Redis `mapstructure:"redis"`
	NATS     NATS
	SendGrid SendGrid
	Market   Market
	Sync     Sync
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "needboard")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.http.requesttimeoutsec", 10)
	v.SetDefault("app.http.maxbodybytes", 1<<20)
	v.SetDefault("app.http.ratelimitrps", 200)
	v.SetDefault("app.http.ratelimitburst", 400)
	v.SetDefault("app.http.periprps", 20)
	v.SetDefault("app.http.peripburst", 40)
	v.SetDefault("app.http.maxconcurrent", 300)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.maxsizemb", 100)
	v.SetDefault("log.file.maxbackups", 7)
	v.SetDefault("log.file.maxagedays", 30)

	v.SetDefault("jwt.issuer", "needboard")
	v.SetDefault("jwt.accesstokenttlmin", 60*24*7)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.database", "needboard")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 10)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("db.automigrate", true)
	v.SetDefault("db.loglevel", "warn")

	v.SetDefault("redis.needttlsec", 30)

	v.SetDefault("nats.subjectprefix", "needboard")

	v.SetDefault("sendgrid.fromname", "Needboard")

	v.SetDefault("market.unitprice", 100)
	v.SetDefault("market.paymentprefixes", []string{"MP"})
	v.SetDefault("market.needttldays", 30)
	v.SetDefault("market.sweepintervalmin", 10)

	v.SetDefault("sync.queuepath", "./needsync.db")
	v.SetDefault("sync.apibaseurl", "http://127.0.0.1:8080")
	v.SetDefault("sync.probeeverysec", 15)
	v.SetDefault("sync.submittimeoutsec", 10)
}

// Read 读取配置文件并叠加 APP_ 前缀环境变量
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return c
}

func (c *Config) validate() error {
	if c.Market.UnitPrice <= 0 {
		return fmt.Errorf("config: market.unitPrice must be > 0")
	}
	if c.Market.NeedTTLDays <= 0 {
		return fmt.Errorf("config: market.needTTLDays must be > 0")
	}
	return nil
}
