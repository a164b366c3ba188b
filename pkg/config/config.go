// 文件: pkg/config/config.go
// 配置加载
//
// conf/<env>/conf.yaml，env 取自 GO_ENV (默认 dev)。
// 先加载 .env，再用 SIM_* 环境变量覆盖连接串等敏感项，最后做结构体校验。

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kr/pretty"
	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"

	"sim.com/pkg/kafka"
	"sim.com/pkg/logx"
	"sim.com/pkg/nats"
	"sim.com/pkg/store"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env       string       `yaml:"-"`
	NodeID    int64        `yaml:"node_id" validate:"min=0,max=1023"` // 雪花节点
	Log       logx.Config  `yaml:"log"`
	Database  store.Config `yaml:"database"`
	Redis     Redis        `yaml:"redis"`
	NATS      nats.Config  `yaml:"nats"`
	Kafka     kafka.Config `yaml:"kafka"`
	Generator Generator    `yaml:"generator"`
	HTTP      HTTP         `yaml:"http"`
	Broker    Broker       `yaml:"broker"`
}

// Redis Addr 为空表示不启用 (目录直连数据库，订单号不做跨运行查重)
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type HTTP struct {
	Addr            string        `yaml:"addr" validate:"nonzero"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Broker SettleInterval 为 0 时不跑到期结算，只能通过接口逐笔结算
type Broker struct {
	SettleInterval time.Duration `yaml:"settle_interval" validate:"min=0"`
}

// Env GO_ENV，默认 dev
func Env() string {
	if e := os.Getenv("GO_ENV"); e != "" {
		return e
	}
	return "dev"
}

// Load 从 root 目录读取配置
func Load(root string) (*Config, error) {
	// .env 可选
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := Env()
	path := filepath.Join(root, "conf", env, "conf.yaml")
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(env, content)
}

// Parse 解析 YAML 内容并应用环境变量覆盖
func Parse(env string, content []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(content, c); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %w", ErrInvalidConfig, err)
	}
	c.Env = env
	c.applyEnv()

	if err := validator.Validate(c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Generator.Ledger(); err != nil {
		return nil, fmt.Errorf("%w: generator: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Generator.Start(); err != nil {
		return nil, fmt.Errorf("%w: generator: %w", ErrInvalidConfig, err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SIM_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("SIM_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("SIM_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("SIM_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("SIM_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("SIM_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("SIM_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Dump 启动时打印用，口令类字段打码
func (c *Config) Dump() string {
	cp := *c
	cp.Database.DSN = mask(cp.Database.DSN)
	cp.Redis.Password = mask(cp.Redis.Password)
	return pretty.Sprintf("%# v", cp)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "******"
}
