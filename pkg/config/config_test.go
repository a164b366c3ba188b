package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sim.com/pkg/ledger"
)

func TestLoad_DevConfig(t *testing.T) {
	t.Setenv("GO_ENV", "dev")
	t.Setenv("SIM_DB_DSN", "")
	c, err := Load(filepath.Join("..", ".."))
	require.NoError(t, err)

	assert.Equal(t, "dev", c.Env)
	assert.Equal(t, "mysql", c.Database.Driver)
	assert.Equal(t, time.Hour, c.Database.ConnMaxLife)
	assert.Equal(t, []string{"127.0.0.1:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 2*time.Second, c.NATS.ReconnectWait)

	lc, err := c.Generator.Ledger()
	require.NoError(t, err)
	assert.Equal(t, 16, lc.Workers)
	assert.InDelta(t, 0.55, lc.OptionWinProbability, 1e-9)
	assert.True(t, lc.ContractLoss.Max.Equal(decimal.NewFromInt(1000)))

	start, err := c.Generator.Start()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", start.Location().String())
	assert.Equal(t, 1, start.Day())
}

func TestLoad_MissingEnv(t *testing.T) {
	t.Setenv("GO_ENV", "nowhere")
	_, err := Load(filepath.Join("..", ".."))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

const minimal = `
database:
  driver: postgres
  dsn: "host=localhost"
generator:
  start_date: "2025-01-01"
http:
  addr: ":9000"
`

func TestParse_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("SIM_DB_DSN", "host=db.internal")
	t.Setenv("SIM_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SIM_HTTP_ADDR", ":7000")

	c, err := Parse("test", []byte(minimal))
	require.NoError(t, err)
	assert.Equal(t, "host=db.internal", c.Database.DSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, ":7000", c.HTTP.Addr)

	// 没写的生成器参数取默认
	lc, err := c.Generator.Ledger()
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultConfig(), lc)

	assert.Zero(t, c.Broker.SettleInterval, "settle loop off unless configured")

	assert.NotContains(t, c.Dump(), "db.internal")
	assert.Equal(t, int64(99), c.Generator.SeedOr(99))
}

func TestParse_SettleInterval(t *testing.T) {
	c, err := Parse("test", []byte(minimal+"broker: {settle_interval: 30s}\n"))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, c.Broker.SettleInterval)
}

func TestParse_ZeroProbabilityIsKept(t *testing.T) {
	c, err := Parse("test", []byte(`
database: {driver: postgres, dsn: x}
http: {addr: ":9000"}
generator:
  start_date: "2025-01-01"
  probabilities: {fund: 0, balance: 1}
`))
	require.NoError(t, err)
	lc, err := c.Generator.Ledger()
	require.NoError(t, err)
	assert.Zero(t, lc.FundProbability)
	assert.Equal(t, 1.0, lc.BalanceProbability)
	assert.Equal(t, ledger.DefaultConfig().OptionProbability, lc.OptionProbability)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing dsn":       "database: {driver: mysql}\ngenerator: {start_date: \"2025-01-01\"}\nhttp: {addr: \":1\"}",
		"missing http addr": "database: {driver: mysql, dsn: x}\ngenerator: {start_date: \"2025-01-01\"}",
		"bad start date":    "database: {driver: mysql, dsn: x}\ngenerator: {start_date: \"01/01/2025\"}\nhttp: {addr: \":1\"}",
		"bad probability":   "database: {driver: mysql, dsn: x}\ngenerator: {start_date: \"2025-01-01\", probabilities: {fund: 1.5}}\nhttp: {addr: \":1\"}",
		"inverted range":    "database: {driver: mysql, dsn: x}\ngenerator: {start_date: \"2025-01-01\", balance: {min: 10, max: 1}}\nhttp: {addr: \":1\"}",
		"node id":           "node_id: 5000\ndatabase: {driver: mysql, dsn: x}\ngenerator: {start_date: \"2025-01-01\"}\nhttp: {addr: \":1\"}",
		"not yaml":          "database: [",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("test", []byte(content))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestGenerator_HistoryRange(t *testing.T) {
	g := Generator{StartDate: "2025-01-01", Location: "UTC"}
	dr, err := g.HistoryRange(time.Date(2025, 1, 4, 1, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	days, err := dr.Days()
	require.NoError(t, err)
	assert.Len(t, days, 3)
}
