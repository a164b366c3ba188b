// 文件: pkg/kafka/producer.go
// Kafka 生产者 (异步)
//
// 资金流水等事件通过这里发往 Kafka。
// 发送失败由后台协程记录日志并计数，调用方不感知。

package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

var ErrProducerClosed = errors.New("kafka producer is closed")

// Message 可发送的消息
type Message interface {
	Topic() string          // 目标 topic
	Key() string            // 分区 key (同一用户的流水落在同一分区，保证顺序)
	Value() ([]byte, error) // 序列化后的消息体
}

// Sender 生产者的最小接口，业务层依赖它而不是 *Producer
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// =============================================================================
// 配置
// =============================================================================

type Config struct {
	Brokers        []string      `yaml:"brokers"`
	RequiredAcks   int           `yaml:"required_acks"` // 0 / 1 / -1
	Compression    string        `yaml:"compression"`   // none gzip snappy lz4 zstd
	FlushFrequency time.Duration `yaml:"flush_frequency"`
	FlushMessages  int           `yaml:"flush_messages"`
	MaxRetries     int           `yaml:"max_retries"`

	// 消费端
	GroupID string `yaml:"group_id"`
	Oldest  bool   `yaml:"oldest"` // 新消费组从最早的 offset 开始
}

// DefaultConfig 默认配置
func DefaultConfig(brokers []string) Config {
	return Config{
		Brokers:        brokers,
		RequiredAcks:   1,
		Compression:    "snappy",
		FlushFrequency: 100 * time.Millisecond,
		FlushMessages:  100,
		MaxRetries:     3,
	}
}

func (c Config) saramaProducer() *sarama.Config {
	sc := sarama.NewConfig()

	switch c.RequiredAcks {
	case 0:
		sc.Producer.RequiredAcks = sarama.NoResponse
	case -1:
		sc.Producer.RequiredAcks = sarama.WaitForAll
	default:
		sc.Producer.RequiredAcks = sarama.WaitForLocal
	}

	switch c.Compression {
	case "gzip":
		sc.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		sc.Producer.Compression = sarama.CompressionZSTD
	default:
		sc.Producer.Compression = sarama.CompressionNone
	}

	sc.Producer.Flush.Frequency = c.FlushFrequency
	sc.Producer.Flush.Messages = c.FlushMessages
	sc.Producer.Retry.Max = c.MaxRetries
	sc.Producer.Return.Successes = false
	sc.Producer.Return.Errors = true
	return sc
}

// =============================================================================
// Producer
// =============================================================================

var _ Sender = (*Producer)(nil)

type Producer struct {
	producer sarama.AsyncProducer
	logger   *zap.Logger

	sent   atomic.Int64
	failed atomic.Int64

	closed atomic.Bool
	wg     sync.WaitGroup
}

func NewProducer(cfg Config, logger *zap.Logger) (*Producer, error) {
	ap, err := sarama.NewAsyncProducer(cfg.Brokers, cfg.saramaProducer())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newProducer(ap, logger), nil
}

// newProducer 测试时注入 mocks.AsyncProducer
func newProducer(ap sarama.AsyncProducer, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Producer{producer: ap, logger: logger.Named("kafka")}
	p.wg.Add(1)
	go p.drainErrors()
	return p
}

// Send 异步投递，ctx 取消时放弃排队
func (p *Producer) Send(ctx context.Context, msg Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	data, err := msg.Value()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}

	m := &sarama.ProducerMessage{
		Topic: msg.Topic(),
		Key:   sarama.StringEncoder(msg.Key()),
		Value: sarama.ByteEncoder(data),
	}
	select {
	case p.producer.Input() <- m:
		p.sent.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Producer) drainErrors() {
	defer p.wg.Done()
	for err := range p.producer.Errors() {
		p.failed.Add(1)
		p.logger.Error("send failed",
			zap.String("topic", err.Msg.Topic),
			zap.Error(err.Err))
	}
}

type ProducerStats struct {
	Sent   int64
	Failed int64
}

func (p *Producer) Stats() ProducerStats {
	return ProducerStats{Sent: p.sent.Load(), Failed: p.failed.Load()}
}

// Close 刷出缓冲区后关闭
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	err := p.producer.Close()
	p.wg.Wait()
	return err
}
