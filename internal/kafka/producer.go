package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/simplim/backend-go/internal/logger"
	"go.uber.org/zap"
)

// Producer Kafka生产者
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// SimplificationEvent 简化审计事件
// 每次简化请求完成后异步发送，供下游统计和审计
type SimplificationEvent struct {
	RecordID        string    `json:"record_id"`
	UserID          uint      `json:"user_id"`
	ComplexityLevel int       `json:"complexity_level"`
	UsedFallback    bool      `json:"used_fallback"`
	OriginalChars   int       `json:"original_chars"`
	SimplifiedChars int       `json:"simplified_chars"`
	Source          string    `json:"source"`
	Timestamp       time.Time `json:"timestamp"`
}

var globalProducer *Producer

// InitProducer 初始化Kafka生产者
func InitProducer(brokers []string, topic string) error {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return fmt.Errorf("创建Kafka生产者失败: %w", err)
	}

	globalProducer = &Producer{
		producer: producer,
		topic:    topic,
	}

	logger.Info("Kafka生产者初始化成功", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return nil
}

// GetProducer 获取全局生产者实例
func GetProducer() *Producer {
	return globalProducer
}

// SendEvent 发送审计事件到Kafka
func (p *Producer) SendEvent(event *SimplificationEvent) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("Kafka生产者未初始化")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d", event.UserID)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("user_id"),
				Value: []byte(fmt.Sprintf("%d", event.UserID)),
			},
			{
				Key:   []byte("source"),
				Value: []byte(event.Source),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(kafkaMsg)
	if err != nil {
		logger.Error("发送Kafka消息失败", zap.Error(err))
		return fmt.Errorf("发送消息失败: %w", err)
	}

	logger.Debug("Kafka审计事件发送成功",
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("record_id", event.RecordID))

	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p != nil && p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// PublishSimplification 发送简化审计事件（便捷方法）
// Kafka未配置时静默跳过，不影响主流程
func PublishSimplification(recordID string, userID uint, complexityLevel int, usedFallback bool, originalText, simplifiedText, source string) error {
	producer := GetProducer()
	if producer == nil {
		return nil
	}

	event := &SimplificationEvent{
		RecordID:        recordID,
		UserID:          userID,
		ComplexityLevel: complexityLevel,
		UsedFallback:    usedFallback,
		OriginalChars:   len(originalText),
		SimplifiedChars: len(simplifiedText),
		Source:          source,
		Timestamp:       time.Now(),
	}

	return producer.SendEvent(event)
}
