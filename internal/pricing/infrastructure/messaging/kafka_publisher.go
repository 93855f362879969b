// Package messaging 定价领域事件的 Kafka 发布
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/optionsrisk/internal/pricing/domain"
	"github.com/wyfcoding/optionsrisk/pkg/mq"
	"github.com/wyfcoding/optionsrisk/pkg/utils"
)

// Producer 消息生产者
type Producer interface {
	SendMessage(ctx context.Context, key string, value any, headers ...mq.Header) error
}

// EventTypeHeader 消息头中的事件类型
const EventTypeHeader = "event_type"

// KafkaEventPublisher 以事件类型为消息头、以标的或事件 ID 为分区键发布事件
type KafkaEventPublisher struct {
	producer   Producer
	source     string
	retries    int
	retryDelay time.Duration
}

// NewKafkaEventPublisher 创建发布者
func NewKafkaEventPublisher(producer Producer, source string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		producer:   producer,
		source:     source,
		retries:    3,
		retryDelay: 50 * time.Millisecond,
	}
}

var _ domain.EventPublisher = (*KafkaEventPublisher)(nil)

func (p *KafkaEventPublisher) publish(ctx context.Context, eventType, key string, event any) error {
	headers := []mq.Header{{Key: EventTypeHeader, Value: eventType}, {Key: "source", Value: p.source}}
	err := utils.RetryWithBackoff(ctx, p.retries, p.retryDelay, 10*p.retryDelay, func() error {
		return p.producer.SendMessage(ctx, key, event, headers...)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func partitionKey(underlying, eventID string) string {
	if underlying != "" {
		return underlying
	}
	return eventID
}

// PublishOptionPriced 发布期权定价完成事件
func (p *KafkaEventPublisher) PublishOptionPriced(ctx context.Context, e domain.OptionPricedEvent) error {
	return p.publish(ctx, domain.OptionPricedEventType, partitionKey(e.Underlying, e.EventID), e)
}

// PublishGreeksCalculated 发布希腊字母计算完成事件
func (p *KafkaEventPublisher) PublishGreeksCalculated(ctx context.Context, e domain.GreeksCalculatedEvent) error {
	return p.publish(ctx, domain.GreeksCalculatedEventType, partitionKey(e.Contract.Underlying, e.EventID), e)
}

// PublishStrategyAnalyzed 发布策略分析完成事件
func (p *KafkaEventPublisher) PublishStrategyAnalyzed(ctx context.Context, e domain.StrategyAnalyzedEvent) error {
	return p.publish(ctx, domain.StrategyAnalyzedEventType, e.EventID, e)
}

// PublishPricingError 发布定价错误事件
func (p *KafkaEventPublisher) PublishPricingError(ctx context.Context, e domain.PricingErrorEvent) error {
	return p.publish(ctx, domain.PricingErrorEventType, e.EventID, e)
}

// PublishBatchPricingCompleted 发布批量定价完成事件
func (p *KafkaEventPublisher) PublishBatchPricingCompleted(ctx context.Context, e domain.BatchPricingCompletedEvent) error {
	return p.publish(ctx, domain.BatchPricingCompletedEventType, e.EventID, e)
}
