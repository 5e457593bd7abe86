package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"todo-agent-backend/config"

	"github.com/apache/rocketmq-client-go/v2"
	c "github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/apache/rocketmq-client-go/v2/rlog"
	"github.com/avast/retry-go/v4"
)

const (
	TopicChat  = "topic_chat"
	TagSummary = "tag_summary"

	consumeGroupChat = "cg_chat"

	sendMessageAttempts  = 3
	maxReconsumeTimes    = 5
	consumeGoroutineNums = 4
)

type MessageHandler func(context.Context, *primitive.MessageExt) error

type Message struct {
	Topic   string
	Tag     string
	Payload any
}

// Client 持有生产者、消费者以及按 topic 注册的消息处理器
type Client struct {
	producer rocketmq.Producer
	consumer rocketmq.PushConsumer

	mu       sync.RWMutex
	handlers map[string]MessageHandler
}

func New(cfg config.MQConfig) (*Client, error) {
	// 设置RocketMQ客户端（使用rlog）的日志级别
	rlog.SetLogLevel("warn")

	consumer, err := rocketmq.NewPushConsumer(
		c.WithNameServer(cfg.NameServer),
		c.WithGroupName(consumeGroupChat),
		c.WithConsumerModel(c.Clustering),
		c.WithConsumeFromWhere(c.ConsumeFromLastOffset),
		c.WithMaxReconsumeTimes(maxReconsumeTimes),
		c.WithConsumeGoroutineNums(consumeGoroutineNums),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %v", err)
	}

	p, err := rocketmq.NewProducer(
		producer.WithNameServer(cfg.NameServer),
		producer.WithRetry(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %v", err)
	}

	return &Client{
		producer: p,
		consumer: consumer,
		handlers: make(map[string]MessageHandler),
	}, nil
}

// RegisterHandler 订阅 topic，需在 Start 之前调用
func (cl *Client) RegisterHandler(topic, tag string, handler MessageHandler) error {
	cl.mu.Lock()
	cl.handlers[topic] = handler
	cl.mu.Unlock()

	selector := c.MessageSelector{}
	if tag != "" {
		selector = c.MessageSelector{
			Type:       c.TAG,
			Expression: tag,
		}
	}

	err := cl.consumer.Subscribe(topic, selector, func(ctx context.Context, messages ...*primitive.MessageExt) (c.ConsumeResult, error) {
		return cl.dispatch(ctx, messages...)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %v", topic, err)
	}
	return nil
}

func (cl *Client) dispatch(ctx context.Context, messages ...*primitive.MessageExt) (c.ConsumeResult, error) {
	for _, msg := range messages {
		cl.mu.RLock()
		h := cl.handlers[msg.Topic]
		cl.mu.RUnlock()

		if h == nil {
			slog.Warn("No message handler found for topic", "topic", msg.Topic)
			continue
		}

		if err := h(ctx, msg); err != nil {
			slog.Error("Failed to process message",
				"topic", msg.Topic,
				"msg_id", msg.MsgId,
				"err", err)
			return c.ConsumeRetryLater, err
		}
	}
	return c.ConsumeSuccess, nil
}

func (cl *Client) Start() error {
	if err := cl.producer.Start(); err != nil {
		return fmt.Errorf("failed to start producer: %v", err)
	}
	if err := cl.consumer.Start(); err != nil {
		return fmt.Errorf("failed to start consumer: %v", err)
	}
	return nil
}

// SendMessage 向MQ发送消息，失败时按退避策略重试
func (cl *Client) SendMessage(ctx context.Context, message *Message) error {
	payloadJSON, err := json.Marshal(message.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %v", err)
	}

	msg := primitive.NewMessage(message.Topic, payloadJSON)
	if message.Tag != "" {
		msg = msg.WithTag(message.Tag)
	}

	err = retry.Do(
		func() error {
			_, err := cl.producer.SendSync(ctx, msg)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(sendMessageAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying to send message",
				"attempt", n+1,
				"topic", msg.Topic,
				"err", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s after retries: %v", msg.Topic, err)
	}
	return nil
}

func (cl *Client) Shutdown() {
	if cl.producer != nil {
		if err := cl.producer.Shutdown(); err != nil {
			slog.Warn("Failed to shut down producer", "err", err)
		}
	}
	if cl.consumer != nil {
		if err := cl.consumer.Shutdown(); err != nil {
			slog.Warn("Failed to shut down consumer", "err", err)
		}
	}
}
