package summarization

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"text/template"

	"todo-agent-backend/config"
	"todo-agent-backend/dao"
	"todo-agent-backend/model"
	"todo-agent-backend/service/mq"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/tmc/langchaingo/llms"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 100

	// 触发生成对话摘要的最小消息长度（字节数）
	defaultMinLength = 2500

	defaultMaxSummary = 500
)

var (
	ErrQueueFull = errors.New("summary queue is full")
	ErrClosed    = errors.New("summarizer is closed")
)

//go:embed prompts/summarization.txt
var summaryPrompt string

var summaryTemplate = template.Must(template.New("summary").Parse(summaryPrompt))

type SummaryTask struct {
	MessageIDs []uint `json:"message_ids"`
}

// Publisher 将摘要任务投递到消息队列，由 *mq.Client 实现
type Publisher interface {
	SendMessage(ctx context.Context, message *mq.Message) error
}

// Summarizer 为过长的对话消息生成摘要，历史回放时用摘要代替原文
type Summarizer struct {
	llm        llms.Model
	publisher  Publisher
	taskChan   chan SummaryTask
	workers    int
	minLength  int
	maxSummary int

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

type Option func(*Summarizer)

// WithPublisher 任务优先经由消息队列分发，投递失败时回退到本地队列
func WithPublisher(p Publisher) Option {
	return func(s *Summarizer) {
		s.publisher = p
	}
}

func New(llm llms.Model, cfg config.SummarizerConfig, opts ...Option) *Summarizer {
	s := &Summarizer{
		llm:        llm,
		workers:    positiveOr(cfg.Workers, defaultWorkers),
		minLength:  positiveOr(cfg.MinLength, defaultMinLength),
		maxSummary: positiveOr(cfg.MaxSummary, defaultMaxSummary),
	}
	s.taskChan = make(chan SummaryTask, positiveOr(cfg.QueueSize, defaultQueueSize))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// Run 启动摘要 worker，ctx 取消或 Close 后 worker 退出
func (s *Summarizer) Run(ctx context.Context) {
	for i := 1; i <= s.workers; i++ {
		s.wg.Add(1)
		go s.executeSummarization(ctx, i)
	}
}

// Close 停止接收任务并等待已入队的任务处理完毕
func (s *Summarizer) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.taskChan)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// RegisterSummaryTask 非阻塞入队，队列已满或已关闭时丢弃任务
func (s *Summarizer) RegisterSummaryTask(task SummaryTask) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	select {
	case s.taskChan <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// TurnCompleted 在一轮对话保存后登记摘要任务
func (s *Summarizer) TurnCompleted(ctx context.Context, userMessageID, assistantMessageID uint) {
	task := SummaryTask{}
	for _, id := range []uint{userMessageID, assistantMessageID} {
		if id != 0 {
			task.MessageIDs = append(task.MessageIDs, id)
		}
	}
	if len(task.MessageIDs) == 0 {
		return
	}

	if s.publisher != nil {
		err := s.publisher.SendMessage(ctx, &mq.Message{
			Topic:   mq.TopicChat,
			Tag:     mq.TagSummary,
			Payload: task,
		})
		if err == nil {
			return
		}
		slog.Warn("Failed to publish summary task, falling back to local queue", "err", err)
	}

	if err := s.RegisterSummaryTask(task); err != nil {
		slog.Warn("Dropping summary task", "message_ids", task.MessageIDs, "err", err)
	}
}

// HandleSummaryMessage 消费消息队列中的摘要任务
func (s *Summarizer) HandleSummaryMessage(ctx context.Context, msg *primitive.MessageExt) error {
	var task SummaryTask
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		// 格式错误的消息重试也不会成功
		slog.Error("Failed to unmarshal summary task", "msg_id", msg.MsgId, "err", err)
		return nil
	}
	return s.Process(ctx, task)
}

func (s *Summarizer) executeSummarization(ctx context.Context, id int) {
	defer s.wg.Done()
	slog.Debug("Starting summary worker", "worker_id", id)
	defer slog.Debug("Summary worker exit", "worker_id", id)

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-s.taskChan:
			if !ok {
				return
			}
			if err := s.Process(ctx, task); err != nil {
				slog.Error("Failed to process summary task",
					"worker_id", id,
					"message_ids", task.MessageIDs,
					"err", err,
				)
			}
		}
	}
}

// Process 为任务中尚无摘要且足够长的消息生成摘要，并批量写回数据库
func (s *Summarizer) Process(ctx context.Context, task SummaryTask) error {
	updates := make([]*model.ChatMessage, 0, len(task.MessageIDs))
	for _, msgID := range task.MessageIDs {
		msg, err := dao.GetMessageByID(ctx, msgID)
		if err != nil {
			slog.Error("Failed to get message",
				"msg_id", msgID,
				"err", err,
			)
			continue
		}

		if len(msg.Content) < s.minLength || msg.Summary != "" {
			continue
		}

		summary, err := s.summarizeMessage(ctx, msg.Sender, msg.Content)
		if err != nil {
			slog.Error("Failed to summarize message",
				"msg_id", msgID,
				"err", err,
			)
			continue
		}
		if summary == "" {
			continue
		}

		msg.Summary = summary
		updates = append(updates, msg)
	}

	if len(updates) == 0 {
		return nil
	}
	if err := dao.UpdateMessageSummaries(ctx, updates); err != nil {
		return fmt.Errorf("failed to update message summaries: %v", err)
	}
	return nil
}

func (s *Summarizer) summarizeMessage(ctx context.Context, sender model.Sender, content string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Sender    model.Sender
		Content   string
		MaxLength int
	}{
		Sender:    sender,
		Content:   content,
		MaxLength: s.maxSummary,
	}
	if err := summaryTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %v", err)
	}

	resp, err := llms.GenerateFromSinglePrompt(ctx, s.llm, buf.String())
	if err != nil {
		return "", fmt.Errorf("llm call error: %w", err)
	}
	return truncate(strings.TrimSpace(resp), s.maxSummary), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
