package monitor

import (
	"fmt"
	"strings"
	"time"

	"NotifyFlow/pkg/rabbitmq"
	"github.com/go-co-op/gocron/v2"
	"github.com/wb-go/wbf/zlog"
)

// QueueInspector выдает состояние очереди по имени.
type QueueInspector interface {
	Inspect(queue string) (rabbitmq.QueueInfo, error)
}

// QueueMonitor по расписанию проверяет глубину и число консьюмеров
// каждой настроенной очереди. Предупреждение при накоплении сообщений
// без активных консьюмеров, ошибка при непустой dead-letter очереди.
// Только наблюдение, никаких корректирующих действий.
type QueueMonitor struct {
	inspector QueueInspector
	queues    []string
	interval  time.Duration
	scheduler gocron.Scheduler
}

// NewQueueMonitor создает монитор для набора очередей.
func NewQueueMonitor(inspector QueueInspector, queues []string, interval time.Duration) (*QueueMonitor, error) {
	if interval <= 0 {
		interval = time.Minute
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &QueueMonitor{
		inspector: inspector,
		queues:    queues,
		interval:  interval,
		scheduler: scheduler,
	}, nil
}

// Start запускает периодическую проверку.
func (m *QueueMonitor) Start() error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(m.interval),
		gocron.NewTask(m.CheckAll),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule queue check: %w", err)
	}

	m.scheduler.Start()
	zlog.Logger.Info().
		Dur("interval", m.interval).
		Int("queues", len(m.queues)).
		Msg("queue monitor started")
	return nil
}

// Stop останавливает планировщик.
func (m *QueueMonitor) Stop() error {
	return m.scheduler.Shutdown()
}

// CheckAll проверяет все настроенные очереди.
func (m *QueueMonitor) CheckAll() {
	for _, queue := range m.queues {
		m.check(queue)
	}
}

func (m *QueueMonitor) check(queue string) {
	info, err := m.inspector.Inspect(queue)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("queue", queue).Msg("failed to inspect queue")
		return
	}

	if strings.HasSuffix(queue, rabbitmq.DLQSuffix) {
		if info.Messages > 0 {
			zlog.Logger.Error().
				Str("queue", queue).
				Int("messages", info.Messages).
				Msg("dead-letter queue is not empty")
		}
		return
	}

	if info.Messages > 0 && info.Consumers == 0 {
		zlog.Logger.Warn().
			Str("queue", queue).
			Int("messages", info.Messages).
			Msg("queue has backlog but no active consumers")
		return
	}

	zlog.Logger.Debug().
		Str("queue", queue).
		Int("messages", info.Messages).
		Int("consumers", info.Consumers).
		Msg("queue checked")
}
