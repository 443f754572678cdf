package service

import (
	"fmt"

	"NotifyFlow/pkg/rabbitmq"
	"github.com/wb-go/wbf/zlog"
)

// QueueAdminService административные операции над очередями брокера.
// Алиасы отвязывают операторский интерфейс от физических имен очередей.
type QueueAdminService struct {
	client  *rabbitmq.RabbitClient
	aliases map[string]string
}

// NewQueueAdminService создает сервис с картой алиас -> имя очереди.
func NewQueueAdminService(client *rabbitmq.RabbitClient, aliases map[string]string) *QueueAdminService {
	return &QueueAdminService{
		client:  client,
		aliases: aliases,
	}
}

// PurgeQueue очищает очередь по алиасу и возвращает число удаленных сообщений.
func (s *QueueAdminService) PurgeQueue(alias string) (int, error) {
	queue, ok := s.aliases[alias]
	if !ok {
		return 0, fmt.Errorf("unknown queue alias %q", alias)
	}

	n, err := s.client.Purge(queue)
	if err != nil {
		return 0, err
	}

	zlog.Logger.Info().Str("queue", queue).Int("purged", n).Msg("queue purged")
	return n, nil
}

// PurgeAll очищает все известные очереди и возвращает счетчики по алиасам.
func (s *QueueAdminService) PurgeAll() (map[string]int, error) {
	result := make(map[string]int, len(s.aliases))
	for alias := range s.aliases {
		n, err := s.PurgeQueue(alias)
		if err != nil {
			return result, err
		}
		result[alias] = n
	}
	return result, nil
}
