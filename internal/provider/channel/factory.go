package channel

import (
	"fmt"

	"NotifyFlow/internal/contract"
	"NotifyFlow/internal/domain"
)

// Factory карта канал -> провайдер, построенная один раз при старте
// из явно зарегистрированных провайдеров. Поиск за O(1).
type Factory struct {
	providers map[contract.Channel]domain.ChannelProvider
}

// NewFactory создает фабрику из набора провайдеров.
func NewFactory(providers ...domain.ChannelProvider) *Factory {
	m := make(map[contract.Channel]domain.ChannelProvider, len(providers))
	for _, p := range providers {
		m[p.Channel()] = p
	}
	return &Factory{providers: m}
}

// Get возвращает провайдера для канала. Отсутствие провайдера это
// ошибка конфигурации, а не временный сбой.
func (f *Factory) Get(ch contract.Channel) (domain.ChannelProvider, error) {
	p, ok := f.providers[ch]
	if !ok {
		return nil, domain.Permanent(
			fmt.Errorf("%w: %s", domain.ErrUnsupportedChannel, ch))
	}
	return p, nil
}
