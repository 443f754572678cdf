package retry

import "time"

// Strategy описывает стратегию повторных попыток с экспоненциальной задержкой.
type Strategy struct {
	Attempts int
	Delay    time.Duration
	Backoff  float64
}

// Do выполняет fn до первого успеха или до исчерпания попыток.
// Возвращает последнюю ошибку, если все попытки неуспешны.
func Do(fn func() error, s Strategy) error {
	if s.Attempts <= 0 {
		s.Attempts = 1
	}

	delay := s.Delay
	var err error

	for attempt := 0; attempt < s.Attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			if s.Backoff > 1 {
				delay = time.Duration(float64(delay) * s.Backoff)
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}

	return err
}
