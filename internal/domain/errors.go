package domain

import "errors"

var (
	// ErrNotFound ошибка, когда уведомление не найдено.
	ErrNotFound = errors.New("notification not found")
	// ErrNoRowAffected ошибка, когда ни одна строка не была изменена.
	ErrNoRowAffected = errors.New("no row affected")
	// ErrUnsupportedChannel для запрошенного канала не зарегистрирован провайдер.
	ErrUnsupportedChannel = errors.New("unsupported channel")
	// ErrVendorNotConfigured для канала не настроен активный вендор.
	ErrVendorNotConfigured = errors.New("active vendor is not configured")
	// ErrUnknownVendor настроенный активный вендор не зарегистрирован.
	ErrUnknownVendor = errors.New("unknown vendor")
	// ErrMissingSender для канала не настроен отправитель по умолчанию.
	ErrMissingSender = errors.New("default sender identity is not configured")
)

// PermanentError ошибка, которая не исчезнет при повторной доставке:
// отсутствующая конфигурация, неизвестный шаблон, некорректная нагрузка.
// Такие сообщения отклоняются без возврата в очередь.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent оборачивает ошибку как неустранимую.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent сообщает, является ли ошибка неустранимой.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
