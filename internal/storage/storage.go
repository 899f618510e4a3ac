package storage

import "errors"

const (
	UniqueViolation = "23505"
)

// Ключ настройки интервала проверки в таблице settings.
const CheckIntervalKey = "check_interval"

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrProductAlreadyTracked = errors.New("this product is already tracked")
)
