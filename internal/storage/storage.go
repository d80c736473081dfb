package storage

import "errors"

// Proof представляет изображение подтверждения оплаты
type Proof struct {
	Data        []byte
	ContentType string
}

// ErrNotFound возвращается, когда для транзакции нет загруженного подтверждения
var ErrNotFound = errors.New("proof not found")
