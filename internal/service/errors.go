package service

import "errors"

var (
	// ErrNotFound - транзакция, tryout или подтверждение не найдены
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput - некорректные входные данные
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState - переход статуса из терминального состояния
	ErrInvalidState = errors.New("invalid state transition")
	// ErrUploadFailed - хранилище не приняло подтверждение
	ErrUploadFailed = errors.New("upload failed")
	// ErrUpstream - внешний сервис (DB service, хранилище) вернул ошибку
	ErrUpstream = errors.New("upstream error")
)
