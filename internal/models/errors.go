package laundry

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrForbidden           = errors.New("forbidden")
	ErrInsufficientPoints  = errors.New("insufficient points")
	ErrAlreadyReferred     = errors.New("user is already referred")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrValidation          = errors.New("validation error")
	// заказ доставлен, начисление не выполнено и будет повторено
	ErrRewardsPending      = errors.New("rewards pending")
	// журнал недоступен, outbox счета заполнен
	ErrJournalBacklog      = errors.New("journal backlog is full")

	// ошибки хранилища
	ErrAlreadyExists   = errors.New("already exists")
	ErrVersionConflict = errors.New("version conflict")
)
