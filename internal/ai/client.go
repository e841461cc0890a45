package ai

import "context"

// Client интерфейс генератора подписей. Все реализации должны быть взаимозаменяемыми.
type Client interface {
	// GenerateFromImage просит хайку по изображению экспоната (data URL).
	GenerateFromImage(ctx context.Context, imageDataURL string, mimeType string) (string, error)

	// GenerateFromImageAndText просит продолжение диалога: хайку-отклик на
	// текстовую рефлексию пользователя к тому же изображению.
	GenerateFromImageAndText(ctx context.Context, imageDataURL string, mimeType string, userText string) (string, error)
}

// UnavailableMessage единое пользовательское сообщение для любых сбоев генерации.
const UnavailableMessage = "The AI guide is currently unavailable. Please try again later."

// GenerationError ошибка генерации, нормализованная до безопасного для
// пользователя текста. Исходная причина доступна через Unwrap.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return UnavailableMessage }

func (e *GenerationError) Unwrap() error { return e.Err }
