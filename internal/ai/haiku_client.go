package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"go.uber.org/zap"
)

// HaikuClient отправляет изображение (и опционально текст пользователя) в
// Responses API с фиксированной персоной-инструкцией «куратора хайку».
type HaikuClient struct {
	client *openai.Client
	model  openai.ChatModel
	logger *zap.SugaredLogger

	haikuInstruction      string // персона для первого взгляда на экспонат
	reflectionInstruction string // персона для ответа на рефлексию
}

// NewHaikuClient создаёт клиента генерации хайку.
func NewHaikuClient(client *openai.Client, model string, haikuInstruction, reflectionInstruction string, logger *zap.SugaredLogger) *HaikuClient {
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}
	return &HaikuClient{
		client:                client,
		model:                 openai.ChatModel(model),
		logger:                logger,
		haikuInstruction:      haikuInstruction,
		reflectionInstruction: reflectionInstruction,
	}
}

// GenerateFromImage просит хайку по изображению экспоната.
func (c *HaikuClient) GenerateFromImage(ctx context.Context, imageDataURL string, mimeType string) (string, error) {
	return c.generate(ctx, c.haikuInstruction, imageDataURL, "")
}

// GenerateFromImageAndText просит хайку-отклик на рефлексию пользователя.
func (c *HaikuClient) GenerateFromImageAndText(ctx context.Context, imageDataURL string, mimeType string, userText string) (string, error) {
	return c.generate(ctx, c.reflectionInstruction, imageDataURL, userText)
}

func (c *HaikuClient) generate(ctx context.Context, instruction string, imageDataURL string, userText string) (string, error) {
	if c.client == nil {
		return "", &GenerationError{Err: errors.New("nil openai client")}
	}

	// Контент пользовательского сообщения: опциональный текст, затем изображение.
	content := make(responses.ResponseInputMessageContentListParam, 0, 2)
	if t := strings.TrimSpace(userText); t != "" {
		content = append(content, responses.ResponseInputContentParamOfInputText(t))
	}
	imageParam := responses.ResponseInputContentParamOfInputImage(responses.ResponseInputImageDetailAuto)
	imageParam.OfInputImage.ImageURL = openai.String(imageDataURL)
	content = append(content, imageParam)

	inputItems := responses.ResponseInputParam{
		responses.ResponseInputItemParamOfMessage(
			responses.ResponseInputMessageContentListParam{
				{OfInputText: &responses.ResponseInputTextParam{Text: instruction}},
			},
			responses.EasyInputMessageRoleSystem,
		),
		responses.ResponseInputItemParamOfMessage(content, responses.EasyInputMessageRoleUser),
	}

	start := time.Now()
	c.logger.Infow("Запрос генерации хайку...")
	resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: inputItems},
	})
	dur := time.Since(start)
	if err != nil {
		c.logger.Errorw("Ошибка генерации", "duration", dur.String(), "error", err)
		return "", &GenerationError{Err: err}
	}
	c.logger.Infow("Хайку получено", "duration", dur.String())

	out := strings.TrimSpace(resp.OutputText())
	if out == "" {
		return "", &GenerationError{Err: errors.New("empty model output")}
	}
	return out, nil
}
