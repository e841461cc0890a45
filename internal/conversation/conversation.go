package conversation

import (
	"strings"

	"github.com/google/uuid"
)

// Author автор сообщения.
type Author string

const (
	AuthorUser Author = "user"
	AuthorAI   Author = "ai"
)

// Kind семантический вид сообщения. Хранимая запись одна (Message),
// вид восстанавливается по заполненным полям.
type Kind string

const (
	KindArtworkShare Kind = "artwork_share" // пользователь «делится» найденным экспонатом
	KindUserText     Kind = "user_text"     // текстовая рефлексия пользователя
	KindAIText       Kind = "ai_text"       // хайку/ответ ИИ
)

// DefaultTitle заголовок нового диалога до первого обмена.
const DefaultTitle = "New Conversation"

// ArtworkDetails метаданные экспоната из музейного API. Все поля всегда заполнены:
// отсутствующие значения заменяются на сентинелы ещё на стороне клиента музея.
type ArtworkDetails struct {
	Artist       string `json:"artist"`
	Date         string `json:"date"`
	Place        string `json:"place"`
	ObjectType   string `json:"objectType"`
	SystemNumber string `json:"systemNumber"`
}

// Message одно сообщение диалога. Image хранится как data URL.
type Message struct {
	ID             string          `json:"id"`
	Author         Author          `json:"author"`
	Image          string          `json:"image,omitempty"`
	Text           string          `json:"text,omitempty"`
	ArtworkDetails *ArtworkDetails `json:"artworkDetails,omitempty"`
}

// Kind определяет вид сообщения по автору и заполненным полям.
func (m *Message) Kind() Kind {
	if m.Author == AuthorAI {
		return KindAIText
	}
	if m.Image != "" {
		return KindArtworkShare
	}
	return KindUserText
}

// NewArtworkMessage создаёт сообщение пользователя с найденным экспонатом.
func NewArtworkMessage(image string, title string, details ArtworkDetails) Message {
	return Message{
		ID:             uuid.NewString(),
		Author:         AuthorUser,
		Image:          image,
		Text:           title,
		ArtworkDetails: &details,
	}
}

// NewUserText создаёт текстовое сообщение пользователя (рефлексия).
func NewUserText(text string) Message {
	return Message{ID: uuid.NewString(), Author: AuthorUser, Text: text}
}

// NewAIText создаёт сообщение ИИ.
func NewAIText(text string) Message {
	return Message{ID: uuid.NewString(), Author: AuthorAI, Text: text}
}

// ArtworkRef изображение текущего экспоната диалога, контекст для рефлексии.
type ArtworkRef struct {
	ImageData string `json:"imageData"`
	MimeType  string `json:"mimeType"`
}

// Conversation один диалог. Messages не бывает пустым: при создании
// диалог получает приветственное сообщение ИИ.
type Conversation struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Messages       []Message   `json:"messages"`
	CurrentArtwork *ArtworkRef `json:"currentArtwork,omitempty"`
}

// New создаёт диалог с приветственным сообщением ИИ и без текущего экспоната.
func New(welcomeText string) *Conversation {
	return &Conversation{
		ID:       uuid.NewString(),
		Title:    DefaultTitle,
		Messages: []Message{NewAIText(welcomeText)},
	}
}

// Append добавляет сообщения в конец диалога одним вызовом.
func (c *Conversation) Append(msgs ...Message) {
	c.Messages = append(c.Messages, msgs...)
}

// LastMessage возвращает последнее сообщение диалога.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// SetArtwork запоминает изображение текущего экспоната.
func (c *Conversation) SetArtwork(imageData, mimeType string) {
	c.CurrentArtwork = &ArtworkRef{ImageData: imageData, MimeType: mimeType}
}

// TitleFromHaiku выводит заголовок диалога из текста хайку:
// последняя непустая строка, иначе "Untitled Haiku".
func TitleFromHaiku(haiku string) string {
	lines := strings.Split(haiku, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "Untitled Haiku"
}
