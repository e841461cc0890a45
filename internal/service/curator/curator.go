package curator

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"HaikuCurator/internal/ai"
	"HaikuCurator/internal/config"
	"HaikuCurator/internal/conversation"
	"HaikuCurator/internal/museum"
)

// State состояние диалога с точки зрения контроллера.
type State string

const (
	StateIdle             State = "idle"              // готов искать новый экспонат
	StateAwaitingResponse State = "awaiting_response" // показано хайку, ждём реакции пользователя
	StateShowingInput     State = "showing_input"     // пользователь пишет рефлексию
)

// Пользовательские сообщения для баннера ошибок.
const (
	artworkErrorMessage = "Could not retrieve new artwork. Please try again."
	unknownErrorMessage = "An unknown error occurred."
)

var (
	// ErrBusy запрос уже выполняется; одновременно допустим только один.
	ErrBusy = errors.New("another request is in flight")
	// ErrEmptyReflection пустой текст рефлексии.
	ErrEmptyReflection = errors.New("reflection text is empty")
	// ErrNoArtwork в текущем диалоге ещё не было найдено экспоната.
	ErrNoArtwork = errors.New("no artwork discovered in this conversation")
	// ErrUnknownConversation диалог с таким id не найден.
	ErrUnknownConversation = errors.New("unknown conversation")
	// ErrConversationState операция недопустима в текущем состоянии.
	ErrConversationState = errors.New("operation not allowed in current state")
)

// ArtworkProvider источник случайных экспонатов.
type ArtworkProvider interface {
	FetchRandomArtwork(ctx context.Context) (museum.Artwork, error)
}

// Storage долговременное хранилище истории и настроек. Ошибки сохранения
// не фатальны: они логируются и не откатывают состояние в памяти.
type Storage interface {
	SaveHistory(conversations []*conversation.Conversation, currentID string) error
	LoadHistory() ([]*conversation.Conversation, string, error)
	SaveTheme(theme string) error
	LoadTheme() (string, error)
}

// Curator контроллер диалога: превращает команды пользователя в переходы
// состояний, дёргает музейный клиент и генератор хайку, обновляет историю.
// История мутируется только отсюда, под одним мьютексом.
type Curator struct {
	cfg      *config.Config
	provider ArtworkProvider
	captions ai.Client
	store    Storage
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	history *conversation.History
	state   State
	theme   string
	errText string
	loading bool

	notify chan struct{}
}

// New создаёт контроллер и восстанавливает историю из хранилища.
// Отсутствующая или повреждённая история заменяется свежим диалогом.
func New(cfg *config.Config, provider ArtworkProvider, captions ai.Client, store Storage, logger *zap.SugaredLogger) *Curator {
	cu := &Curator{
		cfg:      cfg,
		provider: provider,
		captions: captions,
		store:    store,
		logger:   logger,
		state:    StateIdle,
		theme:    cfg.DefaultTheme,
		notify:   make(chan struct{}, 1),
	}

	convs, currentID, err := store.LoadHistory()
	if err != nil {
		logger.Warnw("Не удалось загрузить историю, начинаем заново", "error", err)
	}
	cu.history = conversation.Restore(cfg.HistoryCapacity, convs, currentID)
	if cu.history.Len() == 0 {
		cu.mu.Lock()
		cu.history.StartNew(cfg.WelcomeHaiku, true)
		cu.persistLocked()
		cu.mu.Unlock()
	}

	if theme, err := store.LoadTheme(); err != nil {
		logger.Warnw("Не удалось загрузить тему", "error", err)
	} else if theme == "light" || theme == "dark" {
		cu.theme = theme
	}

	return cu
}

// NotifyCh сигнализирует об изменении состояния; презентационный слой
// забирает свежий Snapshot по каждому сигналу.
func (cu *Curator) NotifyCh() <-chan struct{} { return cu.notify }

// DiscoverArtwork выполняет сценарий «найти экспонат»: листинг → изображение →
// хайку. Сообщение пользователя и ответ ИИ добавляются одним обновлением;
// при любом сбое в диалог попадает только одно хайку-заглушка.
func (cu *Curator) DiscoverArtwork(ctx context.Context) error {
	if err := cu.beginOp(); err != nil {
		return err
	}
	defer cu.endOp()

	art, err := cu.provider.FetchRandomArtwork(ctx)
	if err != nil {
		cu.failOp(err, cu.cfg.DiscoveryErrorHaiku, StateIdle)
		return err
	}

	haiku, err := cu.captions.GenerateFromImage(ctx, art.Image, art.MimeType)
	if err != nil {
		cu.failOp(err, cu.cfg.DiscoveryErrorHaiku, StateIdle)
		return err
	}

	cu.mu.Lock()
	conv := cu.history.Current()
	// Заголовок выводится из хайку только при первом обмене и только если
	// пользователь его ещё не «заработал».
	if len(conv.Messages) == 1 && conv.Title == conversation.DefaultTitle {
		conv.Title = conversation.TitleFromHaiku(haiku)
	}
	conv.Append(
		conversation.NewArtworkMessage(art.Image, art.Title, art.Details),
		conversation.NewAIText(haiku),
	)
	conv.SetArtwork(art.Image, art.MimeType)
	cu.state = StateAwaitingResponse
	cu.persistLocked()
	cu.mu.Unlock()
	cu.signal()
	return nil
}

// SubmitReflection отправляет текстовую рефлексию пользователя. Сообщение
// пользователя добавляется сразу и не откатывается при сбое генерации.
func (cu *Curator) SubmitReflection(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyReflection
	}

	cu.mu.Lock()
	// Занятость проверяется раньше предусловий: пока запрос в полёте,
	// любая операция отвечает одинаково — ErrBusy.
	if cu.loading {
		cu.mu.Unlock()
		return ErrBusy
	}
	conv := cu.history.Current()
	if conv == nil || conv.CurrentArtwork == nil {
		cu.mu.Unlock()
		return ErrNoArtwork
	}
	cu.loading = true
	cu.errText = ""
	artwork := *conv.CurrentArtwork
	conv.Append(conversation.NewUserText(text))
	cu.persistLocked()
	cu.mu.Unlock()
	cu.signal()
	defer cu.endOp()

	reply, err := cu.captions.GenerateFromImageAndText(ctx, artwork.ImageData, artwork.MimeType, text)
	if err != nil {
		// В отличие от поиска экспоната, сбой рефлексии восстановим:
		// остаёмся в awaiting_response, пользователь может ответить снова.
		cu.failOp(err, cu.cfg.ReflectionErrorHaiku, StateAwaitingResponse)
		return err
	}

	cu.mu.Lock()
	conv.Append(conversation.NewAIText(reply))
	cu.state = StateAwaitingResponse
	cu.persistLocked()
	cu.mu.Unlock()
	cu.signal()
	return nil
}

// StartNewConversation создаёт свежий диалог с приветственным хайку и делает
// его текущим. При isInitial история заменяется целиком (холодный старт).
func (cu *Curator) StartNewConversation(isInitial bool) error {
	cu.mu.Lock()
	if cu.loading {
		cu.mu.Unlock()
		return ErrBusy
	}
	cu.history.StartNew(cu.cfg.WelcomeHaiku, isInitial)
	cu.state = StateIdle
	cu.errText = ""
	cu.persistLocked()
	cu.mu.Unlock()
	cu.signal()
	return nil
}

// SelectConversation делает диалог текущим. Состояние — awaiting_response,
// если последним говорил ИИ и это не единственное (приветственное) сообщение.
func (cu *Curator) SelectConversation(id string) error {
	cu.mu.Lock()
	if cu.loading {
		cu.mu.Unlock()
		return ErrBusy
	}
	if !cu.history.Select(id) {
		cu.mu.Unlock()
		return ErrUnknownConversation
	}
	conv := cu.history.Current()
	last := conv.LastMessage()
	if last != nil && last.Author == conversation.AuthorAI && len(conv.Messages) > 1 {
		cu.state = StateAwaitingResponse
	} else {
		cu.state = StateIdle
	}
	cu.persistLocked()
	cu.mu.Unlock()
	cu.signal()
	return nil
}

// ShowInput переводит диалог к вводу рефлексии («дать свой ответ»).
func (cu *Curator) ShowInput() error {
	cu.mu.Lock()
	defer cu.mu.Unlock()
	if cu.loading {
		return ErrBusy
	}
	if cu.state != StateAwaitingResponse {
		return ErrConversationState
	}
	cu.state = StateShowingInput
	cu.signal()
	return nil
}

// ToggleTheme переключает тему оформления и сохраняет выбор.
func (cu *Curator) ToggleTheme() string {
	cu.mu.Lock()
	if cu.theme == "light" {
		cu.theme = "dark"
	} else {
		cu.theme = "light"
	}
	theme := cu.theme
	cu.mu.Unlock()
	if err := cu.store.SaveTheme(theme); err != nil {
		cu.logger.Warnw("Не удалось сохранить тему", "error", err)
	}
	cu.signal()
	return theme
}

// ConversationSummary строка селектора истории.
type ConversationSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Snapshot срез состояния для презентационного слоя, только для чтения.
type Snapshot struct {
	State     State                  `json:"state"`
	Loading   bool                   `json:"loading"`
	Error     string                 `json:"error,omitempty"`
	Theme     string                 `json:"theme"`
	CurrentID string                 `json:"currentId"`
	Messages  []conversation.Message `json:"messages"`
	History   []ConversationSummary  `json:"history"`
}

// Snapshot возвращает копию текущего состояния.
func (cu *Curator) Snapshot() Snapshot {
	cu.mu.Lock()
	defer cu.mu.Unlock()

	snap := Snapshot{
		State:     cu.state,
		Loading:   cu.loading,
		Error:     cu.errText,
		Theme:     cu.theme,
		CurrentID: cu.history.CurrentID(),
	}
	if conv := cu.history.Current(); conv != nil {
		snap.Messages = append(snap.Messages, conv.Messages...)
	}
	for _, c := range cu.history.All() {
		snap.History = append(snap.History, ConversationSummary{ID: c.ID, Title: c.Title})
	}
	return snap
}

// beginOp ставит шлюз загрузки: пока запрос в полёте, остальные отклоняются.
func (cu *Curator) beginOp() error {
	cu.mu.Lock()
	defer cu.mu.Unlock()
	if cu.loading {
		return ErrBusy
	}
	cu.loading = true
	cu.errText = ""
	cu.signal()
	return nil
}

func (cu *Curator) endOp() {
	cu.mu.Lock()
	cu.loading = false
	cu.mu.Unlock()
	cu.signal()
}

// failOp нормализует ошибку в баннер, добавляет хайку-заглушку,
// чтобы в ленте не было молчаливого сбоя, и выставляет состояние.
func (cu *Curator) failOp(err error, fallbackHaiku string, next State) {
	cu.logger.Errorw("Операция завершилась ошибкой", "error", err)
	cu.mu.Lock()
	cu.errText = userFacingError(err)
	if conv := cu.history.Current(); conv != nil {
		conv.Append(conversation.NewAIText(fallbackHaiku))
	}
	cu.state = next
	cu.persistLocked()
	cu.mu.Unlock()
	cu.signal()
}

// persistLocked сохраняет снимок истории, ошибки не всплывают к пользователю.
// Вызывается под cu.mu.
func (cu *Curator) persistLocked() {
	if err := cu.store.SaveHistory(cu.history.All(), cu.history.CurrentID()); err != nil {
		cu.logger.Warnw("Не удалось сохранить историю", "error", err)
	}
}

func (cu *Curator) signal() {
	select {
	case cu.notify <- struct{}{}:
	default:
	}
}

// userFacingError сводит ошибку к единой человекочитаемой строке.
func userFacingError(err error) string {
	var genErr *ai.GenerationError
	if errors.As(err, &genErr) {
		return ai.UnavailableMessage
	}
	var provErr *museum.ProviderError
	if errors.As(err, &provErr) {
		return artworkErrorMessage
	}
	return unknownErrorMessage
}
