package museum

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"HaikuCurator/internal/conversation"
)

// Сентинелы для отсутствующих полей записи музея.
const (
	unknownArtist = "Unknown Artist"
	unknownDate   = "Unknown Date"
	unknownPlace  = "Unknown Place"
	unknownType   = "Unknown Type"
	notAvailable  = "N/A"
)

// ProviderError ошибка получения экспоната (листинг, пустой ответ, изображение).
type ProviderError struct {
	Reason string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("museum provider: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("museum provider: %s", e.Reason)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Artwork результат удачного поиска: изображение как data URL плюс метаданные.
type Artwork struct {
	Image    string // data URL
	MimeType string
	Title    string
	Details  conversation.ArtworkDetails
}

// Client клиент музейного API: случайный объект коллекции + его изображение.
type Client struct {
	http        *http.Client
	searchURL   string
	imageURL    string // шаблон IIIF: %s (image id), затем дважды %d (ширина и высота)
	imageSize   int
	maxAttempts int
	logger      *zap.SugaredLogger
}

type Config struct {
	SearchURL   string
	ImageURL    string
	ImageSize   int
	MaxAttempts int
}

func New(httpClient *http.Client, cfg Config, logger *zap.SugaredLogger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.ImageSize <= 0 {
		cfg.ImageSize = 800
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Client{
		http:        httpClient,
		searchURL:   cfg.SearchURL,
		imageURL:    cfg.ImageURL,
		imageSize:   cfg.ImageSize,
		maxAttempts: cfg.MaxAttempts,
		logger:      logger,
	}
}

// searchResponse часть ответа поиска, которую мы потребляем.
type searchResponse struct {
	Records []record `json:"records"`
}

type record struct {
	PrimaryImageID   string `json:"_primaryImageId"`
	PrimaryTitle     string `json:"_primaryTitle"`
	PrimaryMakerName string `json:"_primaryMaker__name"`
	PrimaryDate      string `json:"_primaryDate"`
	PrimaryPlace     string `json:"_primaryPlace"`
	ObjectType       string `json:"objectType"`
	SystemNumber     string `json:"systemNumber"`
}

// FetchRandomArtwork получает случайный экспонат. Записи без изображения
// не считаются ошибкой: берётся следующая случайная, но не более maxAttempts раз.
func (c *Client) FetchRandomArtwork(ctx context.Context) (Artwork, error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		rec, err := c.fetchRandomRecord(ctx)
		if err != nil {
			return Artwork{}, err
		}
		if rec.PrimaryImageID == "" {
			c.logger.Infow("Запись без изображения, берём другую", "attempt", attempt, "systemNumber", rec.SystemNumber)
			continue
		}
		return c.fetchArtwork(ctx, rec)
	}
	return Artwork{}, &ProviderError{Reason: fmt.Sprintf("no image-bearing record after %d attempts", c.maxAttempts)}
}

func (c *Client) fetchRandomRecord(ctx context.Context) (record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL, nil)
	if err != nil {
		return record{}, &ProviderError{Reason: "building search request", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return record{}, &ProviderError{Reason: "fetching artwork listing", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return record{}, &ProviderError{Reason: fmt.Sprintf("artwork listing status %d", resp.StatusCode)}
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return record{}, &ProviderError{Reason: "decoding artwork listing", Err: err}
	}
	if len(sr.Records) == 0 {
		return record{}, &ProviderError{Reason: "no artwork found in the museum response"}
	}
	return sr.Records[0], nil
}

func (c *Client) fetchArtwork(ctx context.Context, rec record) (Artwork, error) {
	imageURL := fmt.Sprintf(c.imageURL, rec.PrimaryImageID, c.imageSize, c.imageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Artwork{}, &ProviderError{Reason: "building image request", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Artwork{}, &ProviderError{Reason: "fetching artwork image", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Artwork{}, &ProviderError{Reason: fmt.Sprintf("artwork image status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Artwork{}, &ProviderError{Reason: "reading artwork image", Err: err}
	}
	if len(data) == 0 {
		return Artwork{}, &ProviderError{Reason: "empty artwork image"}
	}

	mimeType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	title := rec.PrimaryTitle
	if title == "" {
		title = "Untitled"
	}

	return Artwork{
		Image:    fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)),
		MimeType: mimeType,
		Title:    title,
		Details: conversation.ArtworkDetails{
			Artist:       orDefault(rec.PrimaryMakerName, unknownArtist),
			Date:         orDefault(rec.PrimaryDate, unknownDate),
			Place:        orDefault(rec.PrimaryPlace, unknownPlace),
			ObjectType:   orDefault(rec.ObjectType, unknownType),
			SystemNumber: orDefault(rec.SystemNumber, notAvailable),
		},
	}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
