package config

import (
	"flag"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode bool   `env:"DEBUG_MODE"` // Режим дебага
	BindAddr  string `env:"BIND_ADDR"`  // Адрес HTTP-сервера презентационного слоя
	DataPath  string `env:"DATA_PATH"`  // Путь к локальному bbolt-файлу (история + настройки)

	// Генерация (OpenAI). Ключ берётся клиентом из ENV (OPENAI_API_KEY).
	OpenAIModel      string `env:"OPENAI_MODEL"`      // Модель для генерации хайку
	HaikuPrompt      string `env:"HAIKU_PROMPT"`      // Персона-инструкция для первого взгляда на экспонат
	ReflectionPrompt string `env:"REFLECTION_PROMPT"` // Персона-инструкция для ответа на рефлексию
	UseStubAI        bool   `env:"USE_STUB_AI"`       // Заглушка вместо реальных запросов к ИИ

	// Музейный API (V&A)
	MuseumSearchURL   string `env:"MUSEUM_SEARCH_URL"`   // Поиск случайного объекта коллекции
	MuseumImageURL    string `env:"MUSEUM_IMAGE_URL"`    // Шаблон IIIF-ссылки на изображение
	MuseumImageSize   int    `env:"MUSEUM_IMAGE_SIZE"`   // Запрашиваемый размер изображения в пикселях
	MuseumMaxAttempts int    `env:"MUSEUM_MAX_ATTEMPTS"` // Сколько раз пробовать записи без изображения

	// История диалогов
	HistoryCapacity int    `env:"HISTORY_CAPACITY"` // Максимум хранимых диалогов, старые вытесняются
	DefaultTheme    string `env:"DEFAULT_THEME"`    // Тема по умолчанию: light|dark

	// Фиксированные реплики ИИ
	WelcomeHaiku         string `env:"WELCOME_HAIKU"`          // Приветственное хайку нового диалога
	DiscoveryErrorHaiku  string `env:"DISCOVERY_ERROR_HAIKU"`  // Хайку-заглушка при сбое поиска экспоната
	ReflectionErrorHaiku string `env:"REFLECTION_ERROR_HAIKU"` // Хайку-заглушка при сбое ответа на рефлексию
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode: false,
		BindAddr:  "127.0.0.1:8080",
		DataPath:  "data/curator.bolt",

		OpenAIModel: "gpt-4o",
		HaikuPrompt: "You are The Haiku Curator, a poetic museum guide. Look at the artwork and reply with " +
			"exactly one haiku of 5-7-5 syllables, then a blank line, then a single open-ended question " +
			"inviting the viewer to reflect on the piece. No other content.",
		ReflectionPrompt: "You are The Haiku Curator, a poetic museum guide. The viewer has just shared a " +
			"reflection on the artwork you responded to earlier. Continue the exchange: reply with " +
			"exactly one haiku of 5-7-5 syllables, then a blank line, then a single open-ended question. " +
			"No other content.",

		MuseumSearchURL:   "https://api.vam.ac.uk/v2/objects/search?random=true&images=true&page_size=1",
		MuseumImageURL:    "https://framemark.vam.ac.uk/collections/%s/full/%d,%d/0/default.jpg",
		MuseumImageSize:   800,
		MuseumMaxAttempts: 5,

		HistoryCapacity: 20,
		DefaultTheme:    "dark",

		WelcomeHaiku:         "Welcome, wanderer.\nLet's find some hidden art,\nWhat will we see now?",
		DiscoveryErrorHaiku:  "My thoughts are clouded,\nThe museum's halls are dim,\nPlease try to search once more.",
		ReflectionErrorHaiku: "My apologies,\nA mental fog has descended,\nCould you repeat that?",
	}
}

// NewConfig загружает конфигурацию приложения.
func NewConfig() *Config {
	_ = godotenv.Load()

	// Стартуем с дефолтов, затем перекрываем .env/окружением и флагами
	cfg := Defaults()
	_ = env.Parse(cfg)

	flag.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага")
	flag.StringVar(&cfg.BindAddr, "bind-addr", cfg.BindAddr, "адрес HTTP-сервера, напр. 127.0.0.1:8080")
	flag.StringVar(&cfg.DataPath, "data-path", cfg.DataPath, "путь к файлу локального хранилища")
	flag.StringVar(&cfg.OpenAIModel, "openai-model", cfg.OpenAIModel, "модель OpenAI для генерации")
	flag.BoolVar(&cfg.UseStubAI, "use-stub-ai", cfg.UseStubAI, "использовать заглушку вместо реального ИИ")
	flag.StringVar(&cfg.MuseumSearchURL, "museum-search-url", cfg.MuseumSearchURL, "URL поиска случайного объекта музея")
	flag.StringVar(&cfg.MuseumImageURL, "museum-image-url", cfg.MuseumImageURL, "шаблон ссылки на изображение музея")
	flag.IntVar(&cfg.MuseumImageSize, "museum-image-size", cfg.MuseumImageSize, "размер запрашиваемого изображения в пикселях")
	flag.IntVar(&cfg.MuseumMaxAttempts, "museum-max-attempts", cfg.MuseumMaxAttempts, "максимум попыток найти запись с изображением")
	flag.IntVar(&cfg.HistoryCapacity, "history-capacity", cfg.HistoryCapacity, "максимум хранимых диалогов")
	flag.StringVar(&cfg.DefaultTheme, "default-theme", cfg.DefaultTheme, "тема по умолчанию: light|dark")
	flag.Parse()

	return cfg
}
