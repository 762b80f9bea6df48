package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultMaxImageBytes bounds uploaded plant photos (4 MiB).
const DefaultMaxImageBytes = 4 << 20

type Config struct {
	Port          string
	Env           string
	APIToken      string
	MaxImageBytes int64
	LLM           LLMConfig
	Garden        GardenConfig
	Photos        PhotosConfig
}

type LLMConfig struct {
	APIKey string
	Model  string
	RPS    float64
	Burst  int
}

type GardenConfig struct {
	PostgresDSN string
	SQLiteDir   string
}

type PhotosConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:          *port,
		Env:           env,
		APIToken:      strings.TrimSpace(os.Getenv("API_TOKEN")),
		MaxImageBytes: loadMaxImageBytes(),
		LLM:           loadLLMConfig(),
		Garden:        loadGardenConfig(),
		Photos:        loadPhotosConfig(env),
	}, nil
}

func loadMaxImageBytes() int64 {
	raw := strings.TrimSpace(os.Getenv("MAX_IMAGE_BYTES"))
	if raw == "" {
		return DefaultMaxImageBytes
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return DefaultMaxImageBytes
	}
	return n
}

func loadLLMConfig() LLMConfig {
	cfg := LLMConfig{
		APIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:  firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_MODEL")), "gemini-2.5-flash"),
	}
	if v := strings.TrimSpace(os.Getenv("LLM_RPS")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RPS = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("LLM_BURST")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Burst = n
		}
	}
	return cfg
}

func loadGardenConfig() GardenConfig {
	return GardenConfig{
		PostgresDSN: strings.TrimSpace(os.Getenv("GARDEN_PG_DSN")),
		SQLiteDir:   firstNonEmpty(strings.TrimSpace(os.Getenv("GARDEN_SQLITE_DIR")), "data"),
	}
}

func loadPhotosConfig(env string) PhotosConfig {
	endpoint := resolvePhotosEndpoint(env)
	return PhotosConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("PHOTOS_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("PHOTOS_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("PHOTOS_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("PHOTOS_S3_BUCKET")), "agridetect-photos"),
		UseSSL:    resolvePhotosUseSSL(env),
	}
}

func resolvePhotosEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("PHOTOS_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("PHOTOS_S3_ENDPOINT"))
}

func resolvePhotosUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("PHOTOS_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
