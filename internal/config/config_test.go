package config

import "testing"

func TestLoadMaxImageBytes(t *testing.T) {
	t.Setenv("MAX_IMAGE_BYTES", "")
	if got := loadMaxImageBytes(); got != DefaultMaxImageBytes {
		t.Fatalf("default = %d", got)
	}

	t.Setenv("MAX_IMAGE_BYTES", "1048576")
	if got := loadMaxImageBytes(); got != 1<<20 {
		t.Fatalf("got %d", got)
	}

	t.Setenv("MAX_IMAGE_BYTES", "not-a-number")
	if got := loadMaxImageBytes(); got != DefaultMaxImageBytes {
		t.Fatalf("invalid value should fall back, got %d", got)
	}

	t.Setenv("MAX_IMAGE_BYTES", "-5")
	if got := loadMaxImageBytes(); got != DefaultMaxImageBytes {
		t.Fatalf("negative value should fall back, got %d", got)
	}
}

func TestLoadLLMConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("LLM_RPS", "2.5")
	t.Setenv("LLM_BURST", "4")

	cfg := loadLLMConfig()
	if cfg.APIKey != "key" {
		t.Fatalf("APIKey = %q", cfg.APIKey)
	}
	if cfg.Model != "gemini-2.5-flash" {
		t.Fatalf("default model = %q", cfg.Model)
	}
	if cfg.RPS != 2.5 || cfg.Burst != 4 {
		t.Fatalf("rps/burst = %v/%v", cfg.RPS, cfg.Burst)
	}
}

func TestLoadPhotosConfig(t *testing.T) {
	t.Setenv("PHOTOS_MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("PHOTOS_S3_ENDPOINT", "")
	t.Setenv("PHOTOS_S3_ACCESS_KEY", "")
	t.Setenv("PHOTOS_S3_SECRET_KEY", "")
	t.Setenv("MINIO_ROOT_USER", "minio")
	t.Setenv("MINIO_ROOT_PASSWORD", "miniopass")
	t.Setenv("PHOTOS_S3_BUCKET", "")

	cfg := loadPhotosConfig("local")
	if !cfg.Enabled {
		t.Fatalf("local endpoint should enable photos")
	}
	if cfg.Endpoint != "localhost:9000" {
		t.Fatalf("endpoint = %q", cfg.Endpoint)
	}
	if cfg.AccessKey != "minio" || cfg.SecretKey != "miniopass" {
		t.Fatalf("minio fallback creds not used: %+v", cfg)
	}
	if cfg.UseSSL {
		t.Fatalf("local should not use SSL")
	}
	if cfg.Bucket != "agridetect-photos" {
		t.Fatalf("bucket = %q", cfg.Bucket)
	}

	cfg = loadPhotosConfig("production")
	if cfg.Enabled {
		t.Fatalf("production without PHOTOS_S3_ENDPOINT should disable photos")
	}
}
