package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/isokoinfo/marketplace/pkg/config"
)

const strongSecret = "this-is-a-very-secure-session-secret-0123456789"

func load(t *testing.T, vars map[string]string) (*Config, error) {
	t.Helper()
	return Load(pkgconfig.WithEnvironment(vars))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"SESSION_SECRET": strongSecret,
		"MEDIA_BACKEND":  "memory",
	})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.SessionCookieSecure)
	assert.Equal(t, "require", cfg.PostgresSSL)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "isokoinfo_products", cfg.ImageFolder())
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.AdminEnabled())
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold())
}

func TestLoad_RequiresSessionSecret(t *testing.T) {
	_, err := load(t, map[string]string{"MEDIA_BACKEND": "memory"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET must be set")
}

func TestLoad_RejectsShortSessionSecret(t *testing.T) {
	_, err := load(t, map[string]string{
		"SESSION_SECRET": "short",
		"MEDIA_BACKEND":  "memory",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoad_RejectsInvalidPort(t *testing.T) {
	_, err := load(t, map[string]string{
		"SESSION_SECRET": strongSecret,
		"MEDIA_BACKEND":  "memory",
		"HTTP_PORT":      "70000",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_MediaBackends(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{
			name:    "cloudinary without credentials",
			vars:    map[string]string{"MEDIA_BACKEND": "cloudinary"},
			wantErr: "CLOUDINARY_CLOUD_NAME",
		},
		{
			name: "cloudinary with credentials",
			vars: map[string]string{
				"MEDIA_BACKEND":         "cloudinary",
				"CLOUDINARY_CLOUD_NAME": "demo",
				"CLOUDINARY_API_KEY":    "key",
				"CLOUDINARY_API_SECRET": "secret",
			},
		},
		{
			name:    "gcs without bucket",
			vars:    map[string]string{"MEDIA_BACKEND": "gcs"},
			wantErr: "GCS_BUCKET",
		},
		{
			name: "gcs with bucket",
			vars: map[string]string{"MEDIA_BACKEND": "gcs", "GCS_BUCKET": "images"},
		},
		{
			name:    "memory in production",
			vars:    map[string]string{"MEDIA_BACKEND": "memory", "ENVIRONMENT": "production"},
			wantErr: "not allowed in production",
		},
		{
			name:    "unknown backend",
			vars:    map[string]string{"MEDIA_BACKEND": "s3"},
			wantErr: "unknown MEDIA_BACKEND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.vars["SESSION_SECRET"] = strongSecret
			_, err := load(t, tt.vars)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Postgres(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"SESSION_SECRET":    strongSecret,
		"MEDIA_BACKEND":     "memory",
		"POSTGRES_HOST":     "db.internal",
		"POSTGRES_PASSWORD": "pw",
		"POSTGRES_SSL_MODE": "disable",
	})
	require.NoError(t, err)

	pg := cfg.Postgres()
	assert.Equal(t, "db.internal", pg.Host)
	assert.Equal(t, "pw", pg.Password)
	assert.Equal(t, "disable", pg.SSLMode)
	assert.Equal(t, int32(10), pg.MaxConns)
}

func TestConfig_AdminEnabled(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"SESSION_SECRET": strongSecret,
		"MEDIA_BACKEND":  "memory",
		"ADMIN_PASSWORD": "hunter2",
	})
	require.NoError(t, err)

	assert.True(t, cfg.AdminEnabled())
	assert.Equal(t, "admin", cfg.AdminUser)
}
