package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("STORE_BACKEND", "badger")

	cfg, err := Load()
	req.NoError(err)
	req.Equal("8080", cfg.ServerPort)
	req.Equal(5*time.Minute, cfg.NotificationDedupWindow)
	req.Equal(10*time.Second, cfg.RequestTimeout)
	req.Equal(256, cfg.WSSendBuffer)
}

func TestLoad_FirestoreRequiresProject(t *testing.T) {
	t.Setenv("STORE_BACKEND", "firestore")
	t.Setenv("FIREBASE_PROJECT_ID", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")

	_, err := Load()
	require.ErrorContains(t, err, "unknown STORE_BACKEND")
}

func TestLoad_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("STORE_BACKEND", "badger")
	t.Setenv("NOTIFICATION_DEDUP_WINDOW", "90s")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	req.NoError(err)
	req.Equal(90*time.Second, cfg.NotificationDedupWindow)
	req.Equal([]string{"https://a.example", "https://b.example"}, cfg.WSAllowedOrigins)
}
