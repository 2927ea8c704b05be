package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize_FillsStorageDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "token"

	require.NoError(t, Normalize(cfg))

	require.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	require.Len(t, cfg.Storage.WeightBands, 7)
	require.Len(t, cfg.Storage.VolumeBands, 7)
	require.Equal(t, []int{1, 3, 6, 12}, cfg.Storage.RentPeriods)
	require.Equal(t, []string{"9-13", "13-18", "18-22"}, cfg.Storage.PickupWindows)
	require.Equal(t, 8, cfg.Storage.TransferListLimit)
	require.Equal(t, 8192, cfg.Storage.MaxSessions)
	require.NotEmpty(t, cfg.Storage.ConsentURL)
	require.Equal(t, "г. Москва, ул. Ленина 104", cfg.Storage.Site.Address)
}

func TestNormalize_RequiresToken(t *testing.T) {
	require.Error(t, Normalize(&Config{}))
}

func TestNormalize_RejectsBadRunMode(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "token"
	cfg.Telegram.RunMode = "carrier-pigeon"

	require.Error(t, Normalize(cfg))
}

func TestNormalize_KeepsExplicitStorageValues(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "token"
	cfg.Storage.TransferListLimit = 20
	cfg.Storage.ConsentURL = "https://example.com/consent.pdf"

	require.NoError(t, Normalize(cfg))

	require.Equal(t, 20, cfg.Storage.TransferListLimit)
	require.Equal(t, "https://example.com/consent.pdf", cfg.Storage.ConsentURL)
}
