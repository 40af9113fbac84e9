package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("CONTEO_UMBRAL_LEVE", "")
	t.Setenv("CONTEO_TIMEZONE", "")
	t.Setenv("CONTEO_SIN_MARCA", "")
	t.Setenv("CONTEO_NETA_INCLUYE_NO_ESCANEADOS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, 2, cfg.Conteo.UmbralLeve)
	assert.False(t, cfg.Conteo.NetaIncluyeNoEscaneados)
	assert.Equal(t, "SIN MARCA", cfg.Conteo.SinMarca)
	assert.Equal(t, time.UTC, cfg.Conteo.Location)
	assert.Equal(t, 5*time.Second, cfg.Conteo.LockTTL)
}

func TestLoadConteoOverrides(t *testing.T) {
	t.Setenv("CONTEO_UMBRAL_LEVE", "0")
	t.Setenv("CONTEO_TIMEZONE", "America/Caracas")
	t.Setenv("CONTEO_SIN_MARCA", " genérico ")
	t.Setenv("CONTEO_NETA_INCLUYE_NO_ESCANEADOS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Conteo.UmbralLeve)
	assert.Equal(t, "America/Caracas", cfg.Conteo.Location.String())
	assert.Equal(t, "GENÉRICO", cfg.Conteo.SinMarca)
	assert.True(t, cfg.Conteo.NetaIncluyeNoEscaneados)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSAllowedOrigins)
}

func TestLoadRechazaValoresInvalidos(t *testing.T) {
	t.Setenv("CONTEO_TIMEZONE", "Marte/Olympus")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("CONTEO_TIMEZONE", "UTC")
	t.Setenv("CONTEO_UMBRAL_LEVE", "-1")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadProduccionExigeJWTSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "un-secreto-largo-solo-para-produccion")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Server.Production)
}
