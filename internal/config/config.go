package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"conteo-service/internal/models"

	"github.com/joho/godotenv"
)

// jwtSecretPorDefecto solo sirve para desarrollo
const jwtSecretPorDefecto = "your-super-secret-jwt-key-change-in-production"

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	JWT      JWTConfig
	Logging  LoggingConfig
	Conteo   ConteoConfig
	Cache    CacheConfig
	Jobs     JobsConfig
	Seed     SeedConfig
}

type DatabaseConfig struct {
	// URL vacía usa los repositorios en memoria
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	// URL vacía deja el caché solo en memoria y el lock local
	URL      string
	Password string
	DB       int
}

type ServerConfig struct {
	Port               string
	GinMode            string
	CORSAllowedOrigins []string
	Production         bool
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type LoggingConfig struct {
	Level string
}

// ConteoConfig parámetros de la conciliación
type ConteoConfig struct {
	UmbralLeve              int
	NetaIncluyeNoEscaneados bool
	Timezone                string
	Location                *time.Location
	SinMarca                string
	LockTTL                 time.Duration
	WebSocketIntervalo      time.Duration
}

type CacheConfig struct {
	MaxL1Size int
	TTL       time.Duration
}

type JobsConfig struct {
	RebuildEveryMinutes int
	CleanupEveryMinutes int
}

// SeedConfig contraseñas de los usuarios iniciales
type SeedConfig struct {
	AdminPassword      string
	InventarioPassword string
	ConsultaPassword   string
}

func Load() (*Config, error) {
	// .env es opcional
	_ = godotenv.Load()

	timezone := getEnv("CONTEO_TIMEZONE", "UTC")
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("CONTEO_TIMEZONE inválido %q: %w", timezone, err)
	}

	umbral := getEnvAsInt("CONTEO_UMBRAL_LEVE", models.UmbralLevePorDefecto)
	if umbral < 0 {
		return nil, fmt.Errorf("CONTEO_UMBRAL_LEVE no puede ser negativo: %d", umbral)
	}

	config := &Config{
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getEnvAsInt("DB_CONN_MAX_LIFETIME", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			GinMode:            getEnv("GIN_MODE", "release"),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
			Production:         strings.EqualFold(getEnv("APP_ENV", "development"), "production"),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", jwtSecretPorDefecto),
			ExpiryHours: getEnvAsInt("JWT_EXPIRY_HOURS", 12),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Conteo: ConteoConfig{
			UmbralLeve:              umbral,
			NetaIncluyeNoEscaneados: getEnvAsBool("CONTEO_NETA_INCLUYE_NO_ESCANEADOS", false),
			Timezone:                timezone,
			Location:                location,
			SinMarca:                models.NormalizarMarca(os.Getenv("CONTEO_SIN_MARCA"), models.SinMarcaPorDefecto),
			LockTTL:                 time.Duration(getEnvAsInt("CONTEO_LOCK_TTL_SECONDS", 5)) * time.Second,
			WebSocketIntervalo:      time.Duration(getEnvAsInt("CONTEO_WS_INTERVAL_SECONDS", 10)) * time.Second,
		},
		Cache: CacheConfig{
			MaxL1Size: getEnvAsInt("CACHE_L1_MAX_SIZE", 5000),
			TTL:       time.Duration(getEnvAsInt("CACHE_TTL_MINUTES", 30)) * time.Minute,
		},
		Jobs: JobsConfig{
			RebuildEveryMinutes: getEnvAsInt("JOBS_REBUILD_EVERY_MINUTES", 15),
			CleanupEveryMinutes: getEnvAsInt("JOBS_CACHE_CLEANUP_EVERY_MINUTES", 5),
		},
		Seed: SeedConfig{
			AdminPassword:      getEnv("SEED_ADMIN_PASSWORD", "admin123"),
			InventarioPassword: getEnv("SEED_INVENTARIO_PASSWORD", "inventario123"),
			ConsultaPassword:   getEnv("SEED_CONSULTA_PASSWORD", "consulta123"),
		},
	}

	if config.Server.Production && config.JWT.Secret == jwtSecretPorDefecto {
		return nil, fmt.Errorf("JWT_SECRET debe definirse cuando APP_ENV=production")
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
