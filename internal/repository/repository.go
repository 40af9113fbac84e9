package repository

import (
	"context"
	"errors"

	"conteo-service/internal/models"
)

var (
	ErrNotFound        = errors.New("registro no encontrado")
	ErrCodigoDuplicado = errors.New("más de un producto coincide con el código")
	ErrConflicto       = errors.New("conflicto de escritura concurrente")
	ErrUsuarioExiste   = errors.New("el usuario ya existe")
)

// CatalogRepository interface del catálogo maestro de productos
type CatalogRepository interface {
	// FindByCodigo devuelve el producto activo con ese código normalizado.
	// ErrNotFound si no existe, ErrCodigoDuplicado si hay más de una coincidencia.
	FindByCodigo(ctx context.Context, codigo string) (*models.Producto, error)
	All(ctx context.Context, marca string) ([]*models.Producto, error)
	Upsert(ctx context.Context, producto *models.Producto) error
	Desactivar(ctx context.Context, codigo string) error
	Count(ctx context.Context) (int, error)
	ListMarcas(ctx context.Context) ([]string, error)
	AddMarca(ctx context.Context, nombre string) (bool, error)
}

// EscaneoRepository interface del log de escaneos y su resumen diario
type EscaneoRepository interface {
	// Append guarda el escaneo y actualiza su ConteoDiario en una sola operación
	Append(ctx context.Context, escaneo *models.Escaneo) error
	SumCantidad(ctx context.Context, usuario, codigo, dia string) (int, error)
	EventsFor(ctx context.Context, filtro models.FiltroEscaneos) ([]*models.Escaneo, error)
	ConteosDiarios(ctx context.Context, dia string) ([]*models.ConteoDiario, error)
	// RecalcularConteosDiarios rehace los conteos del día a partir del log en una sola operación.
	// stock trae el stock vigente por código; los códigos ausentes conservan el del escaneo.
	// Nunca reemplaza un conteo por otro con menor total, así no pisa escaneos concurrentes.
	RecalcularConteosDiarios(ctx context.Context, dia string, stock map[string]int) (int, error)
	DeleteDia(ctx context.Context, dia, usuario string) (int64, error)
	PurgeAll(ctx context.Context) error
}

// UsuarioRepository interface del almacén de credenciales
type UsuarioRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.Usuario, error)
	Create(ctx context.Context, usuario *models.Usuario) error
	List(ctx context.Context) ([]*models.Usuario, error)
	Count(ctx context.Context) (int, error)
}
