package repository

import (
	"context"
	"database/sql"
	"fmt"

	"conteo-service/internal/models"

	"go.uber.org/zap"
)

// catalogRepository implementación Postgres del catálogo
type catalogRepository struct {
	db     *sql.DB
	stmts  map[string]*sql.Stmt
	logger *zap.Logger
}

// NewCatalogRepository crea el repository y prepara sus queries
func NewCatalogRepository(db *sql.DB, logger *zap.Logger) (CatalogRepository, error) {
	repo := &catalogRepository{
		db:     db,
		stmts:  make(map[string]*sql.Stmt),
		logger: logger,
	}

	if err := repo.prepareStatements(); err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return repo, nil
}

// prepareStatements prepara todas las queries SQL
func (r *catalogRepository) prepareStatements() error {
	queries := map[string]string{
		// Compara contra la forma normalizada del código guardado, así una fila
		// heredada con espacios o saltos de línea también aparece y se detecta el duplicado.
		"find": `
			SELECT codigo, producto, marca, area, stock_sistema, activo, fecha_actualizacion
			FROM productos
			WHERE normalizar_codigo(codigo) = $1 AND activo
			LIMIT 2`,
		"all": `
			SELECT codigo, producto, marca, area, stock_sistema, activo, fecha_actualizacion
			FROM productos
			WHERE activo AND ($1 = '' OR marca = $1)
			ORDER BY codigo`,
		"upsert": `
			INSERT INTO productos (codigo, producto, marca, area, stock_sistema, activo, fecha_actualizacion)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (codigo) DO UPDATE SET
				producto = EXCLUDED.producto,
				marca = EXCLUDED.marca,
				area = EXCLUDED.area,
				stock_sistema = EXCLUDED.stock_sistema,
				activo = EXCLUDED.activo,
				fecha_actualizacion = NOW()`,
		"desactivar": `
			UPDATE productos SET activo = FALSE, fecha_actualizacion = NOW()
			WHERE codigo = $1 AND activo`,
		"count":  `SELECT COUNT(*) FROM productos WHERE activo`,
		"marcas": `SELECT nombre FROM marcas ORDER BY nombre`,
		"add_marca": `
			INSERT INTO marcas (nombre) VALUES ($1)
			ON CONFLICT (nombre) DO NOTHING`,
	}

	for name, query := range queries {
		stmt, err := r.db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare %s query: %w", name, err)
		}
		r.stmts[name] = stmt
	}

	return nil
}

func scanProducto(scanner interface{ Scan(...any) error }) (*models.Producto, error) {
	var p models.Producto
	if err := scanner.Scan(&p.Codigo, &p.Nombre, &p.Marca, &p.Area, &p.StockSistema, &p.Activo, &p.FechaActualizacion); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByCodigo busca un producto activo por código normalizado
func (r *catalogRepository) FindByCodigo(ctx context.Context, codigo string) (*models.Producto, error) {
	codigo = models.NormalizarCodigo(codigo)

	rows, err := r.stmts["find"].QueryContext(ctx, codigo)
	if err != nil {
		return nil, fmt.Errorf("error buscando producto: %w", err)
	}
	defer rows.Close()

	var encontrados []*models.Producto
	for rows.Next() {
		p, err := scanProducto(rows)
		if err != nil {
			return nil, fmt.Errorf("error leyendo producto: %w", err)
		}
		encontrados = append(encontrados, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterando productos: %w", err)
	}

	switch len(encontrados) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return encontrados[0], nil
	default:
		r.logger.Error("Código con más de un producto en catálogo",
			zap.String("codigo", codigo),
			zap.String("codigo_a", encontrados[0].Codigo),
			zap.String("codigo_b", encontrados[1].Codigo))
		return nil, ErrCodigoDuplicado
	}
}

// All lista los productos activos, opcionalmente de una marca
func (r *catalogRepository) All(ctx context.Context, marca string) ([]*models.Producto, error) {
	rows, err := r.stmts["all"].QueryContext(ctx, marca)
	if err != nil {
		return nil, fmt.Errorf("error listando productos: %w", err)
	}
	defer rows.Close()

	productos := make([]*models.Producto, 0)
	for rows.Next() {
		p, err := scanProducto(rows)
		if err != nil {
			return nil, fmt.Errorf("error leyendo producto: %w", err)
		}
		productos = append(productos, p)
	}
	return productos, rows.Err()
}

// Upsert reemplaza el producto con el mismo código o lo crea
func (r *catalogRepository) Upsert(ctx context.Context, producto *models.Producto) error {
	codigo := models.NormalizarCodigo(producto.Codigo)
	_, err := r.stmts["upsert"].ExecContext(ctx,
		codigo, producto.Nombre, producto.Marca, producto.Area, producto.StockSistema, producto.Activo)
	if err != nil {
		return fmt.Errorf("error guardando producto %s: %w", codigo, err)
	}
	return nil
}

// Desactivar hace el borrado lógico de un producto
func (r *catalogRepository) Desactivar(ctx context.Context, codigo string) error {
	res, err := r.stmts["desactivar"].ExecContext(ctx, models.NormalizarCodigo(codigo))
	if err != nil {
		return fmt.Errorf("error desactivando producto: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error desactivando producto: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *catalogRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.stmts["count"].QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("error contando productos: %w", err)
	}
	return n, nil
}

func (r *catalogRepository) ListMarcas(ctx context.Context) ([]string, error) {
	rows, err := r.stmts["marcas"].QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listando marcas: %w", err)
	}
	defer rows.Close()

	marcas := make([]string, 0)
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("error leyendo marca: %w", err)
		}
		marcas = append(marcas, m)
	}
	return marcas, rows.Err()
}

// AddMarca registra la marca; false si ya existía
func (r *catalogRepository) AddMarca(ctx context.Context, nombre string) (bool, error) {
	res, err := r.stmts["add_marca"].ExecContext(ctx, nombre)
	if err != nil {
		return false, fmt.Errorf("error creando marca: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error creando marca: %w", err)
	}
	return n > 0, nil
}
