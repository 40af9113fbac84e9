package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"conteo-service/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const codigoUniqueViolation = "23505"

// escaneoRepository implementación Postgres del log de escaneos
type escaneoRepository struct {
	db     *sql.DB
	stmts  map[string]*sql.Stmt
	logger *zap.Logger
}

// NewEscaneoRepository crea el repository y prepara sus queries
func NewEscaneoRepository(db *sql.DB, logger *zap.Logger) (EscaneoRepository, error) {
	repo := &escaneoRepository{
		db:     db,
		stmts:  make(map[string]*sql.Stmt),
		logger: logger,
	}

	if err := repo.prepareStatements(); err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return repo, nil
}

const columnasEscaneo = `id, fecha, to_char(dia, 'YYYY-MM-DD'), usuario, codigo_producto, producto, marca, area,
	cantidad_escaneada, total_acumulado, stock_sistema, diferencia`

func (r *escaneoRepository) prepareStatements() error {
	queries := map[string]string{
		"insert": `
			INSERT INTO escaneos (fecha, dia, usuario, codigo_producto, producto, marca, area,
				cantidad_escaneada, total_acumulado, stock_sistema, diferencia)
			VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id`,
		"upsert_conteo": `
			INSERT INTO conteos_diarios (dia, usuario, codigo_producto, conteo_fisico, stock_sistema, diferencia, actualizado)
			VALUES ($1::date, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (dia, usuario, codigo_producto) DO UPDATE SET
				conteo_fisico = EXCLUDED.conteo_fisico,
				stock_sistema = EXCLUDED.stock_sistema,
				diferencia = EXCLUDED.diferencia,
				actualizado = EXCLUDED.actualizado`,
		"sum": `
			SELECT COALESCE(SUM(cantidad_escaneada), 0)
			FROM escaneos
			WHERE usuario = $1 AND codigo_producto = $2 AND dia = $3::date`,
		// El límite se aplica sobre los más recientes y el resultado vuelve en orden de inserción
		"events": `
			SELECT * FROM (
				SELECT ` + columnasEscaneo + `
				FROM escaneos
				WHERE ($1 = '' OR usuario = $1)
				  AND ($2 = '' OR codigo_producto = $2)
				  AND ($3 = '' OR dia = NULLIF($3, '')::date)
				ORDER BY id DESC
				LIMIT NULLIF($4, 0)
			) recientes ORDER BY id`,
		"conteos": `
			SELECT to_char(dia, 'YYYY-MM-DD'), usuario, codigo_producto, conteo_fisico, stock_sistema, diferencia, actualizado
			FROM conteos_diarios
			WHERE dia = $1::date
			ORDER BY usuario, codigo_producto`,
		// Último total por (usuario, código) con el stock vigente; el WHERE del upsert
		// deja intacta una fila que un escaneo concurrente ya llevó a un total mayor.
		"recalcular_conteos": `
			INSERT INTO conteos_diarios (dia, usuario, codigo_producto, conteo_fisico, stock_sistema, diferencia, actualizado)
			SELECT u.dia, u.usuario, u.codigo_producto, u.total_acumulado,
				COALESCE(s.stock, u.stock_sistema),
				u.total_acumulado - COALESCE(s.stock, u.stock_sistema),
				u.fecha
			FROM (
				SELECT DISTINCT ON (usuario, codigo_producto) dia, usuario, codigo_producto, total_acumulado, stock_sistema, fecha
				FROM escaneos
				WHERE dia = $1::date
				ORDER BY usuario, codigo_producto, total_acumulado DESC
			) u
			LEFT JOIN unnest($2::text[], $3::bigint[]) AS s(codigo, stock) ON s.codigo = u.codigo_producto
			ON CONFLICT (dia, usuario, codigo_producto) DO UPDATE SET
				conteo_fisico = EXCLUDED.conteo_fisico,
				stock_sistema = EXCLUDED.stock_sistema,
				diferencia = EXCLUDED.diferencia,
				actualizado = EXCLUDED.actualizado
			WHERE conteos_diarios.conteo_fisico <= EXCLUDED.conteo_fisico`,
		"conteos_huerfanos": `
			DELETE FROM conteos_diarios c
			WHERE c.dia = $1::date
			  AND NOT EXISTS (
				SELECT 1 FROM escaneos e
				WHERE e.dia = c.dia AND e.usuario = c.usuario AND e.codigo_producto = c.codigo_producto)`,
		"delete_conteos_dia": `DELETE FROM conteos_diarios WHERE dia = $1::date AND ($2 = '' OR usuario = $2)`,
		"delete_dia":         `DELETE FROM escaneos WHERE dia = $1::date AND ($2 = '' OR usuario = $2)`,
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

// Append inserta el escaneo y actualiza su conteo diario en la misma transacción
func (r *escaneoRepository) Append(ctx context.Context, escaneo *models.Escaneo) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error iniciando transacción: %w", err)
	}
	defer tx.Rollback()

	err = tx.StmtContext(ctx, r.stmts["insert"]).QueryRowContext(ctx,
		escaneo.Fecha, escaneo.Dia, escaneo.Usuario, escaneo.Codigo, escaneo.Producto, escaneo.Marca, escaneo.Area,
		escaneo.Cantidad, escaneo.TotalAcumulado, escaneo.StockSistema, escaneo.Diferencia,
	).Scan(&escaneo.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == codigoUniqueViolation {
			r.logger.Warn("Total acumulado repetido para la misma clave",
				zap.String("usuario", escaneo.Usuario),
				zap.String("codigo", escaneo.Codigo),
				zap.String("dia", escaneo.Dia),
				zap.Int("total_acumulado", escaneo.TotalAcumulado))
			return ErrConflicto
		}
		return fmt.Errorf("error insertando escaneo: %w", err)
	}

	c := models.ConteoDesdeEscaneo(escaneo)
	if _, err := tx.StmtContext(ctx, r.stmts["upsert_conteo"]).ExecContext(ctx,
		c.Dia, c.Usuario, c.Codigo, c.ConteoFisico, c.StockSistema, c.Diferencia, c.Actualizado); err != nil {
		return fmt.Errorf("error actualizando conteo diario: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error confirmando escaneo: %w", err)
	}
	return nil
}

// SumCantidad total escaneado hoy por un usuario para un código
func (r *escaneoRepository) SumCantidad(ctx context.Context, usuario, codigo, dia string) (int, error) {
	var total int
	if err := r.stmts["sum"].QueryRowContext(ctx, usuario, codigo, dia).Scan(&total); err != nil {
		return 0, fmt.Errorf("error sumando escaneos: %w", err)
	}
	return total, nil
}

// EventsFor lista escaneos con filtros opcionales en orden de inserción
func (r *escaneoRepository) EventsFor(ctx context.Context, filtro models.FiltroEscaneos) ([]*models.Escaneo, error) {
	rows, err := r.stmts["events"].QueryContext(ctx,
		filtro.Usuario, models.NormalizarCodigo(filtro.Codigo), filtro.Dia, filtro.Limit)
	if err != nil {
		return nil, fmt.Errorf("error consultando escaneos: %w", err)
	}
	defer rows.Close()

	escaneos := make([]*models.Escaneo, 0)
	for rows.Next() {
		var e models.Escaneo
		if err := rows.Scan(&e.ID, &e.Fecha, &e.Dia, &e.Usuario, &e.Codigo, &e.Producto, &e.Marca, &e.Area,
			&e.Cantidad, &e.TotalAcumulado, &e.StockSistema, &e.Diferencia); err != nil {
			return nil, fmt.Errorf("error leyendo escaneo: %w", err)
		}
		escaneos = append(escaneos, &e)
	}
	return escaneos, rows.Err()
}

func (r *escaneoRepository) ConteosDiarios(ctx context.Context, dia string) ([]*models.ConteoDiario, error) {
	rows, err := r.stmts["conteos"].QueryContext(ctx, dia)
	if err != nil {
		return nil, fmt.Errorf("error consultando conteos diarios: %w", err)
	}
	defer rows.Close()

	conteos := make([]*models.ConteoDiario, 0)
	for rows.Next() {
		var c models.ConteoDiario
		if err := rows.Scan(&c.Dia, &c.Usuario, &c.Codigo, &c.ConteoFisico, &c.StockSistema, &c.Diferencia, &c.Actualizado); err != nil {
			return nil, fmt.Errorf("error leyendo conteo diario: %w", err)
		}
		conteos = append(conteos, &c)
	}
	return conteos, rows.Err()
}

// RecalcularConteosDiarios rehace los conteos del día desde escaneos, sin leer el log en Go
func (r *escaneoRepository) RecalcularConteosDiarios(ctx context.Context, dia string, stock map[string]int) (int, error) {
	codigos := make([]string, 0, len(stock))
	cantidades := make([]int64, 0, len(stock))
	for codigo, st := range stock {
		codigos = append(codigos, codigo)
		cantidades = append(cantidades, int64(st))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error iniciando transacción: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.StmtContext(ctx, r.stmts["recalcular_conteos"]).ExecContext(ctx, dia, pq.Array(codigos), pq.Array(cantidades))
	if err != nil {
		return 0, fmt.Errorf("error recalculando conteos diarios: %w", err)
	}
	if _, err := tx.StmtContext(ctx, r.stmts["conteos_huerfanos"]).ExecContext(ctx, dia); err != nil {
		return 0, fmt.Errorf("error limpiando conteos diarios: %w", err)
	}
	escritos, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error recalculando conteos diarios: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error confirmando conteos diarios: %w", err)
	}
	return int(escritos), nil
}

// DeleteDia borra los escaneos de un día, opcionalmente de un solo usuario
func (r *escaneoRepository) DeleteDia(ctx context.Context, dia, usuario string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error iniciando transacción: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.StmtContext(ctx, r.stmts["delete_dia"]).ExecContext(ctx, dia, usuario)
	if err != nil {
		return 0, fmt.Errorf("error borrando escaneos: %w", err)
	}
	if _, err := tx.StmtContext(ctx, r.stmts["delete_conteos_dia"]).ExecContext(ctx, dia, usuario); err != nil {
		return 0, fmt.Errorf("error borrando conteos diarios: %w", err)
	}
	borrados, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error borrando escaneos: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error confirmando borrado: %w", err)
	}
	return borrados, nil
}

// PurgeAll vacía el log y los conteos diarios
func (r *escaneoRepository) PurgeAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `TRUNCATE escaneos, conteos_diarios RESTART IDENTITY`); err != nil {
		return fmt.Errorf("error purgando escaneos: %w", err)
	}
	return nil
}
