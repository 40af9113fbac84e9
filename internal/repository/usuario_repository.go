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

type usuarioRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewUsuarioRepository(db *sql.DB, logger *zap.Logger) UsuarioRepository {
	return &usuarioRepository{db: db, logger: logger}
}

func (r *usuarioRepository) FindByUsername(ctx context.Context, username string) (*models.Usuario, error) {
	var u models.Usuario
	err := r.db.QueryRowContext(ctx, `
		SELECT username, nombre, password, rol, activo, fecha_creacion
		FROM usuarios WHERE username = $1`, username,
	).Scan(&u.Username, &u.Nombre, &u.PasswordHash, &u.Rol, &u.Activo, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error buscando usuario: %w", err)
	}
	return &u, nil
}

func (r *usuarioRepository) Create(ctx context.Context, u *models.Usuario) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usuarios (username, nombre, password, rol, activo)
		VALUES ($1, $2, $3, $4, $5)`,
		u.Username, u.Nombre, u.PasswordHash, string(u.Rol), u.Activo)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == codigoUniqueViolation {
			return ErrUsuarioExiste
		}
		return fmt.Errorf("error creando usuario: %w", err)
	}
	return nil
}

func (r *usuarioRepository) List(ctx context.Context) ([]*models.Usuario, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT username, nombre, password, rol, activo, fecha_creacion
		FROM usuarios ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("error listando usuarios: %w", err)
	}
	defer rows.Close()

	usuarios := make([]*models.Usuario, 0)
	for rows.Next() {
		var u models.Usuario
		if err := rows.Scan(&u.Username, &u.Nombre, &u.PasswordHash, &u.Rol, &u.Activo, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("error leyendo usuario: %w", err)
		}
		usuarios = append(usuarios, &u)
	}
	return usuarios, rows.Err()
}

func (r *usuarioRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usuarios`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error contando usuarios: %w", err)
	}
	return n, nil
}
