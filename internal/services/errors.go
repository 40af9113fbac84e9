package services

import "errors"

// Errores del conteo. Los handlers los traducen a códigos HTTP con errors.Is.
var (
	ErrCodigoVacio           = errors.New("el código está vacío")
	ErrProductoNoEncontrado  = errors.New("producto no encontrado")
	ErrCantidadInvalida      = errors.New("la cantidad debe ser mayor o igual a 1")
	ErrUsuarioRequerido      = errors.New("el usuario es obligatorio")
	ErrAlmacenamiento        = errors.New("error de almacenamiento")
	ErrIntegridadDatos       = errors.New("código duplicado en el catálogo")
	ErrStockInvalido         = errors.New("el stock del sistema no puede ser negativo")
	ErrMarcaInvalida         = errors.New("el nombre de la marca está vacío")
	ErrDiaInvalido           = errors.New("el día debe tener formato AAAA-MM-DD")
	ErrCredencialesInvalidas = errors.New("usuario o contraseña incorrectos")
	ErrTokenInvalido         = errors.New("token inválido o vencido")
	ErrUsuarioExiste         = errors.New("el usuario ya existe")
	ErrRolInvalido           = errors.New("rol desconocido")
	ErrPermisoInsuficiente   = errors.New("el rol no tiene permiso para esta operación")
)
