package models

import "time"

// Rol de un usuario dentro del conteo
type Rol string

const (
	RolConsulta   Rol = "consulta"
	RolInventario Rol = "inventario"
	RolAdmin      Rol = "admin"
)

// Nivel devuelve la jerarquía del rol, 0 si es desconocido
func (r Rol) Nivel() int {
	switch r {
	case RolConsulta:
		return 1
	case RolInventario:
		return 2
	case RolAdmin:
		return 3
	default:
		return 0
	}
}

// Valido indica si el rol es uno de los tres conocidos
func (r Rol) Valido() bool {
	return r.Nivel() > 0
}

// Permite indica si el rol alcanza el nivel requerido
func (r Rol) Permite(requerido Rol) bool {
	return r.Valido() && r.Nivel() >= requerido.Nivel()
}

// Usuario del almacén de credenciales
type Usuario struct {
	Username     string    `json:"username" db:"username"`
	Nombre       string    `json:"nombre" db:"nombre"`
	PasswordHash string    `json:"-" db:"password"`
	Rol          Rol       `json:"rol" db:"rol"`
	Activo       bool      `json:"activo" db:"activo"`
	CreatedAt    time.Time `json:"created_at" db:"fecha_creacion"`
}

// Sesion identifica al operador autenticado de una petición
type Sesion struct {
	Username string `json:"username"`
	Nombre   string `json:"nombre"`
	Rol      Rol    `json:"rol"`
}
