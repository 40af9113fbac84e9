package models

// ===== REQUEST DTOs =====

// EscaneoRequest DTO para registrar un escaneo
type EscaneoRequest struct {
	Codigo   string `json:"codigo" validate:"required"`
	Cantidad int    `json:"cantidad" validate:"required,gt=0"`
}

// ProductoRequest DTO para crear o reemplazar un producto del catálogo
type ProductoRequest struct {
	Codigo       string `json:"codigo" validate:"required"`
	Nombre       string `json:"nombre" validate:"required"`
	Marca        string `json:"marca"`
	Area         string `json:"area"`
	StockSistema int    `json:"stock_sistema" validate:"gte=0"`
}

// ToProducto convierte el request en un producto activo
func (r ProductoRequest) ToProducto() Producto {
	return Producto{
		Codigo:       r.Codigo,
		Nombre:       r.Nombre,
		Marca:        r.Marca,
		Area:         r.Area,
		StockSistema: r.StockSistema,
		Activo:       true,
	}
}

// LoteProductosRequest DTO para carga masiva en JSON
type LoteProductosRequest struct {
	Productos []ProductoRequest `json:"productos" validate:"required,min=1"`
}

// MarcaRequest DTO para crear una marca
type MarcaRequest struct {
	Nombre string `json:"nombre" validate:"required"`
}

// ReiniciarConteoRequest DTO para borrar los escaneos de un día
type ReiniciarConteoRequest struct {
	Dia     string `json:"dia"`
	Usuario string `json:"usuario"`
}

// LoginRequest DTO de inicio de sesión
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CrearUsuarioRequest DTO para dar de alta un operador
type CrearUsuarioRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Nombre   string `json:"nombre" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Rol      Rol    `json:"rol" validate:"required,oneof=consulta inventario admin"`
}

// ===== RESPONSE DTOs =====

// ProductoError error de un registro dentro de una carga masiva
type ProductoError struct {
	Index  int    `json:"index"`
	Codigo string `json:"codigo"`
	Error  string `json:"error"`
}

// ResultadoLote resultado de una carga masiva
type ResultadoLote struct {
	Procesados int             `json:"procesados"`
	Exitosos   int             `json:"exitosos"`
	Fallidos   int             `json:"fallidos"`
	Errores    []ProductoError `json:"errores"`
}

// LoginResponse token emitido al iniciar sesión
type LoginResponse struct {
	Token   string `json:"token"`
	Usuario Sesion `json:"usuario"`
	Expira  string `json:"expira"`
}
