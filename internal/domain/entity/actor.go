package entity

// Actor identifica quién ejecuta una operación fiscal. Lo construye la capa HTTP
// a partir del token y la petición, y se pasa explícitamente a cada caso de uso.
type Actor struct {
	CompanyID string
	UserID    string
	IP        string
	UserAgent string
}
