package domain

// Actor аутентифицированный пользователь, от имени которого выполняется операция
type Actor struct {
	UserID string
	Email  string
	Role   Role
}

// IsAdmin true для администраторов
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
