package model

// Role is the backend's id_rol.
type Role int

const (
	RoleAdmin   Role = 1
	RoleDriver  Role = 2
	RoleBranch  Role = 3
	RoleCourier Role = 4
)

// DefaultBranchName is shown when the session has no branches.
const DefaultBranchName = "Sin nombre"

type Branch struct {
	ID      Int    `json:"id_sucursal,omitempty"`
	Name    string `json:"nombre_sucursal"`
	Address string `json:"direccion,omitempty"`
	City    string `json:"ciudad,omitempty"`
	Phone   string `json:"telefono,omitempty"`
}

// Session is the authenticated actor persisted after login.
type Session struct {
	UserID     Int      `json:"id"`
	Email      string   `json:"email"`
	Role       Role     `json:"id_rol"`
	Token      string   `json:"token"`
	Branches   []Branch `json:"sucursales"`
	BranchName string   `json:"sucursalNombre"`
}

// WithDefaults fills absent fields and derives BranchName from the
// primary branch.
func (s Session) WithDefaults() Session {
	if s.Branches == nil {
		s.Branches = []Branch{}
	}
	s.BranchName = DefaultBranchName
	if len(s.Branches) > 0 && s.Branches[0].Name != "" {
		s.BranchName = s.Branches[0].Name
	}
	return s
}

type User struct {
	ID    Int    `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"id_rol"`
	Name  string `json:"name,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User     User     `json:"user"`
	Token    string   `json:"token"`
	Branches []Branch `json:"sucursales"`
}

// Session builds the session to persist from a login response.
func (r LoginResponse) Session() Session {
	return Session{
		UserID:   r.User.ID,
		Email:    r.User.Email,
		Role:     r.User.Role,
		Token:    r.Token,
		Branches: r.Branches,
	}.WithDefaults()
}
