package types

// LoginResponse is returned by the user supervisor on a login attempt.
// Token is filled in by the HTTP layer after a successful login.
type LoginResponse struct {
	Success  bool   `json:"success"`
	Token    string `json:"token,omitempty"`
	Error    string `json:"error,omitempty"`
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}
