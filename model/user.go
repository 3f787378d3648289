package model

// Role describes what an employee is allowed to do and how the assistant
// should address them.
type Role struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Code        string   `json:"code"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
	ChatContext string   `json:"chat_context,omitempty"`
	IsActive    bool     `json:"is_active"`
}

// Employee is the profile record nested inside a User.
type Employee struct {
	ID         int    `json:"id"`
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email,omitempty"`
	Role       int    `json:"role"`
	RoleName   string `json:"role_name"`
	RoleCode   string `json:"role_code"`
	RoleDetail Role   `json:"role_details"`
	Department string `json:"department,omitempty"`
	IsActive   bool   `json:"is_active"`
	Username   string `json:"username"`
	UserEmail  string `json:"user_email"`
	CreatedAt  string `json:"created_at"`
}

// User is the identity record returned by the login and profile endpoints.
// Immutable for the session once loaded; re-authentication replaces it wholesale.
type User struct {
	ID        int      `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Employee  Employee `json:"employee"`
}

// LoginRequest is the credential payload for the employee login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is what the backend returns on a successful login.
type LoginResponse struct {
	Success bool   `json:"success"`
	User    User   `json:"user"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
