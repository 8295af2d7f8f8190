// Package protocol defines the portal API request/response types.
package protocol

import "time"

// Package describes a catalog entry: a versioned tool or course material.
type Package struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Version       string    `json:"version"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category"`
	ContentType   string    `json:"content_type"` // "tool" or "material"
	CourseName    string    `json:"course_name,omitempty"`
	FileSize      int64     `json:"file_size"`
	BLAKE3Hash    string    `json:"blake3_hash"`
	SHA256Hash    string    `json:"sha256_hash"`
	DownloadURL   string    `json:"download_url,omitempty"`
	Platform      string    `json:"platform"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DownloadStats is one row of GET /api/stats, ordered by download count.
type DownloadStats struct {
	PackageID      int64     `json:"package_id"`
	PackageName    string    `json:"package_name"`
	TotalDownloads int       `json:"total_downloads"`
	LastDownload   time.Time `json:"last_download,omitempty"`
}

// User is the profile embedded in auth responses and GET /api/auth/me.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
	IsAdmin  bool   `json:"is_admin"`
}

// AuthResponse is the session shape returned by register, login, refresh
// and the OAuth2 callback exchange.
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

// RegisterRequest is the body for POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// RefreshRequest is the body for POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ResetRequest is the body for POST /api/auth/request-reset.
type ResetRequest struct {
	Email string `json:"email"`
}

// ResetConfirmRequest is the body for POST /api/auth/reset-password.
type ResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ChangePasswordRequest is the body for POST /api/auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// MessageResponse carries an informational message (e.g. reset request).
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is returned on API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DuplicateCheckResponse is returned by GET /api/check-duplicate.
// Package is set only when Duplicate is true.
type DuplicateCheckResponse struct {
	Duplicate bool     `json:"duplicate"`
	Package   *Package `json:"package,omitempty"`
}

// OAuth2ConfigResponse is the capability probe result of GET /api/oauth2/config.
type OAuth2ConfigResponse struct {
	Enabled bool `json:"enabled"`
}

// OAuth2LoginResponse carries the provider redirect URL.
type OAuth2LoginResponse struct {
	AuthURL string `json:"auth_url"`
}

// ArchiveEntry is one file inside an uploaded archive,
// as listed by GET /api/archive/contents.
type ArchiveEntry struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	IsDir bool   `json:"is_dir"`
}
