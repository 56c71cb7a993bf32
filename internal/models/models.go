package models

import "time"

// ==========================================
// AUTH & USERS
// ==========================================

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleOperator   Role = "operator"
	RoleSupervisor Role = "supervisor"
)

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Nama     string `gorm:"size:150" json:"nama"`

	// kolom password_hash, tidak pernah dikirim ke frontend
	Password string `gorm:"column:password_hash;not null" json:"-"`

	Role      Role      `gorm:"type:varchar(20);not null" json:"role"`
	IsActive  bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RevokedToken menyimpan jti token yang sudah di-logout sebelum kedaluwarsa.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JTI       string    `gorm:"column:jti;size:64;not null;uniqueIndex" json:"jti"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Role  Role   `json:"role"`
}

// All returns every persisted model in migration order.
func All() []any {
	return []any{
		&User{},
		&RevokedToken{},
		&Shift{},
		&CuttingMachine{},
		&FabricType{},
		&ProductionLine{},
		&Customer{},
		&Pattern{},
		&ReportSequence{},
		&CuttingReport{},
		&CuttingDetail{},
		&MaterialWaste{},
		&PerformanceMetrics{},
		&ValidationRecord{},
		&MachineDowntime{},
	}
}
