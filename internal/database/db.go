package database

import (
	"log"

	"backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.Tenant{},
		&model.Role{},
		&model.Permission{},
		&model.ModuleGrant{},
		&model.FieldGrant{},
		&model.User{},
		&model.RefreshToken{},
		&model.Note{},
		&model.Lead{},
		&model.Project{},
		&model.Student{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// SeedDefaultTenant makes sure one tenant row exists so tenant-scoped roles
// and records have somewhere to point on a fresh database.
func SeedDefaultTenant(db *gorm.DB) error {
	tenant := model.Tenant{Name: "Default", Slug: "default", IsActive: true}
	return db.Where(model.Tenant{Slug: "default"}).FirstOrCreate(&tenant).Error
}
