package database

import (
	"bilan_backend/internal/config"
	"bilan_backend/internal/model"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ShouldMigrate decides whether InitDB runs AutoMigrate: always outside
// release mode, and in release mode only when forced via the -migrate flag.
func ShouldMigrate(mode string, force bool) bool {
	return force || mode != "release"
}

func InitDB(cfg *config.DatabaseConfig, migrate bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if !migrate {
		return db, nil
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Organization{},
		&model.Assessment{},
		&model.AssessmentDraft{},
		&model.StepRecord{},
		&model.Competency{},
		&model.Document{},
		&model.AuditLog{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// Seed a default organization so self-registered beneficiaries have a home.
	var orgCount int64
	db.Model(&model.Organization{}).Count(&orgCount)
	if orgCount == 0 {
		db.Create(&model.Organization{
			Name: "Organisation par défaut",
		})
	}

	return db, nil
}
