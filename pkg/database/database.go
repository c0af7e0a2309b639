package database

import (
	"fmt"
	"log"

	"mytestbuddies_backend/internal/config"
	"mytestbuddies_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
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
		Logger: logger.Default.LogMode(logger.Warn),
		// Surface MySQL 1062 as gorm.ErrDuplicatedKey so callers can
		// recover from unique-index conflicts.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Field{},
		&model.Question{},
		&model.QuizAttempt{},
		&model.AttemptAnswer{},
		&model.Payment{},
	)
	if err != nil {
		return err
	}

	log.Println("Database migration completed")

	// Seed a starter field so a fresh install has something to show.
	var count int64
	db.Model(&model.Field{}).Count(&count)
	if count == 0 {
		db.Create(&model.Field{
			Name:                   "General Aptitude",
			Description:            "Mixed practice questions across exam topics",
			Audience:               "general",
			DefaultTimePerQuestion: 30,
		})
	}

	return nil
}
