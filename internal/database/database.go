// Package database opens the Postgres connections behind the repositories.
package database

import (
	"fmt"
	"log/slog"
	"time"

	"feedhub/internal/config"
	"feedhub/internal/middleware"
	"feedhub/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// replica serves repository reads when DB_READ_HOST is set.
var replica *gorm.DB

// Replica returns the read replica, or nil when reads go to the primary.
func Replica() *gorm.DB {
	return replica
}

// endpoint is one Postgres server the API talks to.
type endpoint struct {
	host, port, user, password, name, sslMode string
}

func (e endpoint) dsn() string {
	ssl := e.sslMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		e.host, e.port, e.user, e.password, e.name, ssl)
}

func (e endpoint) open() (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(e.dsn()), &gorm.Config{
		Logger: NewQueryLogger(middleware.Logger),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Connect opens the primary. Outside production the schema is migrated on start.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	primary := endpoint{cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode}
	db, err := primary.open()
	if err != nil {
		return nil, fmt.Errorf("connect database %s: %w", cfg.DBHost, err)
	}
	middleware.Logger.Info("database connected", slog.String("host", cfg.DBHost), slog.String("name", cfg.DBName))

	if cfg.IsProduction() {
		return db, nil
	}
	if err := Migrate(db); err != nil {
		Close(db)
		return nil, err
	}
	return db, nil
}

// ConnectRead opens the optional read replica. It is a no-op without DB_READ_HOST.
func ConnectRead(cfg *config.Config) error {
	if cfg.DBReadHost == "" {
		return nil
	}
	read := endpoint{cfg.DBReadHost, cfg.DBReadPort, cfg.DBReadUser, cfg.DBReadPassword, cfg.DBName, cfg.DBSSLMode}
	db, err := read.open()
	if err != nil {
		return fmt.Errorf("connect read replica %s: %w", cfg.DBReadHost, err)
	}
	replica = db
	middleware.Logger.Info("read replica connected", slog.String("host", cfg.DBReadHost))
	return nil
}

// Migrate creates or updates the users, posts and user_posts tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Post{}, &models.UserPost{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close releases db and the read replica, if one was opened.
func Close(db *gorm.DB) {
	for _, conn := range []*gorm.DB{db, replica} {
		if conn == nil {
			continue
		}
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	replica = nil
}
