package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/easybuy/backend/internal/models"
)

type Config struct {
	PORT      string
	LOG_LEVEL string

	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	JWT_SECRET string

	STRIPE_SECRET  string
	STRIPE_WEBHOOK string

	FRONTEND_URL string

	KAFKA_ADDRESS string

	S3_BUCKET   string
	S3_REGION   string
	S3_KEY      string
	S3_SECRET   string
	S3_ENDPOINT string
	S3_URL      string

	SMTP_HOST string
	SMTP_PORT string
	SMTP_USER string
	SMTP_PASS string
	SMTP_FROM string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		PORT:           getenv("PORT", "4000"),
		LOG_LEVEL:      getenv("LOG_LEVEL", "info"),
		DB_HOST:        os.Getenv("DB_HOST"),
		DB_PORT:        os.Getenv("DB_PORT"),
		DB_USER:        os.Getenv("DB_USER"),
		DB_PASSWORD:    os.Getenv("DB_PASSWORD"),
		DB_NAME:        os.Getenv("DB_NAME"),
		ES_URL:         os.Getenv("ES_URL"),
		ES_USER:        os.Getenv("ES_USER"),
		ES_PASSWORD:    os.Getenv("ES_PASSWORD"),
		JWT_SECRET:     os.Getenv("JWT_SECRET"),
		STRIPE_SECRET:  os.Getenv("STRIPE_SECRET"),
		STRIPE_WEBHOOK: os.Getenv("STRIPE_WEBHOOK"),
		FRONTEND_URL:   os.Getenv("FRONTEND_URL"),
		KAFKA_ADDRESS:  os.Getenv("KAFKA_ADDRESS"),
		S3_BUCKET:      os.Getenv("S3_BUCKET"),
		S3_REGION:      getenv("S3_REGION", "eu-central-1"),
		S3_KEY:         os.Getenv("S3_KEY"),
		S3_SECRET:      os.Getenv("S3_SECRET"),
		S3_ENDPOINT:    os.Getenv("S3_ENDPOINT"),
		S3_URL:         os.Getenv("S3_URL"),
		SMTP_HOST:      os.Getenv("SMTP_HOST"),
		SMTP_PORT:      getenv("SMTP_PORT", "587"),
		SMTP_USER:      os.Getenv("SMTP_USER"),
		SMTP_PASS:      os.Getenv("SMTP_PASS"),
		SMTP_FROM:      getenv("SMTP_FROM", "noreply@easybuy.app"),
	}

	return config, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func InitDB() (*gorm.DB, error) {
	configuration, _ := LoadConfig()

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		configuration.DB_USER, configuration.DB_PASSWORD,
		configuration.DB_HOST, configuration.DB_PORT, configuration.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.FeaturedProduct{},
		&models.Order{},
		&models.OrderItem{},
		&models.Subscriber{},
	)
}
