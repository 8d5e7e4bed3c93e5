package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config carries every environment-sourced setting. It is built once in main
// and handed to each constructor; no package holds its own copy of the
// environment.
type Config struct {
	Port          string
	MongoURI      string
	MongoDatabase string
	JWTSecret     string
	AWS           AWSConfig
	SMTP          SMTPConfig
}

// AWSConfig holds the S3 credentials for the product image store.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// SMTPConfig holds the mail account used for OTP delivery.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Load reads .env (if present) and builds the configuration from the
// environment.
func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		logrus.Info("no .env file, reading environment directly")
	}

	return &Config{
		Port:          getEnv("PORT", "3000"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "threadkart"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("AWS_S3_BUCKET", "threadkart-product-images"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("EMAIL_USER", ""),
			Password: getEnv("EMAIL_PASS", ""),
			From:     getEnv("EMAIL_USER", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
