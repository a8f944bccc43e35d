// Package setup wires the external infrastructure: MySQL through GORM and
// Redis. Connections are returned to the caller instead of held in globals so
// the bootstrap layer owns their lifecycle.
package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQLConfig holds the MySQL connection parameters.
type MySQLConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Database string
}

// DSN builds the MySQL connection string.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// InitDB opens the MySQL connection and configures the pool.
func InitDB(cfg MySQLConfig) (*gorm.DB, error) {
	if cfg.User == "" {
		return nil, fmt.Errorf("setup: MYSQL_USER not set")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("setup: MYSQL_PASSWORD not set")
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("setup: failed to connect to MySQL at %s:%s: %w", cfg.Host, cfg.Port, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("setup: failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logrus.Info("MySQL connected")
	return db, nil
}

// RedisConfig holds the Redis connection parameters.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// InitRedis opens the Redis connection and verifies it with a ping.
func InitRedis(cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxConnAge:   30 * time.Minute,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("setup: failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	logrus.Info("Redis connected")
	return client, nil
}
