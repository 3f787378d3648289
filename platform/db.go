package platform

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	DB *gorm.DB
)

// Config 包含数据库连接的配置信息
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// InitDB opens the durable store database. The default is a local sqlite
// file, which matches the single-device nature of the client; DB_DRIVER=mysql
// switches to a shared server using the SQL_* variables.
func InitDB() {
	var (
		db  *gorm.DB
		err error
	)

	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	switch os.Getenv("DB_DRIVER") {
	case "mysql":
		config := Config{
			Host:     os.Getenv("SQL_HOST"),
			Port:     os.Getenv("SQL_PORT"),
			User:     os.Getenv("SQL_USER"),
			Password: os.Getenv("SQL_PASSWORD"),
			DBName:   os.Getenv("SQL_DBNAME"),
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			config.User, config.Password, config.Host, config.Port, config.DBName)
		db, err = gorm.Open(mysql.Open(dsn), gormCfg)
	default:
		path := os.Getenv("DB_PATH")
		if path == "" {
			path = "renochat.db"
		}
		db, err = gorm.Open(sqlite.Open(path), gormCfg)
	}

	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
		return
	}
	DB = db
	return
}
