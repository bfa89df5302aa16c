package db

import (
	"fmt"
	"time"

	"github.com/himalthapa1/EduConnect/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Connect 根据驱动建立数据库连接。Postgres 带有简单的重试来等待容器就绪。
func Connect(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case DriverPostgres:
		return connectPostgres(dsn)
	case DriverSQLite:
		return OpenSQLite(dsn)
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

func connectPostgres(dsn string) (*gorm.DB, error) {
	var gdb *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		gdb, err = gorm.Open(postgres.Open(dsn), gormConfig())
		if err == nil {
			sqlDB, err2 := gdb.DB()
			if err2 == nil {
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetMaxOpenConns(20)
				sqlDB.SetConnMaxLifetime(time.Hour)
				return gdb, nil
			}
			err = err2
		}
		time.Sleep(time.Duration(500+i*200) * time.Millisecond)
	}
	return nil, fmt.Errorf("connect postgres: %w", err)
}

// OpenSQLite 打开 sqlite 数据库，本地开发与测试使用。
// sqlite 只允许单写者，连接池限制为 1。
func OpenSQLite(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return gdb, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
}

// Migrate 自动迁移聊天涉及的全部表结构。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.StudyGroup{},
		&models.GroupMember{},
		&models.StudySession{},
		&models.SessionParticipant{},
		&models.Message{},
		&models.PollOption{},
		&models.PollVote{},
	)
}
