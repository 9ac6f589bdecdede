package repository

import (
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func OpenDB(dsn string) (*gorm.DB, error) {
	return open(postgres.Open(dsn))
}

// OpenSQLite 用于本地开发与测试，dsn 形如 "file::memory:?cache=shared"。
func OpenSQLite(dsn string) (*gorm.DB, error) {
	return open(sqlite.Open(dsn))
}

func open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
}

// Migrate 建表。developer_profiles 在生产环境由账户服务建好，这里仅在缺失时补建。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AppSubmissionModel{},
		&ProcessingJobModel{},
		&DeveloperProfileModel{},
		&AppAssetModel{},
	)
}
