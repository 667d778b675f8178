package db

import (
	"fmt"
	"sync/atomic"

	"feedback360/config"
	"feedback360/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"go.uber.org/zap"
)

// Logger is what gorm's SetLogger accepts.
type Logger interface {
	Print(v ...interface{})
}

// Connect opens the database named in conf.Database: "postgres", "memory"
// or sqlite3 (default) at conf.DbPath.
func Connect(conf config.Configuration, log *zap.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch conf.Database {
	case "postgres", "postgresql":
		log.Info("using postgresql connection", zap.String("host", conf.DbHost), zap.String("db", conf.DbName))
		path := "host=" + conf.DbHost + " port=" + conf.DbPort
		path += " user=" + conf.DbUser + " dbname=" + conf.DbName
		path += " password=" + conf.DbPass + " sslmode=disable"
		db, err = gorm.Open("postgres", path)
	case "memory":
		log.Info("using in-memory sqlite3 connection")
		return ConnectMemory()
	default:
		path := conf.DbPath
		if path == "" {
			path = "db/database.db"
		}
		log.Info("using sqlite3 connection", zap.String("path", path))
		db, err = gorm.Open("sqlite3", path+"?_foreign_keys=1&_busy_timeout=5000")
		if err == nil {
			// sqlite serializes writers; one connection avoids SQLITE_BUSY under load
			db.DB().SetMaxOpenConns(1)
		}
	}

	if err != nil {
		log.Error("could not connect to database", zap.Error(err))
		return nil, err
	}

	db.LogMode(conf.DbDebug)
	return db, nil
}

var memSeq int64

// ConnectMemory opens a fresh, isolated in-memory sqlite database with the
// schema already migrated.
func ConnectMemory() (*gorm.DB, error) {
	n := atomic.AddInt64(&memSeq, 1)
	db, err := gorm.Open("sqlite3", fmt.Sprintf("file:feedback360_mem%d?mode=memory&cache=shared", n))
	if err != nil {
		return nil, err
	}
	db.DB().SetMaxOpenConns(1)
	db.LogMode(false)
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Person{},
		&models.Question{},
		&models.SurveyBatch{},
		&models.Survey{},
		&models.SurveyQuestion{},
		&models.LinkToken{},
		&models.Response{},
		&models.ReviewSummary{},
	).Error
}

// UseLogger installs l as the gorm logger.
func UseLogger(db *gorm.DB, l Logger) {
	db.SetLogger(l)
}
