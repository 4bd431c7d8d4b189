package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kaglah/ripple-server/cmd/api"
	"github.com/kaglah/ripple-server/cmd/models"
	"github.com/kaglah/ripple-server/cmd/utils"
	"github.com/kaglah/ripple-server/db"
)

func main() {
	godotenv.Load()
	logger := utils.NewLogger(os.Getenv("APP_ENV"))

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations(logger)
			return
		case "clear-db":
			runDatabaseClear(logger)
			return
		default:
			logger.Fatalf("Unknown command: %s", os.Args[1])
		}
	}

	startServer(logger)
}

func runMigrations(logger *logrus.Logger) {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		logger.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		logger.Info("Database connection closed")
	}()
	logger.Info("Connected to the database for migrations")

	if err := performMigrations(DB, logger); err != nil {
		logger.Fatalf("Migration error: %v", err)
	}
	logger.Info("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB, logger *logrus.Logger) error {

	migrations := map[interface{}]string{
		&models.User{}:   "User",
		&models.Post{}:   "Post",
		&models.Like{}:   "Like",
		&models.Follow{}: "Follow",
	}

	logger.Info("Starting database migrations...")
	for model, name := range migrations {
		logger.Infof("Migrating %s table...", name)
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", name, err)
		}
		logger.Infof("%s migration successful", name)
	}

	return nil
}

func startServer(logger *logrus.Logger) {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		logger.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		logger.Info("Database connection closed")
	}()
	logger.Info("Connected to the database")

	// Graceful shutdown setup
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, DB, logger)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Server error: %v", err)
		}
	}()
	logger.Infof("Server running on port %s", port)

	<-quit
	logger.Info("Shutting down server...")
}

func runDatabaseClear(logger *logrus.Logger) {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		logger.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		logger.Info("Database connection closed")
	}()

	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)

	if confirmation != "yes" {
		logger.Info("Database clearing cancelled.")
		return
	}

	// Drop relationship tables before the entities they reference.
	tables := []interface{}{
		&models.Like{},
		&models.Follow{},
		&models.Post{},
		&models.User{},
	}

	logger.Info("Dropping tables...")
	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			logger.Warnf("Warning dropping table %T: %v", table, err)
		} else {
			logger.Infof("Table %T dropped", table)
		}
	}

	logger.Info("Database cleared successfully")
}
