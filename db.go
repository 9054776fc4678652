package main

import (
	"database/sql"
	"log"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver
)

func initDB() *sql.DB {
	// Get database URL from environment variable, fallback to default for development
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		connStr = "user=admin password=password dbname=trustfeeddb sslmode=disable"
		log.Println("Warning: DATABASE_URL not set, using default connection string")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("Error connecting to the database:", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatal("Cannot reach the database:", err)
	}
	log.Println("Database connection established successfully")

	// Tables are created from schema.sql at deploy time; see that file for
	// the profiles/decisions definitions and the uniqueness constraint the
	// decision log depends on.
	return db
}
