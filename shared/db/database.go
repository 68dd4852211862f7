package db

import (
	"database/sql"
)

// Database is a connection that can be opened, closed and handed to repositories.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
}
