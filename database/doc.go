// Package database opens GORM connections with retrying connects, pooled
// connections and a gorm logger bridged to the structured logger.
//
// SQLite is the built-in driver; other gorm dialectors can be passed to
// Open directly. The report database sink stores execution reports here.
//
//	database:
//	  enabled: true
//	  driver: sqlite
//	  dsn: "file:datapipe.db?_busy_timeout=5000"
//	  auto_migrate: true
package database
