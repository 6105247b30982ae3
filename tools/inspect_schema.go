// inspect_schema prints the DDL that automatic migration produces for the
// owned salesops tables, using an in-memory sqlite database.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/localnerve/salesops/internal/database"
	"gorm.io/driver/sqlite"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	verbose := flag.Bool("v", false, "log migration SQL")
	flag.Parse()

	level := gormlogger.Silent
	if *verbose {
		level = gormlogger.Info
	}

	db, err := database.Open(sqlite.Open(":memory:"), level)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	var tables []string
	if err := db.Raw("SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name").Scan(&tables).Error; err != nil {
		log.Fatal(err)
	}

	for _, table := range tables {
		fmt.Printf("\n=== Table: %s ===\n", table)
		var ddl []string
		db.Raw("SELECT sql FROM sqlite_master WHERE tbl_name = ? AND sql IS NOT NULL", table).Scan(&ddl)
		for _, stmt := range ddl {
			fmt.Println(stmt + ";")
		}
	}
}
