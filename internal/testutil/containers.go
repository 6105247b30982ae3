// containers.go
//
// Sales operations data service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of salesops.
// salesops is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// salesops is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with salesops.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.


package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/localnerve/salesops/data"
	"github.com/localnerve/salesops/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	mariaDBPort     = "3306/tcp"
	mariaDBDatabase = "salesops"
	mariaDBUser     = "salesops"
	mariaDBPassword = "salesops"
)

// MariaDB is a running MariaDB container prepared for the service
type MariaDB struct {
	Container testcontainers.Container
	Config    *config.Config
}

// Terminate stops the container
func (m *MariaDB) Terminate(ctx context.Context) error {
	if m.Container == nil {
		return nil
	}
	return m.Container.Terminate(ctx)
}

// StartMariaDB starts the image named by DB_IMAGE, waits until it accepts
// connections and creates the upstream simulation table.
func StartMariaDB(ctx context.Context) (*MariaDB, error) {
	image := os.Getenv("DB_IMAGE")
	if image == "" {
		return nil, fmt.Errorf("DB_IMAGE is not set")
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{mariaDBPort},
			Env: map[string]string{
				"MARIADB_ROOT_PASSWORD": "rootpass",
				"MARIADB_DATABASE":      mariaDBDatabase,
				"MARIADB_USER":          mariaDBUser,
				"MARIADB_PASSWORD":      mariaDBPassword,
			},
			WaitingFor: wait.ForListeningPort(mariaDBPort).WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start MariaDB: %w", err)
	}
	m := &MariaDB{Container: container}

	host, err := container.Host(ctx)
	if err != nil {
		_ = m.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, mariaDBPort)
	if err != nil {
		_ = m.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	m.Config = &config.Config{
		AppEnv:            "dev",
		Profiles:          []string{"test"},
		DBType:            "mariadb",
		DBHost:            host,
		DBPort:            port.Port(),
		DBDatabase:        mariaDBDatabase,
		DBUser:            mariaDBUser,
		DBPassword:        mariaDBPassword,
		DBConnectionLimit: 10,
		DBHealthQuery:     "SELECT 1",
		QuoteSeqWidth:     3,
	}

	if err := initMariaDB(ctx, m.Config); err != nil {
		_ = m.Terminate(ctx)
		return nil, err
	}
	return m, nil
}

func initMariaDB(ctx context.Context, cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBDatabase)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open MariaDB for setup: %w", err)
	}
	defer db.Close()

	// The port opens before the server accepts logins
	for i := 0; i < 30; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	if err != nil {
		return fmt.Errorf("MariaDB not ready after 30 seconds: %w", err)
	}

	for _, stmt := range splitSQL(data.InitdbMariaDBSimulation) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w : when executing > %s", err, stmt)
		}
	}
	return nil
}

// splitSQL drops "--" comment lines and splits on statement terminators
func splitSQL(script string) []string {
	var lines []string
	for _, l := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(l), "--") {
			continue
		}
		lines = append(lines, l)
	}
	var out []string
	for _, stmt := range strings.Split(strings.Join(lines, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
