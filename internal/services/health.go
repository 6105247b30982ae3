package services

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"
	"time"

	"github.com/localnerve/salesops/internal/config"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/utils"
	"gorm.io/gorm"
)

// Health statuses
const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// DBHealth is the database health report
type DBHealth struct {
	Status          string   `json:"status"`
	Timestamp       string   `json:"timestamp,omitempty"`
	Profiles        []string `json:"profiles,omitempty"`
	Query           string   `json:"query,omitempty"`
	DatabaseProduct string   `json:"databaseProduct,omitempty"`
	DatabaseVersion string   `json:"databaseVersion,omitempty"`
	DriverName      string   `json:"driverName,omitempty"`
	DriverVersion   string   `json:"driverVersion,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// HealthCheckResult is the overall report printed by the healthcheck command
type HealthCheckResult struct {
	Status     string   `json:"status"`
	Database   DBHealth `json:"database"`
	Authorizer string   `json:"authorizer,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type HealthService struct {
	cfg *config.Config
	db  *gorm.DB
	log *logger.Logger
}

func NewHealthService(cfg *config.Config, db *gorm.DB, baseLog *logger.Logger) *HealthService {
	return &HealthService{cfg: cfg, db: db, log: baseLog.With("service", "HealthService")}
}

// CheckDB probes the database with the configured health query and reports
// product and driver details. Failures are reported as DOWN, never returned.
func (s *HealthService) CheckDB(ctx context.Context) (result DBHealth) {
	defer func() {
		if r := recover(); r != nil {
			result = s.down(fmt.Errorf("health check panicked: %v", r))
		}
	}()

	sqlDB, err := s.db.DB()
	if err != nil {
		return s.down(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return s.down(err)
	}

	query := s.cfg.DBHealthQuery
	var probe interface{}
	if err := sqlDB.QueryRowContext(ctx, query).Scan(&probe); err != nil {
		return s.down(fmt.Errorf("health query failed: %w", err))
	}

	dialect := s.db.Dialector.Name()
	version := ""
	if vq := versionQuery(dialect); vq != "" {
		if err := sqlDB.QueryRowContext(ctx, vq).Scan(&version); err != nil {
			return s.down(fmt.Errorf("version query failed: %w", err))
		}
	}

	driverType := reflect.TypeOf(sqlDB.Driver())
	if driverType.Kind() == reflect.Pointer {
		driverType = driverType.Elem()
	}
	driverPkg := driverType.PkgPath()
	return DBHealth{
		Status:          StatusUp,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Profiles:        s.cfg.Profiles,
		Query:           query,
		DatabaseProduct: productName(dialect, version),
		DatabaseVersion: version,
		DriverName:      driverPkg,
		DriverVersion:   moduleVersion(driverPkg),
	}
}

func (s *HealthService) down(err error) DBHealth {
	s.log.Error("database health check failed", "error", err)
	return DBHealth{Status: StatusDown, Error: err.Error()}
}

// Check reports the database and, when configured, Authorizer reachability
func (s *HealthService) Check(ctx context.Context) HealthCheckResult {
	result := HealthCheckResult{Status: StatusUp, Database: s.CheckDB(ctx)}
	if result.Database.Status != StatusUp {
		result.Status = StatusDown
		result.Error = "database: " + result.Database.Error
	}

	if s.cfg.AuthEnabled() {
		if err := utils.PingAuthorizer(ctx, s.cfg.AuthzURL); err != nil {
			result.Status = StatusDown
			result.Authorizer = "unreachable"
			if result.Error != "" {
				result.Error += "; "
			}
			result.Error += "authorizer: " + err.Error()
			s.log.Error("authorizer ping failed", "url", s.cfg.AuthzURL, "error", err)
		} else {
			result.Authorizer = "ok"
		}
	}
	return result
}

func versionQuery(dialect string) string {
	switch dialect {
	case "mysql":
		return "SELECT VERSION()"
	case "postgres":
		return "SHOW server_version"
	case "sqlite":
		return "SELECT sqlite_version()"
	case "sqlserver":
		return "SELECT CAST(SERVERPROPERTY('ProductVersion') AS NVARCHAR(128))"
	}
	return ""
}

func productName(dialect, version string) string {
	switch dialect {
	case "mysql":
		if strings.Contains(strings.ToLower(version), "mariadb") {
			return "MariaDB"
		}
		return "MySQL"
	case "postgres":
		return "PostgreSQL"
	case "sqlite":
		return "SQLite"
	case "sqlserver":
		return "Microsoft SQL Server"
	}
	return dialect
}

// moduleVersion finds the build version of the module that provides pkg
func moduleVersion(pkg string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	best, version := "", "unknown"
	for _, dep := range info.Deps {
		if (pkg == dep.Path || strings.HasPrefix(pkg, dep.Path+"/")) && len(dep.Path) > len(best) {
			best, version = dep.Path, dep.Version
			if dep.Replace != nil {
				version = dep.Replace.Version
			}
		}
	}
	return version
}
