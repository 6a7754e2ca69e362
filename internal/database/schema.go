package database

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

var (
	//go:embed schema/mysql.sql
	mysqlSchema string

	//go:embed schema/postgres.sql
	postgresSchema string
)

// Schema returns the DDL for the driver's tables.
func Schema(driverName string) (string, error) {
	switch driverName {
	case "mysql":
		return mysqlSchema, nil
	case "postgres":
		return postgresSchema, nil
	}
	return "", fmt.Errorf("no schema for driver %q", driverName)
}

// Statements splits DDL on ';' and drops comment-only chunks.
func Statements(ddl string) []string {
	var stmts []string
	for _, chunk := range strings.Split(ddl, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		if stmt := strings.TrimSpace(strings.Join(lines, "\n")); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// Migrate creates any missing tables. Every statement is idempotent.
func Migrate(ctx context.Context, q Queryer) (int, error) {
	ddl, err := Schema(q.DriverName())
	if err != nil {
		return 0, err
	}
	stmts := Statements(ddl)
	for i, stmt := range stmts {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return i, fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return len(stmts), nil
}
