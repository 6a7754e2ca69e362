package database

import "strings"

// RandomFunc returns the SQL random-ordering function for the driver.
func RandomFunc(driverName string) string {
	if driverName == "postgres" {
		return "RANDOM()"
	}
	return "RAND()"
}

// Upsert builds an INSERT that overwrites updateCols when the row keyed by
// conflictCol already exists. Placeholders use ? and must be rebound.
func Upsert(driverName, table, conflictCol string, cols, updateCols []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	b.WriteString(")")

	sets := make([]string, len(updateCols))
	if driverName == "postgres" {
		for i, c := range updateCols {
			sets[i] = c + " = EXCLUDED." + c
		}
		b.WriteString(" ON CONFLICT (" + conflictCol + ") DO UPDATE SET ")
	} else {
		for i, c := range updateCols {
			sets[i] = c + " = VALUES(" + c + ")"
		}
		b.WriteString(" ON DUPLICATE KEY UPDATE ")
	}
	b.WriteString(strings.Join(sets, ", "))
	return b.String()
}
