package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tomyedwab/sqlserial/connection"
)

func main() {
	dbPath := flag.String("db", ":memory:", "Path to the SQLite database file")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	conn, err := connection.Open(connection.Config{DataSourceName: *dbPath})
	if err != nil {
		logger.Error("Failed to open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Printf("Connected to %s. Meta commands: .begin .commit .rollback .level .quit\n", *dbPath)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("sql> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ".") {
			if !runMeta(conn, line) {
				break
			}
			continue
		}
		runStatement(conn, line)
	}
	if err := scanner.Err(); err != nil {
		logger.Error("Failed to read input", "error", err)
	}
}

// runMeta handles dot-prefixed shell commands. It returns false when the
// shell should exit.
func runMeta(conn *connection.Connection, line string) bool {
	var err error
	switch line {
	case ".begin":
		err = conn.Begin()
	case ".commit":
		err = conn.Commit()
	case ".rollback":
		err = conn.Rollback()
	case ".level":
		fmt.Printf("transaction nesting level: %d\n", conn.Level())
		return true
	case ".quit", ".exit":
		return false
	default:
		fmt.Printf("unknown command: %s\n", line)
		return true
	}
	if err != nil {
		fmt.Printf("error: %v\n", err)
	}
	return true
}

func runStatement(conn *connection.Connection, line string) {
	keyword := strings.ToUpper(firstWord(line))
	if keyword == "SELECT" || keyword == "PRAGMA" || keyword == "WITH" {
		rows, err := conn.Query(line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		for _, row := range rows {
			out, err := json.Marshal(row)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				return
			}
			fmt.Println(string(out))
		}
		fmt.Printf("%d row(s)\n", len(rows))
		return
	}

	result, err := conn.Execute(line)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("ok (%d row(s) affected)\n", result.RowsAffected)
}

func firstWord(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
