// Command migrate applies schema migrations to either store.
//
//	migrate -target write up
//	migrate -target read up
//	migrate -target write down 1
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"github.com/velopay/walletd/internal/config"
)

func main() {
	var (
		target      string
		databaseURL string
		command     string
		steps       int
	)

	flag.StringVar(&target, "target", "write", "Which store to migrate: write or read")
	flag.StringVar(&databaseURL, "database-url", "", "Override the connection URL from config")
	flag.StringVar(&command, "command", "up", "Migration command: up, down, version, force, drop")
	flag.IntVar(&steps, "steps", 0, "Number of steps for up/down (0 = all)")
	flag.Parse()

	_ = godotenv.Load()

	var migrationsPath string
	switch target {
	case "write":
		migrationsPath = "./migrations/write"
	case "read":
		migrationsPath = "./migrations/read"
	default:
		log.Fatalf("unknown target %q: use write or read", target)
	}

	if databaseURL == "" {
		cfg, err := config.Load("configs", "config")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		if target == "write" {
			databaseURL = cfg.WriteDB.DSN()
		} else {
			databaseURL = cfg.ReadDB.DSN()
		}
	}

	args := flag.Args()
	if len(args) > 0 {
		command = args[0]
	}
	if len(args) > 1 {
		var err error
		steps, err = strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("invalid steps argument: %v", err)
		}
	}

	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		log.Fatalf("failed to create migrate instance: %v", err)
	}
	defer m.Close()

	switch command {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migration up failed: %v", err)
		}
		fmt.Printf("%s store migrations applied\n", target)

	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migration down failed: %v", err)
		}
		fmt.Printf("%s store migrations rolled back\n", target)

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Println("no migrations applied yet")
				return
			}
			log.Fatalf("failed to get version: %v", err)
		}
		fmt.Printf("current version: %d (dirty: %v)\n", version, dirty)

	case "force":
		if len(args) < 2 {
			log.Fatal("force requires a version argument")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("invalid version: %v", err)
		}
		if err := m.Force(version); err != nil {
			log.Fatalf("force failed: %v", err)
		}
		fmt.Printf("forced version to %d\n", version)

	case "drop":
		if err := m.Drop(); err != nil {
			log.Fatalf("drop failed: %v", err)
		}
		fmt.Println("all tables dropped")

	default:
		log.Fatalf("unknown command %q: use up, down, version, force, drop", command)
	}
}
