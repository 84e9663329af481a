package main

import (
	"context"
	"delivery-fleet-sim/internal/adapters/assignments"
	"delivery-fleet-sim/internal/adapters/repositories"
	"delivery-fleet-sim/internal/config"
	"delivery-fleet-sim/internal/platform/db"
	"flag"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// fleettool prepares backing stores for local runs: it creates the route
// cache schema and seeds pending missions into Redis.
func main() {
	initSchema := flag.Bool("init-schema", false, "create the route cache table (needs DATABASE_URL)")
	seedPath := flag.String("seed", "", "JSON file of mission records to write to the assignment store")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	if !*initSchema && *seedPath == "" {
		log.Fatal("nothing to do: pass -init-schema and/or -seed <file>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if *initSchema {
		databaseURL := config.Get("DATABASE_URL", "")
		if strings.TrimSpace(databaseURL) == "" {
			log.Fatal("DATABASE_URL is required")
		}

		conn, err := db.Open(databaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()

		log.Println("Initializing database schema...")
		if err := repositories.InitSchema(ctx, conn); err != nil {
			log.Fatalf("schema initialization failed: %v", err)
		}
		log.Println("Schema ready.")
	}

	if *seedPath != "" {
		rdb := assignments.MustRedis(config.Get("REDIS_URL", "redis://localhost:6379/0"))
		defer rdb.Close()
		source := assignments.NewRedisAssignmentSource(rdb, 5*time.Second)

		log.Println("Seeding missions...")
		n, err := repositories.SeedMissionsFromJSON(ctx, source, *seedPath)
		if err != nil {
			log.Fatalf("seeding failed: %v", err)
		}
		log.Printf("Seeded %d missions.", n)
	}
}
