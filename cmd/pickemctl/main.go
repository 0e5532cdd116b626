// Command pickemctl holds operator chores: issuing tokens, hashing the admin key and
// importing a schedule file into MongoDB.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"nfl-pickem-live/config"
	"nfl-pickem-live/database"
	"nfl-pickem-live/logging"
	"nfl-pickem-live/services"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/bcrypt"
)

const usage = `usage: pickemctl <command> [flags]

commands:
  issue-token      -user <id> -name <name> [-admin]
  hash-admin-key   -key <secret>
  import-schedule  -file <games.json>
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "issue-token":
		err = issueToken(os.Args[2:])
	case "hash-admin-key":
		err = hashAdminKey(os.Args[2:])
	case "import-schedule":
		err = importSchedule(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logging.Fatalf("%s: %v", os.Args[1], err)
	}
}

func issueToken(args []string) error {
	fs := flag.NewFlagSet("issue-token", flag.ExitOnError)
	userID := fs.Int("user", 0, "user id")
	name := fs.String("name", "", "display name")
	admin := fs.Bool("admin", false, "grant the admin claim")
	_ = fs.Parse(args)
	if *userID <= 0 {
		return errors.New("-user must be positive")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	token, err := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry).Issue(*userID, *name, *admin)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func hashAdminKey(args []string) error {
	fs := flag.NewFlagSet("hash-admin-key", flag.ExitOnError)
	key := fs.String("key", "", "service key handed to schedulers")
	_ = fs.Parse(args)
	if len(*key) < 16 {
		return errors.New("-key must be at least 16 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*key), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash key")
	}
	fmt.Printf("ADMIN_KEY_HASH=%s\n", hash)
	return nil
}

func importSchedule(args []string) error {
	fs := flag.NewFlagSet("import-schedule", flag.ExitOnError)
	file := fs.String("file", "", "JSON array of games")
	_ = fs.Parse(args)
	if *file == "" {
		return errors.New("-file is required")
	}

	games, err := database.LoadScheduleFile(*file)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.UsesMemoryStore() {
		return errors.New("import-schedule needs STORE=mongo")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	db, err := database.NewMongoConnection(ctx, cfg.ToDatabaseConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	return database.NewMongoGameRepository(db).BulkUpsert(ctx, games)
}
