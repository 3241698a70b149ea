// adminctl is an operator tool that talks to the bot's database directly:
// set the upload password without going through chat, manage VIPs, run
// migrations, and inspect users.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/contentgate/contentgate/internal/bot/config"
	"github.com/contentgate/contentgate/internal/bot/repositories/repomanager"
	"github.com/contentgate/contentgate/internal/bot/repositories/settings"
)

const usage = `usage: adminctl <command> [args]

commands:
  migrate            apply database migrations
  set-password       prompt for a new upload password and store it
  add-vip <user_id>  grant permanent access bypass
  del-vip <user_id>  revoke permanent access bypass
  info <user_id>     show a user's stored record
`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	args := positionalArgs(os.Args[1:])
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.LoadConfig()
	ctx := context.Background()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()

	if err := run(ctx, db, rm, args); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, db *sql.DB, rm repomanager.RepositoryManager, args []string) error {
	switch args[0] {
	case "migrate":
		return rm.RunMigrations(ctx, db)

	case "set-password":
		return setPassword(ctx, db, rm)

	case "add-vip", "del-vip":
		if len(args) < 2 {
			return fmt.Errorf("usage: adminctl %s <user_id>", args[0])
		}
		userID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[1])
		}
		vip := args[0] == "add-vip"
		if err := rm.Users(db).SetVIP(ctx, userID, vip); err != nil {
			return err
		}
		fmt.Printf("user %d vip=%v\n", userID, vip)
		return nil

	case "info":
		if len(args) < 2 {
			return fmt.Errorf("usage: adminctl info <user_id>")
		}
		userID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[1])
		}
		user, err := rm.Users(db).Get(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Printf("id: %d\nvip: %v\n", user.ID, user.IsVIP)
		if user.LastAuthAt != nil {
			fmt.Printf("last auth: %s\n", user.LastAuthAt)
		} else {
			fmt.Println("last auth: never")
		}
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// setPassword prompts twice without echo and stores the bcrypt hash.
func setPassword(ctx context.Context, db *sql.DB, rm repomanager.RepositoryManager) error {
	fmt.Print("New upload password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("error reading password: %w", err)
	}
	fmt.Print("Repeat password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("error reading password: %w", err)
	}
	if string(first) != string(second) {
		return fmt.Errorf("passwords do not match")
	}
	if len(first) == 0 {
		return fmt.Errorf("empty password")
	}

	hash, err := bcrypt.GenerateFromPassword(first, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if err := rm.Settings(db).Set(ctx, settings.KeyPasswordHash, string(hash)); err != nil {
		return err
	}
	fmt.Println("password updated")
	return nil
}

// positionalArgs strips the config flags shared with the bot binary so the
// remaining words are the command and its arguments.
func positionalArgs(args []string) []string {
	flagsWithValue := map[string]bool{
		"-c": true, "-config": true,
		"-t": true, "-m": true, "-d": true, "-a": true, "-p": true,
		"-v": true, "-l": true, "-k": true, "-e": true,
	}
	out := []string{}
	for i := 0; i < len(args); i++ {
		if flagsWithValue[args[i]] {
			i++
			continue
		}
		out = append(out, args[i])
	}
	return out
}
