// Command seedadmin applies migrations and creates or updates one admin
// account. The password comes from ADMIN_SEED_PASSWORD or a no-echo prompt.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"leadadmin/cmd/identity"
	"leadadmin/cmd/internal/app"
	"leadadmin/cmd/internal/db"

	"golang.org/x/term"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var (
		username    = flag.String("username", "", "Admin username (required)")
		displayName = flag.String("display-name", "", "Display name (defaults to username)")
	)
	flag.Parse()

	if strings.TrimSpace(*username) == "" {
		flag.Usage()
		return errors.New("seedadmin: -username is required")
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("seedadmin: ADMIN_DATABASE_URL is required")
	}

	secret, err := readPassword(os.Stdin, os.Stderr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := app.NewDBPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("seedadmin: db: %w", err)
	}
	defer pool.Close()

	sqlDB := app.OpenSQL(pool)
	defer sqlDB.Close()
	if err := db.Migrate(ctx, sqlDB); err != nil {
		return err
	}

	hasher, err := identity.NewPasswordHasher(cfg.Password)
	if err != nil {
		return err
	}
	st, err := identity.NewPostgresStore(pool)
	if err != nil {
		return err
	}

	admin, created, err := app.SeedAdmin(ctx, st, hasher, app.SeedInput{
		Username:    *username,
		DisplayName: *displayName,
		Password:    secret,
	})
	if err != nil {
		return err
	}

	verb := "updated"
	if created {
		verb = "created"
	}
	fmt.Printf("%s admin %s (%s)\n", verb, admin.Username, admin.ID)
	return nil
}

// readPassword prefers ADMIN_SEED_PASSWORD, then prompts without echo on a
// terminal, then reads one line from a pipe.
func readPassword(in *os.File, prompt io.Writer) (string, error) {
	if v := os.Getenv(app.EnvPrefix + "SEED_PASSWORD"); v != "" {
		return v, nil
	}

	fd := int(in.Fd()) // #nosec G115 -- file descriptors fit in int.
	if term.IsTerminal(fd) {
		_, _ = fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("seedadmin: read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("seedadmin: read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("seedadmin: empty password")
	}
	return line, nil
}
