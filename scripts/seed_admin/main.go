// Command seed_admin creates or updates an administrator account so a
// fresh deployment has a login before any staff exist.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bgpnc/members-api/internal/models"
	"github.com/bgpnc/members-api/pkg/config"
	"github.com/bgpnc/members-api/pkg/database"
)

func main() {
	var (
		username string
		email    string
		fullName string
		password string
		role     string
		timeout  time.Duration
	)

	flag.StringVar(&username, "username", "admin", "login username")
	flag.StringVar(&email, "email", "admin@example.com", "account email")
	flag.StringVar(&fullName, "full-name", "Administrator", "display name")
	flag.StringVar(&password, "password", "", "initial password (or SEED_ADMIN_PASSWORD env)")
	flag.StringVar(&role, "role", string(models.RoleAdmin), "account role (admin or staff)")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "database timeout")
	flag.Parse()

	if password == "" {
		password = os.Getenv("SEED_ADMIN_PASSWORD")
	}
	if password == "" {
		log.Fatal("a password is required: pass -password or set SEED_ADMIN_PASSWORD")
	}
	if role != string(models.RoleAdmin) && role != string(models.RoleStaff) {
		log.Fatalf("unknown role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, err := db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, full_name, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW())
		ON CONFLICT (username) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			full_name = EXCLUDED.full_name,
			role = EXCLUDED.role,
			active = TRUE,
			updated_at = NOW()`,
		uuid.NewString(), username, email, string(hash), fullName, role)
	if err != nil {
		log.Fatalf("failed to upsert user: %v", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		fmt.Printf("account %q ready with role %s\n", username, role)
	}
}
