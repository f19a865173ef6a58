package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/synergychantilly/cgresbox-backend/app/models"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/database"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/env"
)

// provision creates the initial admin account. It is safe to run repeatedly:
// if the account already exists nothing is changed unless -rotate-key is set.
func main() {
	env.SetupEnvFile()

	name := flag.String("name", env.GetEnv("ADMIN_NAME", "Administrator"), "display name of the admin account")
	email := flag.String("email", env.GetEnv("ADMIN_EMAIL", ""), "email of the admin account")
	password := flag.String("password", env.GetEnv("ADMIN_PASSWORD", ""), "initial password of the admin account")
	rotateKey := flag.Bool("rotate-key", false, "issue a new API key for an existing admin account")
	flag.Parse()

	if *email == "" {
		log.Fatal("An admin email is required (flag -email or env ADMIN_EMAIL)")
	}

	database.SetupDatabase()
	db := database.GetDB()

	var existing models.User
	err := db.Where("email = ?", models.CanonicalEmail(*email)).First(&existing).Error
	switch {
	case err == nil:
		if !*rotateKey {
			log.Printf("Admin account %s already exists (id=%d), nothing to do", existing.Email, existing.ID)
			os.Exit(0)
		}
		key := newAPIKey()
		if err := db.Model(&existing).Update("api_key_hash", models.HashAPIKey(key)).Error; err != nil {
			log.Fatalf("Failed to rotate API key: %v", err)
		}
		log.Printf("Rotated API key for admin account %s (id=%d)", existing.Email, existing.ID)
		printKey(key)
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fall through to creation
	default:
		log.Fatalf("Failed to look up admin account: %v", err)
	}

	if *password == "" {
		log.Fatal("An admin password is required (flag -password or env ADMIN_PASSWORD)")
	}

	admin, err := models.CreateUser(*name, *email, *password)
	if err != nil {
		log.Fatalf("Failed to build admin account: %v", err)
	}
	admin.Role = models.ROLE_ADMIN
	admin.Status = models.STATUS_APPROVED

	key := newAPIKey()
	admin.APIKeyHash = models.HashAPIKey(key)

	if err := db.Create(admin).Error; err != nil {
		log.Fatalf("Failed to create admin account: %v", err)
	}

	log.Printf("Created admin account %s (id=%d)", admin.Email, admin.ID)
	printKey(key)
}

func newAPIKey() string {
	return "cgb_" + uuid.New().String()
}

// printKey writes the plaintext key to stdout exactly once; only its hash is
// stored, so there is no way to recover it later.
func printKey(key string) {
	fmt.Printf("API key (shown once, store it now): %s\n", key)
}
