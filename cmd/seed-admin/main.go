package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"gorm.io/gorm"

	"vacationplanner/internal/config"
	"vacationplanner/internal/identity"
	"vacationplanner/internal/security/passwordhash"
	"vacationplanner/internal/shared/connection"
)

// seed-admin creates the first company and admin user from environment
// variables: check-then-create idempotency (skip if the admin email
// already exists), env-var defaults, bypassing the normal
// invite-accept flow since there's no inviter yet.
func main() {
	log.SetFlags(0)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	gormDB, err := connection.ConnectGORMWithRetry(
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode, 3,
	)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	adminEmail := envDefault("ADMIN_SEED_EMAIL", cfg.AdminSeedEmail, "admin@example.com")
	adminPassword := envDefault("ADMIN_SEED_PASSWORD", cfg.AdminSeedPassword, "changeme-in-production!")
	firstName := envDefault("ADMIN_FIRST_NAME", "", "Admin")
	lastName := envDefault("ADMIN_LAST_NAME", "", "User")
	companyName := envDefault("COMPANY_NAME", "", "Default Company")
	companySlug := envDefault("COMPANY_SLUG", "", "default")

	hasher := passwordhash.New(cfg.Hash)

	var existing identity.User
	err = gormDB.Where("email = ?", adminEmail).First(&existing).Error
	if err == nil {
		log.Printf("admin user %s already exists, skipping", adminEmail)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("lookup existing admin: %v", err)
	}

	hash, err := hasher.Hash(adminPassword)
	if err != nil {
		log.Fatalf("hash admin password: %v", err)
	}

	err = gormDB.Transaction(func(tx *gorm.DB) error {
		company := &identity.Company{Name: companyName, Slug: companySlug}
		if err := tx.Create(company).Error; err != nil {
			return err
		}

		admin := &identity.User{
			CompanyID:     company.ID,
			Email:         adminEmail,
			FirstName:     firstName,
			LastName:      lastName,
			PasswordHash:  hash,
			Role:          identity.RoleAdmin,
			IsActive:      true,
			EmailVerified: true,
		}
		return tx.Create(admin).Error
	})
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	log.Printf("admin user %s created successfully", adminEmail)
	log.Printf("company: %s", companyName)
	log.Println("change the password after first login")
}

func envDefault(key, fallback, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if fallback != "" {
		return fallback
	}
	return defaultVal
}
