// Command admin_seed creates a verified shop owner with its login session
// and prints the secondary code once. Run it to onboard a store without
// going through email verification.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"freshcart/internal/config"
	"freshcart/internal/models"
	"freshcart/internal/repositories"
	"freshcart/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	storeID := os.Getenv("SEED_STORE_ID")
	name := os.Getenv("SEED_NAME")
	email := os.Getenv("SEED_EMAIL")
	password := os.Getenv("SEED_PASSWORD")
	if storeID == "" || email == "" || password == "" {
		log.Fatal("SEED_STORE_ID, SEED_EMAIL and SEED_PASSWORD must be set in environment")
	}
	if name == "" {
		name = storeID
	}
	lat, err := parseCoordinate("SEED_LATITUDE")
	if err != nil {
		log.Fatal(err)
	}
	lng, err := parseCoordinate("SEED_LONGITUDE")
	if err != nil {
		log.Fatal(err)
	}

	db, err := repositories.OpenDB(cfg.Database, zap.NewNop())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	if err := repositories.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	ctx := context.Background()
	owners := repositories.NewShopOwnerRepository(db)
	sessions := repositories.NewLoginAttemptRepository(db)

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.Security.BcryptCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	owner := &models.ShopOwner{
		StoreID:       storeID,
		Name:          name,
		Email:         email,
		PasswordHash:  string(passwordHash),
		EmailVerified: true,
		Latitude:      lat,
		Longitude:     lng,
	}
	if err := owners.Create(ctx, owner); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			log.Println("Shop owner already exists")
			return
		}
		log.Fatalf("failed to create shop owner: %v", err)
	}

	code, err := utils.GenerateSecureCode(12)
	if err != nil {
		log.Fatalf("failed to generate secondary code: %v", err)
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), cfg.Security.BcryptCost)
	if err != nil {
		log.Fatalf("failed to hash secondary code: %v", err)
	}
	if err := sessions.Upsert(ctx, &models.LoginAttemptSession{
		StoreID:         storeID,
		EncryptCodeHash: string(codeHash),
		Status:          models.AttemptPending,
	}); err != nil {
		log.Fatalf("failed to create login session: %v", err)
	}

	log.Printf("Shop owner %s created", storeID)
	fmt.Printf("Secondary code (shown once): %s\n", code)
}

func parseCoordinate(key string) (*float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &v, nil
}
