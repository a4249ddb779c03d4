package bootstrap

import (
	"context"
	"errors"
	"log"

	"anoa.com/peerlink/internal/entity"
	connectionRepo "anoa.com/peerlink/internal/modules/connection/repository"
	userRepo "anoa.com/peerlink/internal/modules/user/repository"
	"anoa.com/peerlink/pkg/apperror"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&entity.User{},
		&entity.StudentProfile{},
		&entity.SponsorProfile{},
		&entity.Project{},
		&entity.ConnectionRequest{},
	); err != nil {
		return err
	}
	return db.Exec(connectionRepo.PendingPairIndex).Error
}

type demoAccount struct {
	Name  string
	Email string
	Role  entity.Role
}

var demoAccounts = []demoAccount{
	{Name: "Demo Student", Email: "student@peerlink.dev", Role: entity.RoleStudent},
	{Name: "Demo Sponsor", Email: "sponsor@peerlink.dev", Role: entity.RoleSponsor},
}

// SeedDemoUsers creates one account per role for local development.
func SeedDemoUsers(ctx context.Context, users userRepo.UserRepository) error {
	password := "peerlink123"
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	for _, a := range demoAccounts {
		if _, err := users.FindByEmailAndRole(ctx, a.Email, a.Role); err == nil {
			log.Printf("Demo %s already exists, skipping seed", a.Role)
			continue
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return err
		}

		user := &entity.User{Name: a.Name, Email: a.Email, Role: a.Role, PasswordHash: string(hash)}
		if err := users.Create(ctx, user); err != nil {
			return err
		}
		log.Printf("✅ Demo %s seeded: %s / %s", a.Role, a.Email, password)
	}
	return nil
}
