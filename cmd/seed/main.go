package main

import (
	"context"
	"log"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"govichain/internal/config"
	"govichain/internal/db"
	"govichain/internal/model"
	"govichain/internal/repository"
)

const seedPassword = "password123"

type seedUser struct {
	Email    string
	Username string
	Role     model.Role
}

var seedUsers = []seedUser{
	{Email: "officer@gov.example", Username: "gov_officer", Role: model.RoleGovernment},
	{Email: "builder@contractor.example", Username: "contractor_one", Role: model.RoleContractor},
	{Email: "reviewer@audit.example", Username: "auditor_one", Role: model.RoleAuditor},
}

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}
	if err := gormDB.AutoMigrate(&model.User{}, &model.Project{}, &model.Milestone{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(gormDB)
	projectRepo := repository.NewProjectRepository(gormDB)

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), 10)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	var officer *model.User
	for _, su := range seedUsers {
		existing, err := userRepo.FindByEmail(ctx, su.Email)
		if err == nil {
			log.Printf("user %s already exists, skipping", su.Email)
			if su.Role == model.RoleGovernment {
				officer = existing
			}
			continue
		}
		if err != gorm.ErrRecordNotFound {
			log.Fatalf("check user %s: %v", su.Email, err)
		}

		user := &model.User{
			Email:        su.Email,
			Username:     su.Username,
			PasswordHash: string(hash),
			Role:         su.Role,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			log.Fatalf("create user %s: %v", su.Email, err)
		}
		log.Printf("created %s user %s", su.Role, su.Email)
		if su.Role == model.RoleGovernment {
			officer = user
		}
	}

	if officer == nil {
		log.Fatal("no government user available for sample project")
	}

	projects, err := projectRepo.ListByCreator(ctx, officer.ID)
	if err != nil {
		log.Fatalf("list projects: %v", err)
	}
	if len(projects) == 0 {
		project := &model.Project{
			Name:        "Rural Road Rehabilitation",
			Description: "Resurfacing of the district access road, phase one.",
			Budget:      decimal.NewFromInt(100000),
			Status:      model.ProjectStatusCreated,
			CreatorID:   officer.ID,
		}
		if err := projectRepo.Create(ctx, project); err != nil {
			log.Fatalf("create sample project: %v", err)
		}
		log.Printf("created sample project %q with budget %s", project.Name, project.Budget)
	}

	log.Println("Seed complete")
}
