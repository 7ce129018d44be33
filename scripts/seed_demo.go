// Seeds demo accounts and one in-progress assessment for local development.
//
// Usage: go run scripts/seed_demo.go
package main

import (
	"bilan_backend/internal/config"
	"bilan_backend/internal/model"
	"bilan_backend/internal/repository"
	"bilan_backend/pkg/database"
	"bilan_backend/pkg/logger"
	"log"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.InitLogger(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database, true)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	users := repository.NewUserRepository(db)
	assessments := repository.NewAssessmentRepository(db)

	demo := []struct {
		name  string
		email string
		role  model.UserRole
	}{
		{"Marie Dupont", "marie@example.com", model.Beneficiary},
		{"Paul Martin", "paul@example.com", model.Consultant},
		{"Admin", "admin@example.com", model.Admin},
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	var beneficiary *model.User
	for _, d := range demo {
		existing, err := users.FindByEmail(d.email)
		if err == nil {
			log.Printf("User %s already exists, skipping", d.email)
			if d.role == model.Beneficiary {
				beneficiary = existing
			}
			continue
		}

		user := &model.User{
			Name:     d.name,
			Email:    d.email,
			Password: string(hashed),
			Role:     d.role,
		}
		if err := users.Create(user); err != nil {
			log.Fatalf("Failed to create user %s: %v", d.email, err)
		}
		log.Printf("Created %s user %s (password: demo-password)", d.role, d.email)
		if d.role == model.Beneficiary {
			beneficiary = user
		}
	}

	existing, err := assessments.List(repository.AssessmentFilter{BeneficiaryID: &beneficiary.ID})
	if err != nil {
		log.Fatalf("Failed to list assessments: %v", err)
	}
	if len(existing) > 0 {
		log.Println("Demo assessment already exists, done")
		return
	}

	assessment := &model.Assessment{
		BeneficiaryID:  beneficiary.ID,
		Title:          "Bilan de compétences — démonstration",
		Description:    "Parcours de démonstration pour le développement local.",
		AssessmentType: model.TypeCareer,
		Status:         model.StatusDraft,
	}
	if err := assessments.Create(assessment); err != nil {
		log.Fatalf("Failed to create demo assessment: %v", err)
	}
	log.Printf("Created demo assessment %s", assessment.ID)
}
