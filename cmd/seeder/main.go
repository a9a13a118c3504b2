// Command seeder loads user accounts from a CSV file and optionally a
// fixture set of rock samples. It goes through the repositories so every
// created sample gets its submitted-activity row.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/webgis-caps/rocksample-api/internal/models"
	"github.com/webgis-caps/rocksample-api/internal/repository"
	"github.com/webgis-caps/rocksample-api/internal/seed"
	"github.com/webgis-caps/rocksample-api/pkg/config"
	"github.com/webgis-caps/rocksample-api/pkg/database"
	"github.com/webgis-caps/rocksample-api/pkg/logger"
)

func main() {
	accountsPath := flag.String("accounts", "seed/accounts.csv", "path to the accounts CSV")
	roleMode := flag.String("role-mode", string(seed.RoleModeInfer), "role source: infer (from email substrings) or column")
	withSamples := flag.Bool("samples", false, "also create fixture rock samples owned by seeded students")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	file, err := os.Open(*accountsPath)
	if err != nil {
		sugar.Fatalw("failed to open accounts csv", "path", *accountsPath, "error", err)
	}
	defer file.Close()

	accounts, err := seed.ParseAccounts(file, seed.RoleMode(*roleMode))
	if err != nil {
		sugar.Fatalw("failed to parse accounts", "error", err)
	}

	users, err := seed.BuildUsers(accounts, time.Now())
	if err != nil {
		sugar.Fatalw("failed to build users", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	userRepo := repository.NewUserRepository(db)
	sampleRepo := repository.NewSampleRepository(db)

	var students []models.User
	created, skipped := 0, 0
	for i := range users {
		user := &users[i]
		_, err := userRepo.FindByEmail(ctx, user.Email)
		switch {
		case err == nil:
			skipped++
			continue
		case !errors.Is(err, sql.ErrNoRows):
			sugar.Fatalw("failed to check existing account", "email", user.Email, "error", err)
		}

		if err := userRepo.Create(ctx, user); err != nil {
			sugar.Fatalw("failed to create account", "email", user.Email, "error", err)
		}
		created++
		if user.Role == models.RoleStudent {
			students = append(students, *user)
		}
	}
	sugar.Infow("accounts seeded", "created", created, "skipped", skipped)

	if *withSamples {
		n, err := seedSamples(ctx, sampleRepo, students)
		if err != nil {
			sugar.Fatalw("failed to seed samples", "error", err)
		}
		sugar.Infow("fixture samples seeded", "created", n)
	}
}

var fixtureSamples = []models.RockSample{
	{RockID: "GRN-001", RockType: "igneous", Formation: "Batholith Complex", LocationName: "North Quarry", Description: "Coarse-grained granite hand specimen"},
	{RockID: "BSL-002", RockType: "igneous", Formation: "Flood Basalt Group", LocationName: "River Gorge", Description: "Vesicular basalt from the lower flow"},
	{RockID: "LMS-003", RockType: "sedimentary", Formation: "Reef Limestone", LocationName: "Coastal Cliff", Description: "Fossiliferous limestone with coral fragments"},
	{RockID: "SCH-004", RockType: "metamorphic", Formation: "Greenschist Belt", LocationName: "Mountain Pass", Description: "Chlorite schist with visible foliation"},
}

func seedSamples(ctx context.Context, repo *repository.SampleRepository, students []models.User) (int, error) {
	if len(students) == 0 {
		return 0, fmt.Errorf("no student accounts available to own fixture samples")
	}

	created := 0
	for i, fixture := range fixtureSamples {
		if _, err := repo.FindByRockID(ctx, fixture.RockID); err == nil {
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			return created, err
		}

		sample := fixture
		sample.UserID = students[i%len(students)].ID
		sample.Status = models.StatusPending
		if err := repo.Create(ctx, &sample); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
