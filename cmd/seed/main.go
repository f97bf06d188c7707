// Command seed populates the database with demo data: a parent and an
// admin account, two children, a week of screen time, a risk assessment,
// and gamification progress.
//
// Usage:
//
//	DATABASE_URL=postgres://... go run ./cmd/seed
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/neuronest/guardian/internal/auth"
	"github.com/neuronest/guardian/internal/children"
	"github.com/neuronest/guardian/internal/gamification"
	"github.com/neuronest/guardian/internal/idgen"
	"github.com/neuronest/guardian/internal/risk"
	"github.com/neuronest/guardian/internal/screentime"
)

const demoPassword = "guardian-demo"

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed(ctx, db); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
}

func seed(ctx context.Context, db *sql.DB) error {
	users := auth.NewPostgresStore(db)
	childStore := children.NewPostgresStore(db)
	usage := screentime.NewPostgresStore(db)
	risks := risk.NewPostgresStore(db)
	gam := gamification.NewPostgresStore(db)

	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	parent := &auth.User{
		ID:           idgen.WithPrefix("usr_"),
		Email:        "demo@neuronest.app",
		PasswordHash: hash,
		Name:         "Demo Parent",
		Role:         auth.RoleParent,
		IsVerified:   true,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if err := users.Create(ctx, parent); err != nil {
		if err == auth.ErrEmailTaken {
			return fmt.Errorf("demo data already present (run against a fresh database)")
		}
		return fmt.Errorf("create parent: %w", err)
	}

	admin := &auth.User{
		ID:           idgen.WithPrefix("usr_"),
		Email:        "admin@neuronest.app",
		PasswordHash: hash,
		Name:         "Demo Admin",
		Role:         auth.RoleAdmin,
		IsVerified:   true,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	ada := &children.Child{
		ID:            idgen.WithPrefix("chd_"),
		ParentID:      parent.ID,
		Name:          "Ada",
		Age:           10,
		DailyLimitMin: 90,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	ben := &children.Child{
		ID:            idgen.WithPrefix("chd_"),
		ParentID:      parent.ID,
		Name:          "Ben",
		Age:           14,
		DailyLimitMin: 150,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	for _, c := range []*children.Child{ada, ben} {
		if err := childStore.Create(ctx, c); err != nil {
			return fmt.Errorf("create child %s: %w", c.Name, err)
		}
		if err := gam.EnsureState(ctx, c.ID); err != nil {
			return fmt.Errorf("ensure gamification state: %w", err)
		}
	}

	// A week of plausible usage: Ada moderate and daytime, Ben heavy on
	// late-night social media.
	now := time.Now()
	for i := 0; i < 7; i++ {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")

		for _, l := range []*screentime.Log{
			{ChildID: ada.ID, AppName: "Duolingo", Category: "education", DurationMinutes: 30, Date: date, Hour: 16},
			{ChildID: ada.ID, AppName: "Minecraft", Category: "games", DurationMinutes: 45, Date: date, Hour: 17},
			{ChildID: ben.ID, AppName: "TikTok", Category: "social_media", DurationMinutes: 120, Date: date, Hour: 22},
			{ChildID: ben.ID, AppName: "YouTube", Category: "entertainment", DurationMinutes: 60, Date: date, Hour: 19},
		} {
			l.ID = idgen.WithPrefix("log_")
			l.CreatedAt = now
			if err := usage.Create(ctx, l); err != nil {
				return fmt.Errorf("create log: %w", err)
			}
		}
	}

	// Score both children over the seeded week.
	engine := risk.NewEngine(nil)
	for _, c := range []*children.Child{ada, ben} {
		logs, err := usage.ListSince(ctx, c.ID, risk.WindowStart(now))
		if err != nil {
			return fmt.Errorf("load usage for %s: %w", c.Name, err)
		}
		result := engine.Score(logs)
		assessment := &risk.Assessment{
			ID:          idgen.WithPrefix("risk_"),
			ChildID:     c.ID,
			Score:       result.Score,
			Tier:        result.Tier,
			Explanation: result.Explanation,
			Factors:     result.Factors,
			CreatedAt:   now,
		}
		if err := risks.Create(ctx, assessment); err != nil {
			return fmt.Errorf("create assessment: %w", err)
		}
		log.Printf("%s: risk %.1f (%s)", c.Name, result.Score, result.Tier)
	}

	// Ada has been under her limit for three days running.
	for i := 2; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		if _, err := gam.Update(ctx, ada.ID, func(s *gamification.State) error {
			gamification.UpdateStreak(s, 75, ada.DailyLimitMin, day)
			return nil
		}); err != nil {
			return fmt.Errorf("update streak: %w", err)
		}
	}

	log.Printf("Seeded parent %s (password %q), admin %s, children %s and %s",
		parent.Email, demoPassword, admin.Email, ada.Name, ben.Name)
	return nil
}
