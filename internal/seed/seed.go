package seed

import (
	"context"
	"fmt"
	"log"

	"skillswap/internal/models"
	"skillswap/internal/repository"

	"gorm.io/gorm"
)

// Stats counts what a seed run created.
type Stats struct {
	Users        int
	UserSkills   int
	Proposals    int
	Applications int
	Swaps        int
	Completed    int
	Reviews      int
}

func (s Stats) String() string {
	return fmt.Sprintf("users=%d user_skills=%d proposals=%d applications=%d swaps=%d completed=%d reviews=%d",
		s.Users, s.UserSkills, s.Proposals, s.Applications, s.Swaps, s.Completed, s.Reviews)
}

// cleanOrder lists tables children first so foreign keys hold while deleting.
var cleanOrder = []string{
	"reviews",
	"messages",
	"notifications",
	"swaps",
	"applications",
	"proposal_offered_skills",
	"proposal_needed_skills",
	"proposals",
	"user_skills",
	"skills",
	"users",
}

// Seed populates the database according to preset.
func Seed(ctx context.Context, db *gorm.DB, preset *Preset) (Stats, error) {
	var stats Stats
	if err := preset.Validate(); err != nil {
		return stats, err
	}
	log.Printf("🌱 Seeding preset %q with %d users...", preset.Name, preset.Users)

	if preset.Clean {
		if err := clearData(ctx, db); err != nil {
			return stats, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	skills, err := repository.NewSkillRepository(db).Resolve(ctx, preset.Skills)
	if err != nil {
		return stats, fmt.Errorf("failed to create skills: %w", err)
	}
	log.Printf("✓ %d skills available", len(skills))

	f := NewFactory(db.WithContext(ctx), FactoryOptions{Seed: preset.Seed, MaxDays: preset.MaxDays})

	users := make([]*models.User, 0, preset.Users)
	held := make(map[string][]models.Skill, preset.Users)
	for i := 0; i < preset.Users; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return stats, fmt.Errorf("failed to create user: %w", err)
		}
		picked := f.pick(skills, preset.SkillsPerUser)
		if _, err := f.AddSkills(u, picked); err != nil {
			return stats, fmt.Errorf("failed to add skills: %w", err)
		}
		users = append(users, u)
		held[u.ID] = picked
		stats.Users++
		stats.UserSkills += len(picked)
	}
	log.Printf("✓ %d users created", stats.Users)

	for _, owner := range users {
		for i := 0; i < preset.ProposalsPerUser; i++ {
			offered := f.pick(held[owner.ID], 1+f.faker.Rand.Intn(2))
			needed := f.pick(without(skills, held[owner.ID]), 1+f.faker.Rand.Intn(2))
			if len(needed) == 0 {
				needed = f.pick(skills, 1)
			}
			p, err := f.CreateProposal(owner, offered, needed)
			if err != nil {
				return stats, fmt.Errorf("failed to create proposal: %w", err)
			}
			stats.Proposals++

			if err := seedApplications(f, preset, p, owner, users, &stats); err != nil {
				return stats, err
			}
		}
	}

	log.Printf("🎉 Seeding completed: %s", stats)
	return stats, nil
}

func seedApplications(f *Factory, preset *Preset, p *models.Proposal, owner *models.User, users []*models.User, stats *Stats) error {
	candidates := make([]*models.User, 0, len(users)-1)
	for _, u := range users {
		if u.ID != owner.ID {
			candidates = append(candidates, u)
		}
	}

	for _, idx := range f.faker.Rand.Perm(len(candidates))[:preset.ApplicationsPerProposal] {
		applicant := candidates[idx]

		status := models.ApplicationStatusPending
		switch {
		case f.chance(preset.AcceptRate):
			status = models.ApplicationStatusAccepted
		case f.chance(0.5):
			status = models.ApplicationStatusRejected
		}
		a, err := f.CreateApplication(p, applicant, status)
		if err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}
		stats.Applications++
		if status != models.ApplicationStatusAccepted {
			continue
		}

		swapStatus := models.SwapStatusActive
		if f.chance(preset.CompleteRate) {
			swapStatus = models.SwapStatusCompleted
		}
		s, err := f.CreateSwap(p, a, swapStatus)
		if err != nil {
			return fmt.Errorf("failed to create swap: %w", err)
		}
		stats.Swaps++
		if swapStatus != models.SwapStatusCompleted {
			continue
		}
		stats.Completed++

		for _, author := range []string{s.TeacherID, s.StudentID} {
			if !f.chance(preset.ReviewRate) {
				continue
			}
			if _, err := f.CreateReview(s, author); err != nil {
				return fmt.Errorf("failed to create review: %w", err)
			}
			stats.Reviews++
		}
	}
	return nil
}

// pick returns up to n distinct skills from pool.
func (f *Factory) pick(pool []models.Skill, n int) []models.Skill {
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]models.Skill, 0, n)
	for _, i := range f.faker.Rand.Perm(len(pool))[:n] {
		out = append(out, pool[i])
	}
	return out
}

func without(pool, exclude []models.Skill) []models.Skill {
	skip := make(map[string]bool, len(exclude))
	for _, s := range exclude {
		skip[s.ID] = true
	}
	out := make([]models.Skill, 0, len(pool))
	for _, s := range pool {
		if !skip[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

func clearData(ctx context.Context, db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range cleanOrder {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
