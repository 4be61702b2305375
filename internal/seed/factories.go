// Package seed provides helpers to create demo data for the application database.
// These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"strings"
	"time"

	"skillswap/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// FactoryOptions tunes a Factory.
type FactoryOptions struct {
	// Seed fixes the generator. Zero picks a time-based seed.
	Seed int64
	// MaxDays bounds how far back generated timestamps go.
	MaxDays int
	// DryRun builds entities without writing them.
	DryRun bool
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db    *gorm.DB
	opts  FactoryOptions
	faker *gofakeit.Faker
	// synthetic ID counter when running in DryRun mode
	nextID int
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts FactoryOptions) *Factory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	return &Factory{db: db, opts: opts, faker: gofakeit.New(seed)}
}

func (f *Factory) create(kind string, v any, setID func(string)) error {
	if f.opts.DryRun {
		f.nextID++
		setID(fmt.Sprintf("dry-%s-%d", kind, f.nextID))
		log.Printf("[dry-run] create %s (no DB write)", kind)
		return nil
	}
	return f.db.Create(v).Error
}

// pastTime returns a random instant between max(notBefore, window start) and now.
func (f *Factory) pastTime(notBefore time.Time) time.Time {
	now := time.Now().UTC()
	earliest := now.Add(-time.Duration(f.opts.MaxDays) * 24 * time.Hour)
	if notBefore.After(earliest) {
		earliest = notBefore
	}
	span := now.Sub(earliest)
	if span <= 0 {
		return now
	}
	return earliest.Add(time.Duration(f.faker.Rand.Int63n(int64(span))))
}

func (f *Factory) chance(p float64) bool {
	return f.faker.Rand.Float64() < p
}

// CreateUser constructs and persists a sample user.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	first, last := f.faker.FirstName(), f.faker.LastName()
	user := &models.User{
		ID:       "seed_" + strings.ToLower(f.faker.LetterN(16)),
		Name:     first + " " + last,
		Industry: f.faker.JobDescriptor() + " " + f.faker.JobLevel(),
		Bio:      f.faker.Sentence(12),
	}
	user.Email = fmt.Sprintf("%s.%s.%s@skillsync.dev",
		strings.ToLower(first), strings.ToLower(last), strings.ToLower(f.faker.LetterN(4)))
	user.AvatarURL = fmt.Sprintf("https://i.pravatar.cc/150?u=%s", user.ID)
	user.CreatedAt = f.pastTime(time.Time{})

	for _, override := range overrides {
		override(user)
	}
	if err := f.create("user", user, func(id string) { user.ID = id }); err != nil {
		return nil, err
	}
	return user, nil
}

// AddSkills links the given registry skills to user as MANUAL, visible skills.
func (f *Factory) AddSkills(user *models.User, skills []models.Skill) ([]models.UserSkill, error) {
	links := make([]models.UserSkill, 0, len(skills))
	for _, s := range skills {
		links = append(links, models.UserSkill{
			UserID:    user.ID,
			SkillID:   s.ID,
			Source:    models.SkillSourceManual,
			IsVisible: true,
			Skill:     s,
		})
	}
	if len(links) == 0 || f.opts.DryRun {
		return links, nil
	}
	if err := f.db.Omit("Skill").Create(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// CreateProposal persists an OPEN proposal for owner teaching offered in exchange for needed.
func (f *Factory) CreateProposal(owner *models.User, offered, needed []models.Skill, overrides ...func(*models.Proposal)) (*models.Proposal, error) {
	modality := models.ModalityRemote
	if f.chance(0.3) {
		modality = models.ModalityInPerson
	}
	p := &models.Proposal{
		OwnerID:       owner.ID,
		Title:         proposalTitle(offered, needed),
		Description:   f.faker.Paragraph(1, 3, 10, " "),
		Modality:      modality,
		Status:        models.ProposalStatusOpen,
		OfferedSkills: offered,
		NeededSkills:  needed,
		CreatedAt:     f.pastTime(owner.CreatedAt),
	}
	if len(p.Description) > 1000 {
		p.Description = strings.TrimSpace(p.Description[:1000])
	}
	for _, override := range overrides {
		override(p)
	}
	if f.opts.DryRun {
		f.nextID++
		p.ID = fmt.Sprintf("dry-proposal-%d", f.nextID)
		return p, nil
	}
	if err := f.db.Omit("OfferedSkills.*", "NeededSkills.*").Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func proposalTitle(offered, needed []models.Skill) string {
	names := func(skills []models.Skill) string {
		out := make([]string, 0, len(skills))
		for _, s := range skills {
			out = append(out, s.Name)
		}
		return strings.Join(out, " & ")
	}
	title := fmt.Sprintf("%s for %s", names(offered), names(needed))
	if len(title) > 100 {
		title = title[:100]
	}
	return title
}

// CreateApplication persists an application by applicant with the given status.
func (f *Factory) CreateApplication(p *models.Proposal, applicant *models.User, status models.ApplicationStatus) (*models.Application, error) {
	a := &models.Application{
		ProposalID:   p.ID,
		ApplicantID:  applicant.ID,
		PitchMessage: f.faker.Sentence(14),
		Status:       status,
		CreatedAt:    f.pastTime(p.CreatedAt),
	}
	if err := f.create("application", a, func(id string) { a.ID = id }); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateSwap persists the swap for an accepted application. COMPLETED swaps get a
// completion time after their start.
func (f *Factory) CreateSwap(p *models.Proposal, a *models.Application, status models.SwapStatus) (*models.Swap, error) {
	s := &models.Swap{
		ProposalID:    p.ID,
		ApplicationID: a.ID,
		TeacherID:     p.OwnerID,
		StudentID:     a.ApplicantID,
		Status:        status,
		StartedAt:     f.pastTime(a.CreatedAt),
	}
	if status == models.SwapStatusCompleted {
		done := f.pastTime(s.StartedAt)
		s.CompletedAt = &done
	}
	if err := f.create("swap", s, func(id string) { s.ID = id }); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateReview persists a review of a completed swap written by authorID for its counterpart.
func (f *Factory) CreateReview(s *models.Swap, authorID string) (*models.Review, error) {
	r := &models.Review{
		SwapID:     s.ID,
		AuthorID:   authorID,
		ReceiverID: s.Counterpart(authorID),
		Rating:     3 + f.faker.Rand.Intn(3),
		Comment:    f.faker.Sentence(10),
	}
	if s.CompletedAt != nil {
		r.CreatedAt = f.pastTime(*s.CompletedAt)
	}
	if err := f.create("review", r, func(id string) { r.ID = id }); err != nil {
		return nil, err
	}
	return r, nil
}
