package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/reputation"
	"skillswap/internal/validation"

	"github.com/google/uuid"
)

// MaxAvatarBytes caps avatar uploads.
const MaxAvatarBytes = 5 << 20

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// ObjectStore persists uploaded files and returns their public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// UpdateProfileInput changes only the fields that are set. Empty strings clear
// the optional fields.
type UpdateProfileInput struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Industry    *string `json:"industry" validate:"omitempty,max=100"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,phone"`
}

// ProfileView is a user's public profile.
type ProfileView struct {
	User       models.User           `json:"user"`
	Skills     []models.UserSkill    `json:"skills"`
	Reputation reputation.Reputation `json:"reputation"`
	Reviews    []models.Review       `json:"reviews"`
	IsOwner    bool                  `json:"is_owner"`
}

type UserService struct {
	userRepo   repository.UserRepository
	skillRepo  repository.SkillRepository
	reviews    repository.ReviewRepository
	reputation *ReputationService
	store      ObjectStore
}

// NewUserService returns a new UserService. store may be nil, which disables avatar uploads.
func NewUserService(
	userRepo repository.UserRepository,
	skillRepo repository.SkillRepository,
	reviews repository.ReviewRepository,
	rep *ReputationService,
	store ObjectStore,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		skillRepo:  skillRepo,
		reviews:    reviews,
		reputation: rep,
		store:      store,
	}
}

// SyncPrincipal returns the local user for a verified principal, creating it on first
// sight. An existing account with the same email wins over the provider ID.
func (s *UserService) SyncPrincipal(ctx context.Context, p middleware.Principal) (*models.User, error) {
	if p.ID == "" || p.Email == "" {
		return nil, models.NewUnauthenticatedError("Incomplete identity")
	}

	user, err := s.userRepo.GetByEmail(ctx, p.Email)
	if err != nil || user != nil {
		return user, err
	}

	user = &models.User{ID: p.ID, Email: p.Email, Name: p.Name}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if !models.IsConflict(err) {
			return nil, err
		}
		// Lost a first-request race; the winner's row is the user.
		existing, getErr := s.userRepo.GetByEmail(ctx, p.Email)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return s.userRepo.GetByID(ctx, p.ID)
		}
		return existing, nil
	}
	return user, nil
}

// GetUser returns the user by ID.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// GetProfile returns a user's profile. Hidden skills are shown only to their owner.
func (s *UserService) GetProfile(ctx context.Context, viewerID, userID string) (*ProfileView, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	isOwner := viewerID == userID

	skills, err := s.skillRepo.ListUserSkills(ctx, userID, isOwner)
	if err != nil {
		return nil, err
	}
	rep, err := s.reputation.Compute(ctx, userID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListForReceiver(ctx, userID, defaultReviewLimit)
	if err != nil {
		return nil, err
	}

	return &ProfileView{
		User:       *user,
		Skills:     skills,
		Reputation: rep,
		Reviews:    reviews,
		IsOwner:    isOwner,
	}, nil
}

// UpdateProfile applies the set fields of in to the user's profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*models.User, error) {
	for _, f := range []*string{in.Name, in.Industry, in.Bio, in.AvatarURL, in.PhoneNumber} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	if in.Name != nil && *in.Name == "" {
		return nil, models.NewValidationError("name must be at least 2 characters")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	set := func(column string, v *string) {
		if v != nil {
			fields[column] = *v
		}
	}
	set("name", in.Name)
	set("industry", in.Industry)
	set("bio", in.Bio)
	set("avatar_url", in.AvatarURL)
	set("phone_number", in.PhoneNumber)

	if len(fields) > 0 {
		if err := s.userRepo.UpdateProfile(ctx, userID, fields); err != nil {
			return nil, err
		}
	}
	return s.userRepo.GetByID(ctx, userID)
}

// UploadAvatar stores an image in object storage and saves its URL on the profile.
func (s *UserService) UploadAvatar(ctx context.Context, userID string, content []byte) (*models.User, error) {
	if len(content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if len(content) > MaxAvatarBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", MaxAvatarBytes>>20))
	}
	contentType := http.DetectContentType(content)
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return nil, models.NewValidationError("Avatar must be a JPEG, PNG, WebP or GIF image")
	}
	if s.store == nil {
		return nil, models.NewDependencyError("object storage", errors.New("not configured"))
	}

	key := fmt.Sprintf("avatars/%s/%s.%s", userID, uuid.NewString(), ext)
	url, err := s.store.Put(ctx, key, bytes.NewReader(content), int64(len(content)), contentType)
	if err != nil {
		return nil, models.NewDependencyError("object storage", err)
	}

	if err := s.userRepo.UpdateProfile(ctx, userID, map[string]any{"avatar_url": url}); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}
