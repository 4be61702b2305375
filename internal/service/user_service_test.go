package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type fakeObjectStore struct {
	keys        []string
	contentType string
	body        []byte
	err         error
}

func (s *fakeObjectStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	data, _ := io.ReadAll(body)
	s.keys = append(s.keys, key)
	s.contentType = contentType
	s.body = data
	return "https://cdn.example.com/" + key, nil
}

func TestUserService_SyncPrincipal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	t.Run("creates on first sight", func(t *testing.T) {
		u, err := e.users.SyncPrincipal(ctx, middleware.Principal{ID: "user_2abc", Email: "ana@example.com", Name: "Ana"})
		require.NoError(t, err)
		assert.Equal(t, "user_2abc", u.ID)
		assert.Equal(t, "Ana", u.Name)

		again, err := e.users.SyncPrincipal(ctx, middleware.Principal{ID: "user_2abc", Email: "ana@example.com"})
		require.NoError(t, err)
		assert.Equal(t, u.ID, again.ID)

		var count int64
		require.NoError(t, e.db.Model(&models.User{}).Where("email = ?", "ana@example.com").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("existing email wins over a new provider ID", func(t *testing.T) {
		existing := testutil.CreateUser(t, e.db, func(u *models.User) { u.Email = "sam@example.com" })
		u, err := e.users.SyncPrincipal(ctx, middleware.Principal{ID: "user_other", Email: "sam@example.com"})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, u.ID)
	})

	t.Run("incomplete identity", func(t *testing.T) {
		_, err := e.users.SyncPrincipal(ctx, middleware.Principal{ID: "user_x"})
		assertCode(t, err, models.CodeUnauthenticated)
	})
}

func TestUserService_UpdateProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, e.db, func(u *models.User) {
		u.Name = "Ana"
		u.Bio = "Guitarist"
	})
	str := func(s string) *string { return &s }

	t.Run("partial update", func(t *testing.T) {
		got, err := e.users.UpdateProfile(ctx, user.ID, UpdateProfileInput{Industry: str("  Music "), PhoneNumber: str("+14155550100")})
		require.NoError(t, err)
		assert.Equal(t, "Music", got.Industry)
		assert.Equal(t, "+14155550100", got.PhoneNumber)
		assert.Equal(t, "Ana", got.Name)
		assert.Equal(t, "Guitarist", got.Bio)
	})

	t.Run("empty string clears optional fields", func(t *testing.T) {
		got, err := e.users.UpdateProfile(ctx, user.ID, UpdateProfileInput{Bio: str("")})
		require.NoError(t, err)
		assert.Empty(t, got.Bio)
	})

	tests := []struct {
		name string
		in   UpdateProfileInput
	}{
		{"blank name", UpdateProfileInput{Name: str("   ")}},
		{"long bio", UpdateProfileInput{Bio: str(strings.Repeat("b", 501))}},
		{"bad phone", UpdateProfileInput{PhoneNumber: str("call me")}},
		{"bad avatar url", UpdateProfileInput{AvatarURL: str("not a url")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.users.UpdateProfile(ctx, user.ID, tt.in)
			assertCode(t, err, models.CodeValidation)
		})
	}
}

func TestUserService_UploadAvatar(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db)
	newService := func(store ObjectStore) *UserService {
		return NewUserService(repository.NewUserRepository(db), repository.NewSkillRepository(db),
			repository.NewReviewRepository(db), nil, store)
	}

	t.Run("stores the image and saves the URL", func(t *testing.T) {
		store := &fakeObjectStore{}
		got, err := newService(store).UploadAvatar(ctx, user.ID, pngHeader)
		require.NoError(t, err)
		require.Len(t, store.keys, 1)
		assert.True(t, strings.HasPrefix(store.keys[0], "avatars/"+user.ID+"/"))
		assert.True(t, strings.HasSuffix(store.keys[0], ".png"))
		assert.Equal(t, "image/png", store.contentType)
		assert.Equal(t, pngHeader, store.body)
		assert.Equal(t, "https://cdn.example.com/"+store.keys[0], got.AvatarURL)
	})

	t.Run("rejects non-images", func(t *testing.T) {
		_, err := newService(&fakeObjectStore{}).UploadAvatar(ctx, user.ID, []byte("plain text, not an image"))
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("rejects empty and oversized files", func(t *testing.T) {
		_, err := newService(&fakeObjectStore{}).UploadAvatar(ctx, user.ID, nil)
		assertCode(t, err, models.CodeValidation)

		big := append(bytes.Clone(pngHeader), make([]byte, MaxAvatarBytes)...)
		_, err = newService(&fakeObjectStore{}).UploadAvatar(ctx, user.ID, big)
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("storage failures are dependency errors", func(t *testing.T) {
		_, err := newService(nil).UploadAvatar(ctx, user.ID, pngHeader)
		assertCode(t, err, models.CodeDependency)

		_, err = newService(&fakeObjectStore{err: errors.New("bucket gone")}).UploadAvatar(ctx, user.ID, pngHeader)
		assertCode(t, err, models.CodeDependency)
	})
}

func TestUserService_GetProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, e.db)
	viewer := testutil.CreateUser(t, e.db)

	shown, err := e.skills.AddSkill(ctx, user.ID, "Go")
	require.NoError(t, err)
	hidden, err := e.skills.AddSkill(ctx, user.ID, "Rust")
	require.NoError(t, err)
	_, err = e.skills.SetSkillVisibility(ctx, user.ID, hidden.ID, false)
	require.NoError(t, err)

	own, err := e.users.GetProfile(ctx, user.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, own.IsOwner)
	assert.Len(t, own.Skills, 2)

	public, err := e.users.GetProfile(ctx, viewer.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, public.IsOwner)
	require.Len(t, public.Skills, 1)
	assert.Equal(t, shown.ID, public.Skills[0].ID)

	_, err = e.users.GetProfile(ctx, viewer.ID, "missing")
	assertCode(t, err, models.CodeNotFound)
}
