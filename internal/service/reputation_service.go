package service

import (
	"context"
	"sort"

	"skillswap/internal/cache"
	"skillswap/internal/featureflags"
	"skillswap/internal/models"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
	"skillswap/internal/reputation"
)

const (
	defaultLeaderboardSize = 50
	maxLeaderboardSize     = 100
)

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	Rank       int                   `json:"rank"`
	User       models.User           `json:"user"`
	Reputation reputation.Reputation `json:"reputation"`
}

// ReputationService derives reputation from the store, with an optional Redis cache in front.
type ReputationService struct {
	repo  repository.ReputationRepository
	users repository.UserRepository
	cache *cache.Store
	flags *featureflags.Manager
}

// NewReputationService returns a new ReputationService. A nil or disabled cache computes fresh every call.
func NewReputationService(repo repository.ReputationRepository, users repository.UserRepository, store *cache.Store, flags *featureflags.Manager) *ReputationService {
	return &ReputationService{repo: repo, users: users, cache: store, flags: flags}
}

// Compute returns the user's reputation. Unknown users yield the zero-activity reputation.
func (s *ReputationService) Compute(ctx context.Context, userID string) (reputation.Reputation, error) {
	var rep reputation.Reputation
	hit, err := s.cache.CacheAside(ctx, cache.ReputationKey(userID), &rep, cache.ReputationTTL, func() error {
		stats, err := s.repo.Stats(ctx, userID)
		if err != nil {
			return err
		}
		rep = reputation.Compute(stats)
		return nil
	})
	if err != nil {
		return reputation.Reputation{}, err
	}
	if s.cache.Enabled() {
		if hit {
			observability.ReputationCache.WithLabelValues("hit").Inc()
		} else {
			observability.ReputationCache.WithLabelValues("miss").Inc()
		}
	}
	return rep, nil
}

// ComputeMany returns the reputation of each distinct user in ids.
func (s *ReputationService) ComputeMany(ctx context.Context, ids []string) (map[string]reputation.Reputation, error) {
	out := make(map[string]reputation.Reputation, len(ids))
	for _, id := range ids {
		if _, done := out[id]; done || id == "" {
			continue
		}
		rep, err := s.Compute(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = rep
	}
	return out, nil
}

// Leaderboard ranks users by reputation points, ties broken by user ID ascending.
func (s *ReputationService) Leaderboard(ctx context.Context, viewerID string, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}

	var entries []LeaderboardEntry
	build := func() error {
		var err error
		entries, err = s.buildLeaderboard(ctx)
		return err
	}

	if s.flags.Enabled(featureflags.LeaderboardCache, viewerID) {
		if _, err := s.cache.CacheAside(ctx, cache.LeaderboardKey, &entries, cache.LeaderboardTTL, build); err != nil {
			return nil, err
		}
	} else if err := build(); err != nil {
		return nil, err
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *ReputationService) buildLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	all, err := s.repo.AllStats(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for id, user := range users {
		entries = append(entries, LeaderboardEntry{User: user, Reputation: reputation.Compute(all[id])})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Reputation.ReputationPoints != b.Reputation.ReputationPoints {
			return a.Reputation.ReputationPoints > b.Reputation.ReputationPoints
		}
		return a.User.ID < b.User.ID
	})
	if len(entries) > maxLeaderboardSize {
		entries = entries[:maxLeaderboardSize]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Invalidate drops cached reputation for userIDs. Failures are logged only.
func (s *ReputationService) Invalidate(ctx context.Context, userIDs ...string) {
	if err := s.cache.InvalidateReputation(ctx, userIDs...); err != nil {
		observability.LogBestEffortFailure(ctx, "reputation.invalidate", err, map[string]any{"user_ids": userIDs})
	}
}
