package service

import (
	"context"

	"github.com/d60-Lab/gin-blog/internal/repository"
)

// Profile 作者主页：作者的帖子列表与关注统计
type Profile struct {
	Author         AuthorView `json:"author"`
	Feed           *FeedPage  `json:"feed"`
	FollowerCount  int64      `json:"follower_count"`
	FollowingCount int64      `json:"following_count"`
	Following      bool       `json:"following"`
}

type ProfileService interface {
	Get(ctx context.Context, viewerID uint, username string, page int) (*Profile, error)
}

type profileService struct {
	users   repository.UserRepository
	listing ListingService
	follows FollowService
}

func NewProfileService(users repository.UserRepository, listing ListingService, follows FollowService) ProfileService {
	return &profileService{users: users, listing: listing, follows: follows}
}

func (s *profileService) Get(ctx context.Context, viewerID uint, username string, page int) (*Profile, error) {
	feed, err := s.listing.List(ctx, FeedByAuthor, username, page)
	if err != nil {
		return nil, err
	}
	author := *feed.Author
	p := &Profile{Author: author, Feed: feed}
	if p.FollowerCount, err = s.follows.FollowerCount(ctx, author.ID); err != nil {
		return nil, err
	}
	if p.FollowingCount, err = s.follows.FollowingCount(ctx, author.ID); err != nil {
		return nil, err
	}
	if p.Following, err = s.follows.IsFollowing(ctx, viewerID, author.ID); err != nil {
		return nil, err
	}
	return p, nil
}
