package intersect

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) UpsertCredential(ctx context.Context, cred *Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *MockStore) GetCredential(ctx context.Context, userID string) (*Credential, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Credential), args.Error(1)
}

func (m *MockStore) UpdateToken(ctx context.Context, userID, accessToken string, expiry *time.Time) error {
	args := m.Called(ctx, userID, accessToken, expiry)
	return args.Error(0)
}

func (m *MockStore) SyncLikedSongs(ctx context.Context, userID string, songIDs []string) (*Credential, error) {
	args := m.Called(ctx, userID, songIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Credential), args.Error(1)
}

func (m *MockStore) GetLikedSongIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) CreateGroup(ctx context.Context, name, hostUserID string) (*Group, error) {
	args := m.Called(ctx, name, hostUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Group), args.Error(1)
}

func (m *MockStore) GetGroup(ctx context.Context, groupID string) (*Group, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Group), args.Error(1)
}

func (m *MockStore) ListGroupsForUser(ctx context.Context, userID string) ([]GroupSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]GroupSummary), args.Error(1)
}

func (m *MockStore) AddMember(ctx context.Context, groupID, userID string) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *MockStore) ClaimGeneration(ctx context.Context, groupID string, now time.Time, cooldown time.Duration) (time.Duration, error) {
	args := m.Called(ctx, groupID, now, cooldown)
	return args.Get(0).(time.Duration), args.Error(1)
}

func (m *MockStore) SetPlaylist(ctx context.Context, groupID, playlistID string, songCount int, updatedAt time.Time) error {
	args := m.Called(ctx, groupID, playlistID, songCount, updatedAt)
	return args.Error(0)
}

func (m *MockStore) CreatePreview(ctx context.Context, p *Preview) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockStore) GetPreview(ctx context.Context, previewID string) (*Preview, error) {
	args := m.Called(ctx, previewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Preview), args.Error(1)
}
