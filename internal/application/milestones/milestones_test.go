package milestones

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hilthontt/encore/internal/domain"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockVisualizations struct{ mock.Mock }

func (m *mockVisualizations) GetBySongID(ctx context.Context, songID int64) ([]domain.Visualization, error) {
	args := m.Called(ctx, songID)
	records, _ := args.Get(0).([]domain.Visualization)
	return records, args.Error(1)
}

type mockComments struct{ mock.Mock }

func (m *mockComments) GetRawByID(ctx context.Context, id int64) (*domain.RawComment, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*domain.RawComment)
	return c, args.Error(1)
}

type mockSongVisits struct{ mock.Mock }

func (m *mockSongVisits) Publish(ctx context.Context, event domain.SongVisitEvent) error {
	return m.Called(ctx, event).Error(0)
}

type mockCommentReplies struct{ mock.Mock }

func (m *mockCommentReplies) Publish(ctx context.Context, event domain.CommentReplyEvent) error {
	return m.Called(ctx, event).Error(0)
}

type fixture struct {
	visualizations *mockVisualizations
	comments       *mockComments
	songVisits     *mockSongVisits
	commentReplies *mockCommentReplies
	service        *Service
}

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	f := &fixture{
		visualizations: &mockVisualizations{},
		comments:       &mockComments{},
		songVisits:     &mockSongVisits{},
		commentReplies: &mockCommentReplies{},
	}
	f.service = NewService(f.visualizations, f.comments, f.songVisits, f.commentReplies, logging.NewNop())
	f.service.now = func() time.Time { return fixedNow }
	return f
}

func plays(counts ...int64) []domain.Visualization {
	out := make([]domain.Visualization, 0, len(counts))
	for i, c := range counts {
		out = append(out, domain.Visualization{ID: int64(i + 1), SongID: 9, PlayCount: c})
	}
	return out
}

func song() *domain.Song {
	return &domain.Song{ID: 9, Name: "Intro", OwnerID: 3, Owner: &domain.User{ID: 3, NameUser: "lena"}}
}

func TestCheckAndNotifySongVisitsFiresOnExactMultiples(t *testing.T) {
	tests := []struct {
		name   string
		counts []int64
		fires  bool
	}{
		{name: "five plays", counts: []int64{5}, fires: true},
		{name: "seven plays", counts: []int64{7}, fires: false},
		{name: "ten plays across periods", counts: []int64{4, 6}, fires: true},
		{name: "no plays", counts: nil, fires: false},
		{name: "zero total", counts: []int64{0, 0}, fires: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.visualizations.On("GetBySongID", mock.Anything, int64(9)).Return(plays(tt.counts...), nil)
			if tt.fires {
				f.songVisits.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
			}

			require.NoError(t, f.service.CheckAndNotifySongVisits(context.Background(), song()))

			if tt.fires {
				f.songVisits.AssertExpectations(t)
			} else {
				f.songVisits.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestCheckAndNotifySongVisitsEventPayload(t *testing.T) {
	f := newFixture()
	f.visualizations.On("GetBySongID", mock.Anything, int64(9)).Return(plays(3, 7), nil)
	f.songVisits.On("Publish", mock.Anything, domain.SongVisitEvent{
		UserID:     3,
		UserName:   "lena",
		SongID:     9,
		SongName:   "Intro",
		VisitCount: 10,
		Timestamp:  fixedNow,
	}).Return(nil)

	require.NoError(t, f.service.CheckAndNotifySongVisits(context.Background(), song()))
	f.songVisits.AssertExpectations(t)
}

func TestCheckAndNotifySongVisitsUnknownOwner(t *testing.T) {
	f := newFixture()
	f.visualizations.On("GetBySongID", mock.Anything, int64(9)).Return(plays(5), nil)
	f.songVisits.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.SongVisitEvent) bool {
		return e.UserName == domain.UnknownUserName
	})).Return(nil)

	s := song()
	s.Owner = nil
	require.NoError(t, f.service.CheckAndNotifySongVisits(context.Background(), s))
	f.songVisits.AssertExpectations(t)
}

func TestCheckAndNotifySongVisitsIsNotIdempotent(t *testing.T) {
	f := newFixture()
	f.visualizations.On("GetBySongID", mock.Anything, int64(9)).Return(plays(5), nil)
	f.songVisits.On("Publish", mock.Anything, mock.Anything).Return(nil)

	ctx := context.Background()
	require.NoError(t, f.service.CheckAndNotifySongVisits(ctx, song()))
	require.NoError(t, f.service.CheckAndNotifySongVisits(ctx, song()))

	f.songVisits.AssertNumberOfCalls(t, "Publish", 2)
}

func TestCheckAndNotifySongVisitsInvalidSong(t *testing.T) {
	f := newFixture()

	assert.ErrorIs(t, f.service.CheckAndNotifySongVisits(context.Background(), nil), domain.ErrInvalidSong)
	assert.ErrorIs(t, f.service.CheckAndNotifySongVisits(context.Background(), &domain.Song{Name: "x"}), domain.ErrInvalidSong)

	f.visualizations.AssertNotCalled(t, "GetBySongID", mock.Anything, mock.Anything)
	f.songVisits.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestCheckAndNotifySongVisitsPropagatesErrors(t *testing.T) {
	lookupErr := errors.New("relation does not exist")
	f := newFixture()
	f.visualizations.On("GetBySongID", mock.Anything, int64(9)).Return(nil, lookupErr)
	assert.ErrorIs(t, f.service.CheckAndNotifySongVisits(context.Background(), song()), lookupErr)

	publishErr := errors.New("broker down")
	f = newFixture()
	f.visualizations.On("GetBySongID", mock.Anything, int64(9)).Return(plays(5), nil)
	f.songVisits.On("Publish", mock.Anything, mock.Anything).Return(publishErr)
	assert.ErrorIs(t, f.service.CheckAndNotifySongVisits(context.Background(), song()), publishErr)
}

func validReply() CommentReplyInput {
	return CommentReplyInput{CommentID: 5, SenderID: 1, SenderName: "bob", MessageContent: "agreed"}
}

func TestNotifyOnCommentReplyPublishesToParentAuthor(t *testing.T) {
	f := newFixture()
	f.comments.On("GetRawByID", mock.Anything, int64(5)).Return(&domain.RawComment{
		ID: 5, AuthorID: 2, User: &domain.User{ID: 2, NameUser: "ana"}, Content: "first!",
	}, nil)
	f.commentReplies.On("Publish", mock.Anything, domain.CommentReplyEvent{
		SenderID:       1,
		SenderName:     "bob",
		MessageContent: "agreed",
		RecipientID:    2,
		RecipientName:  "ana",
		Timestamp:      fixedNow,
	}).Return(nil)

	require.NoError(t, f.service.NotifyOnCommentReply(context.Background(), validReply()))
	f.commentReplies.AssertExpectations(t)
}

func TestNotifyOnCommentReplyPreconditionsInOrder(t *testing.T) {
	tests := []struct {
		name string
		in   CommentReplyInput
		want error
	}{
		{name: "everything missing", in: CommentReplyInput{}, want: domain.ErrMissingCommentID},
		{name: "sender and content missing", in: CommentReplyInput{CommentID: 5}, want: domain.ErrMissingSender},
		{name: "sender name missing", in: CommentReplyInput{CommentID: 5, SenderID: 1, MessageContent: "x"}, want: domain.ErrMissingSender},
		{name: "sender id missing", in: CommentReplyInput{CommentID: 5, SenderName: "bob", MessageContent: "x"}, want: domain.ErrMissingSender},
		{name: "content missing", in: CommentReplyInput{CommentID: 5, SenderID: 1, SenderName: "bob"}, want: domain.ErrMissingMessageContent},
		{name: "content blank", in: CommentReplyInput{CommentID: 5, SenderID: 1, SenderName: "bob", MessageContent: "  "}, want: domain.ErrMissingMessageContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			err := f.service.NotifyOnCommentReply(context.Background(), tt.in)

			assert.ErrorIs(t, err, tt.want)
			f.comments.AssertNotCalled(t, "GetRawByID", mock.Anything, mock.Anything)
			f.commentReplies.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestNotifyOnCommentReplyParentNotFound(t *testing.T) {
	f := newFixture()
	f.comments.On("GetRawByID", mock.Anything, int64(5)).Return(nil, nil)

	err := f.service.NotifyOnCommentReply(context.Background(), validReply())

	assert.ErrorIs(t, err, domain.ErrCommentNotFound)
	assert.Contains(t, err.Error(), "5")
	f.commentReplies.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestNotifyOnCommentReplyDoesNotSuppressSelfReplies(t *testing.T) {
	f := newFixture()
	f.comments.On("GetRawByID", mock.Anything, int64(5)).Return(&domain.RawComment{
		ID: 5, AuthorID: 1, User: &domain.User{ID: 1, NameUser: "bob"},
	}, nil)
	f.commentReplies.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.CommentReplyEvent) bool {
		return e.SenderID == e.RecipientID
	})).Return(nil)

	require.NoError(t, f.service.NotifyOnCommentReply(context.Background(), validReply()))
	f.commentReplies.AssertExpectations(t)
}

func TestNotifyOnCommentReplyPropagatesPublishError(t *testing.T) {
	publishErr := errors.New("channel closed")
	f := newFixture()
	f.comments.On("GetRawByID", mock.Anything, int64(5)).Return(&domain.RawComment{ID: 5, AuthorID: 2}, nil)
	f.commentReplies.On("Publish", mock.Anything, mock.Anything).Return(publishErr)

	assert.ErrorIs(t, f.service.NotifyOnCommentReply(context.Background(), validReply()), publishErr)
}
