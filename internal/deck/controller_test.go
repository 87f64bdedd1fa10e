package deck_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/flashdeck/internal/clock"
	"github.com/vytor/flashdeck/internal/deck"
	"github.com/vytor/flashdeck/internal/flashcard"
	"github.com/vytor/flashdeck/internal/logger"
	"github.com/vytor/flashdeck/internal/models"
	"github.com/vytor/flashdeck/internal/repository"
	"github.com/vytor/flashdeck/internal/repository/sqlite"
	"github.com/vytor/flashdeck/internal/testutil"
	"github.com/vytor/flashdeck/internal/testutil/mocks"
)

var start = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type ControllerSuite struct {
	suite.Suite
	ctx      context.Context
	db       *sql.DB
	store    repository.CardStateRepository
	sessions repository.SessionLogRepository
	clock    *clock.Fixed
}

func (s *ControllerSuite) SetupTest() {
	s.ctx = logger.NewContext(context.Background(), logger.Discard())
	s.db = testutil.NewTestDB(s.T())
	s.store = sqlite.NewCardStateRepository(s.db)
	s.sessions = sqlite.NewSessionLogRepository(s.db)
	s.clock = clock.NewFixed(start)
}

func (s *ControllerSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *ControllerSuite) newController(n int) *deck.Controller {
	return deck.New(models.Deck{CategoryID: "spanish", Cards: testutil.Baseline(n)}, deck.Options{
		Store:    s.store,
		Sessions: s.sessions,
		Clock:    s.clock,
		UseSRS:   true,
	})
}

func ids(cards []models.Card) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func (s *ControllerSuite) loggedSessions() []models.ReviewSession {
	sessions, err := s.sessions.LoadAll(s.ctx)
	s.Require().NoError(err)
	return sessions
}

func (s *ControllerSuite) TestHardFilterAndPromptAfterFullPass() {
	c := s.newController(5)

	c.Rate(s.ctx, 1, models.DifficultyEasy)
	c.Rate(s.ctx, 2, models.DifficultyHard)
	s.Equal(2, c.Cursor())

	s.Equal([]int{2}, ids(c.FilteredView(models.FilterHard, "", true)))

	c.Advance(s.ctx, deck.Forward)
	c.Advance(s.ctx, deck.Forward)
	s.Equal(deck.StateBrowsing, c.State())
	c.Advance(s.ctx, deck.Forward)

	s.Equal(deck.StateReviewPrompt, c.State())
	s.Equal([]int{2}, ids(c.HardCards()))
	_, ok := c.Current()
	s.False(ok)

	logged := s.loggedSessions()
	s.Require().Len(logged, 1)
	s.Equal(models.SessionDeckPass, logged[0].Kind)
	s.Equal(1, logged[0].Easy)
	s.Equal(1, logged[0].Hard)
	s.True(logged[0].Completed)
}

func (s *ControllerSuite) TestFullPassWithoutHardCardsWraps() {
	c := s.newController(3)
	c.Rate(s.ctx, 1, models.DifficultyEasy)
	c.Advance(s.ctx, deck.Forward)
	c.Advance(s.ctx, deck.Forward)

	s.Equal(deck.StateBrowsing, c.State())
	s.Equal(0, c.Cursor())
	s.Len(s.loggedSessions(), 1)
}

func (s *ControllerSuite) TestPassWithoutRatingsIsNotLogged() {
	c := s.newController(2)
	c.Advance(s.ctx, deck.Forward)
	c.Advance(s.ctx, deck.Forward)

	s.Equal(0, c.Cursor())
	s.Empty(s.loggedSessions())
}

func (s *ControllerSuite) TestFilteredWrapDoesNotPrompt() {
	c := s.newController(3)
	c.ApplyRating(s.ctx, 1, models.DifficultyHard)
	c.ApplyRating(s.ctx, 2, models.DifficultyHard)
	c.SetView(s.ctx, models.FilterHard, "")

	c.Advance(s.ctx, deck.Forward)
	c.Advance(s.ctx, deck.Forward)

	s.Equal(deck.StateBrowsing, c.State())
	s.Equal(0, c.Cursor())
}

func (s *ControllerSuite) TestSearchedWrapDoesNotPrompt() {
	c := s.newController(2)
	c.ApplyRating(s.ctx, 1, models.DifficultyHard)
	c.SetView(s.ctx, models.FilterAll, "front")

	c.Advance(s.ctx, deck.Forward)
	c.Advance(s.ctx, deck.Forward)

	s.Equal(deck.StateBrowsing, c.State())
}

func (s *ControllerSuite) TestHardReviewPassReachesScoreboard() {
	c := s.newController(5)
	c.ApplyRating(s.ctx, 1, models.DifficultyHard)
	c.ApplyRating(s.ctx, 3, models.DifficultyHard)
	for i := 0; i < 5; i++ {
		c.Advance(s.ctx, deck.Forward)
	}
	s.Require().Equal(deck.StateReviewPrompt, c.State())

	s.Require().NoError(c.StartHardReview(s.ctx))
	s.Equal(deck.StateHardReview, c.State())
	s.Equal([]int{1, 3}, ids(c.View()))

	current, ok := c.Current()
	s.Require().True(ok)
	s.Equal(1, current.ID)

	c.Rate(s.ctx, 1, models.DifficultyEasy)
	s.Equal([]int{3}, ids(c.View()))
	c.Rate(s.ctx, 3, models.DifficultyHard)

	s.Equal(deck.StateScoreboard, c.State())
	board, ok := c.Scoreboard()
	s.Require().True(ok)
	s.Equal(2, board.Total())
	s.Equal(1, board.Easy)
	s.Equal(1, board.Hard)
	s.True(board.Completed)

	s.Equal([]int{3}, ids(c.FilteredView(models.FilterHard, "", true)))

	logged := s.loggedSessions()
	s.Require().Len(logged, 1)
	s.Equal(models.SessionHardReview, logged[0].Kind)
	s.Equal(2, logged[0].Total())

	s.Require().NoError(c.StartHardReview(s.ctx))
	s.Equal([]int{3}, ids(c.View()))
}

func (s *ControllerSuite) TestHardCardRatedHardAgainIsNotRequeued() {
	c := s.newController(2)
	c.ApplyRating(s.ctx, 2, models.DifficultyHard)
	c.Advance(s.ctx, deck.Forward)
	c.Advance(s.ctx, deck.Forward)
	s.Require().NoError(c.StartHardReview(s.ctx))

	c.Rate(s.ctx, 2, models.DifficultyHard)

	s.Equal(deck.StateScoreboard, c.State())
	s.Equal([]int{2}, ids(c.HardCards()))
}

func (s *ControllerSuite) TestStartHardReviewWithNothingHardReturnsToBrowsing() {
	c := s.newController(2)
	c.ApplyRating(s.ctx, 1, models.DifficultyHard)
	c.Advance(s.ctx, deck.Forward)
	c.Advance(s.ctx, deck.Forward)
	s.Require().Equal(deck.StateReviewPrompt, c.State())

	c.ApplyRating(s.ctx, 1, models.DifficultyEasy)
	s.Require().NoError(c.StartHardReview(s.ctx))
	s.Equal(deck.StateBrowsing, c.State())
}

func (s *ControllerSuite) TestExitReviewFlushesPartialSession() {
	c := s.newController(3)
	c.ApplyRating(s.ctx, 1, models.DifficultyHard)
	c.ApplyRating(s.ctx, 2, models.DifficultyHard)
	for i := 0; i < 3; i++ {
		c.Advance(s.ctx, deck.Forward)
	}
	s.Require().NoError(c.StartHardReview(s.ctx))
	s.clock.Advance(time.Minute)
	c.Rate(s.ctx, 2, models.DifficultyMedium)

	s.Require().NoError(c.ExitReview(s.ctx))

	s.Equal(deck.StateBrowsing, c.State())
	s.Equal(0, c.Cursor())
	logged := s.loggedSessions()
	s.Require().Len(logged, 1)
	s.Equal(1, logged[0].Medium)
	s.False(logged[0].Completed)
	s.True(start.Add(time.Minute).Equal(logged[0].EndedAt))
	_, ok := c.Scoreboard()
	s.False(ok)
}

func (s *ControllerSuite) TestExitReviewWithoutRatingsLogsNothing() {
	c := s.newController(1)
	c.ApplyRating(s.ctx, 1, models.DifficultyHard)
	c.Advance(s.ctx, deck.Forward)
	s.Require().NoError(c.StartHardReview(s.ctx))

	s.Require().NoError(c.ExitReview(s.ctx))
	s.Empty(s.loggedSessions())
}

func (s *ControllerSuite) TestInvalidTransitions() {
	c := s.newController(2)

	s.ErrorIs(c.StartHardReview(s.ctx), deck.ErrInvalidTransition)
	s.ErrorIs(c.DismissPrompt(), deck.ErrInvalidTransition)
	s.ErrorIs(c.ExitReview(s.ctx), deck.ErrInvalidTransition)
	s.Equal(deck.StateBrowsing, c.State())
}

func (s *ControllerSuite) TestDismissPromptRewinds() {
	c := s.newController(2)
	c.ApplyRating(s.ctx, 2, models.DifficultyHard)
	c.Advance(s.ctx, deck.Forward)
	c.Advance(s.ctx, deck.Forward)

	s.Require().NoError(c.DismissPrompt())
	s.Equal(deck.StateBrowsing, c.State())
	s.Equal(0, c.Cursor())
}

func (s *ControllerSuite) TestApplyRatingUnknownIDIsNoop() {
	c := s.newController(3)
	before := c.Snapshot()

	c.ApplyRating(s.ctx, 42, models.DifficultyEasy)
	c.Rate(s.ctx, 42, models.DifficultyEasy)
	c.ToggleFavorite(s.ctx, 42)

	s.Equal(before, c.Snapshot())
	s.Equal(0, c.Cursor())
}

func (s *ControllerSuite) TestApplyRatingPersists() {
	c := s.newController(3)
	c.ApplyRating(s.ctx, 2, models.DifficultyMedium)
	c.ToggleFavorite(s.ctx, 3)

	loaded, err := s.store.Load(s.ctx, "spanish", testutil.Baseline(3))
	s.Require().NoError(err)
	s.Equal(models.DifficultyMedium, loaded[1].Difficulty)
	s.Require().NotNil(loaded[1].Schedule)
	s.True(start.Add(24 * time.Hour).Equal(loaded[1].Schedule.DueDate))
	s.True(loaded[2].Favorite)
}

func (s *ControllerSuite) TestResetDeckMakesEveryCardDue() {
	c := s.newController(5)
	for id := 1; id <= 5; id++ {
		c.ApplyRating(s.ctx, id, models.DifficultyEasy)
	}
	c.ToggleFavorite(s.ctx, 4)
	s.Empty(c.FilteredView(models.FilterDue, "", true))

	c.ResetDeck(s.ctx, testutil.Baseline(5))

	snap := c.Snapshot()
	s.Len(flashcard.GetDueCards(snap.Cards, s.clock.Now()), 5)
	s.Equal([]int{1, 2, 3, 4, 5}, ids(c.FilteredView(models.FilterDue, "", true)))
	for _, card := range snap.Cards {
		s.True(card.IsNew())
		s.Equal(models.DifficultyNone, card.Difficulty)
		s.Equal(card.ID == 4, card.Favorite)
	}
	s.Equal(deck.StateBrowsing, c.State())
}

func (s *ControllerSuite) TestResetDeckReassignsIDsByBaselineOrder() {
	c := s.newController(3)
	c.ToggleFavorite(s.ctx, 1)

	baseline := []models.Card{{Front: "x", Back: "y"}, {Front: "z", Back: "w"}}
	c.ResetDeck(s.ctx, baseline)

	snap := c.Snapshot()
	s.Equal([]int{1, 2}, ids(snap.Cards))
	s.Equal("x", snap.Cards[0].Front)
	s.True(snap.Cards[0].Favorite)
}

func (s *ControllerSuite) TestDisablingSRSKeepsScheduleAndDifficulty() {
	c := s.newController(2)
	c.ApplyRating(s.ctx, 1, models.DifficultyEasy)
	scheduled := c.Snapshot().Cards[0].Schedule

	c.SetUseSRS(s.ctx, false)
	s.Equal(models.DifficultyEasy, c.Snapshot().Cards[0].Difficulty)

	s.clock.Advance(48 * time.Hour)
	c.ApplyRating(s.ctx, 1, models.DifficultyHard)

	card := c.Snapshot().Cards[0]
	s.Equal(models.DifficultyHard, card.Difficulty)
	s.Equal(scheduled, card.Schedule)
	s.Empty(c.FilteredView(models.FilterDue, "", false))
	s.Zero(c.Stats().Due)
}

func (s *ControllerSuite) TestRatingInDueViewKeepsCursorOnNextCard() {
	c := s.newController(3)
	c.SetView(s.ctx, models.FilterDue, "")

	c.Rate(s.ctx, 1, models.DifficultyEasy)

	s.Equal([]int{2, 3}, ids(c.View()))
	current, ok := c.Current()
	s.Require().True(ok)
	s.Equal(2, current.ID)
}

func (s *ControllerSuite) TestAdvanceWrapsBackward() {
	c := s.newController(4)
	c.Advance(s.ctx, deck.Backward)
	s.Equal(3, c.Cursor())
	c.Advance(s.ctx, deck.Backward)
	s.Equal(2, c.Cursor())
}

func (s *ControllerSuite) TestAdvanceOnEmptyViewIsNoop() {
	c := s.newController(3)
	c.SetView(s.ctx, models.FilterFavorites, "")

	c.Advance(s.ctx, deck.Forward)
	c.Advance(s.ctx, deck.Backward)

	s.Equal(0, c.Cursor())
	_, ok := c.Current()
	s.False(ok)
}

func (s *ControllerSuite) TestUnfavoritingCurrentCardKeepsCursorInView() {
	c := s.newController(3)
	c.ToggleFavorite(s.ctx, 1)
	c.ToggleFavorite(s.ctx, 2)
	c.SetView(s.ctx, models.FilterFavorites, "")
	c.Advance(s.ctx, deck.Forward)
	s.Require().Equal(1, c.Cursor())

	c.ToggleFavorite(s.ctx, 2)

	s.Equal([]int{1}, ids(c.View()))
	current, ok := c.Current()
	s.Require().True(ok)
	s.Equal(1, current.ID)
}

func (s *ControllerSuite) TestFavoritingEarlierCardKeepsCurrentCard() {
	c := s.newController(3)
	c.ToggleFavorite(s.ctx, 3)
	c.SetView(s.ctx, models.FilterFavorites, "")

	c.ToggleFavorite(s.ctx, 1)

	s.Equal([]int{1, 3}, ids(c.View()))
	s.Equal(1, c.Cursor())
	current, ok := c.Current()
	s.Require().True(ok)
	s.Equal(3, current.ID)
}

func (s *ControllerSuite) TestRatingEarlierCardOutOfViewKeepsCurrentCard() {
	c := s.newController(5)
	for _, id := range []int{2, 4, 5} {
		c.ApplyRating(s.ctx, id, models.DifficultyHard)
	}
	c.SetView(s.ctx, models.FilterHard, "")
	c.Advance(s.ctx, deck.Forward)
	current, ok := c.Current()
	s.Require().True(ok)
	s.Require().Equal(4, current.ID)

	c.Rate(s.ctx, 2, models.DifficultyEasy)

	s.Equal([]int{4, 5}, ids(c.View()))
	current, ok = c.Current()
	s.Require().True(ok)
	s.Equal(4, current.ID)

	c.ApplyRating(s.ctx, 4, models.DifficultyMedium)
	current, ok = c.Current()
	s.Require().True(ok)
	s.Equal(5, current.ID)
}

func (s *ControllerSuite) TestRateWithEmptyViewIsNoop() {
	c := s.newController(3)
	c.SetView(s.ctx, models.FilterFavorites, "")

	c.Rate(s.ctx, 3, models.DifficultyHard)

	s.Equal(models.DifficultyNone, c.Snapshot().Cards[2].Difficulty)
	c.Close(s.ctx)
	s.Empty(s.loggedSessions())
}

func (s *ControllerSuite) TestStats() {
	c := s.newController(4)
	c.ApplyRating(s.ctx, 1, models.DifficultyEasy)
	c.ApplyRating(s.ctx, 2, models.DifficultyHard)
	c.ToggleFavorite(s.ctx, 3)

	stats := c.Stats()
	s.Equal(models.DeckStats{Total: 4, New: 2, Due: 2, Favorites: 1, Easy: 1, Hard: 1}, stats)

	s.clock.Advance(24 * time.Hour)
	s.Equal(4, c.Stats().Due)
}

func (s *ControllerSuite) TestSnapshotIsDetached() {
	c := s.newController(1)
	c.ApplyRating(s.ctx, 1, models.DifficultyEasy)

	snap := c.Snapshot()
	snap.Cards[0].Schedule.IntervalDays = 99
	snap.Cards[0].Favorite = true

	again := c.Snapshot()
	s.Equal(1, again.Cards[0].Schedule.IntervalDays)
	s.False(again.Cards[0].Favorite)
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func TestController_PersistenceFailureIsSwallowed(t *testing.T) {
	ctx := logger.NewContext(context.Background(), logger.Discard())
	store := new(mocks.MockCardStateRepository)
	store.On("Save", mock.Anything, "geo", mock.Anything).Return(errors.New("disk full"))

	c := deck.New(models.Deck{CategoryID: "geo", Cards: testutil.Baseline(2)}, deck.Options{
		Store:  store,
		Clock:  clock.NewFixed(start),
		UseSRS: true,
	})

	require.NotPanics(t, func() { c.ApplyRating(ctx, 1, models.DifficultyEasy) })
	assert.Equal(t, models.DifficultyEasy, c.Snapshot().Cards[0].Difficulty)
	store.AssertNumberOfCalls(t, "Save", 1)
}

func TestController_SessionLogFailureIsSwallowed(t *testing.T) {
	ctx := logger.NewContext(context.Background(), logger.Discard())
	store := new(mocks.MockCardStateRepository)
	store.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	sessions := new(mocks.MockSessionLogRepository)
	sessions.On("Append", mock.Anything, mock.Anything).Return(nil, errors.New("locked"))

	c := deck.New(models.Deck{CategoryID: "geo", Cards: testutil.Baseline(1)}, deck.Options{
		Store:    store,
		Sessions: sessions,
		Clock:    clock.NewFixed(start),
		UseSRS:   true,
	})

	c.Rate(ctx, 1, models.DifficultyEasy)

	assert.Equal(t, deck.StateBrowsing, c.State())
	sessions.AssertCalled(t, "Append", mock.Anything, mock.MatchedBy(func(s models.ReviewSession) bool {
		return s.Kind == models.SessionDeckPass && s.Easy == 1 && s.Completed
	}))
}

func TestController_UnknownRatingNotSaved(t *testing.T) {
	quiet := logger.NewContext(context.Background(), logger.Discard())
	store := new(mocks.MockCardStateRepository)
	c := deck.New(models.Deck{CategoryID: "geo", Cards: testutil.Baseline(1)}, deck.Options{
		Store:  store,
	})

	c.ApplyRating(quiet, 7, models.DifficultyHard)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)

	assert.Panics(t, func() { c.ApplyRating(quiet, 1, models.Difficulty("great")) })
}

func TestController_LogsThroughContextLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithColors(false)).WithField("request_id", "req-1")
	ctx := logger.NewContext(context.Background(), log)
	store := new(mocks.MockCardStateRepository)
	store.On("Save", mock.Anything, "geo", mock.Anything).Return(errors.New("disk full"))

	c := deck.New(models.Deck{CategoryID: "geo", Cards: testutil.Baseline(1)}, deck.Options{Store: store})
	c.ApplyRating(ctx, 1, models.DifficultyEasy)

	out := buf.String()
	assert.Contains(t, out, "[deck]")
	assert.Contains(t, out, "failed to persist deck")
	assert.Contains(t, out, "category=geo")
	assert.Contains(t, out, "request_id=req-1")
}
