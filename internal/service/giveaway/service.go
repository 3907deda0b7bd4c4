package giveaway

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"

	apperrors "github.com/open-builders/guild-bot/internal/common/errors"
	"github.com/open-builders/guild-bot/internal/common/logger"
	dg "github.com/open-builders/guild-bot/internal/domain/giveaway"
	"github.com/open-builders/guild-bot/internal/metrics"
	"github.com/open-builders/guild-bot/internal/utils/keylock"
	"github.com/open-builders/guild-bot/internal/utils/random"
)

const (
	MaxWinners              = 50
	DefaultRetentionDays    = 7
	timerResolutionTimeout  = 30 * time.Second
	collaboratorCallTimeout = 10 * time.Second
)

var idPattern = regexp.MustCompile(`\d{17,20}`)

// ParticipationTracker receives best-effort notifications for user counters.
type ParticipationTracker interface {
	GiveawayEntered(ctx context.Context, guildID, userID string) error
	GiveawayWon(ctx context.Context, guildID, userID string) error
}

// CreateInput carries a validated create request. Duration comes from the
// duration codec upstream.
type CreateInput struct {
	GuildID      string
	ChannelID    string
	HostID       string
	Prize        string
	Duration     time.Duration
	WinnerCount  int
	Requirements *dg.Requirements
}

// Service owns the giveaway lifecycle: entries, timed resolution,
// cancellation and reroll.
type Service struct {
	repo      dg.Repository
	renderer  dg.Renderer
	tracker   ParticipationTracker
	scheduler *Scheduler
	locks     *keylock.Locker
	now       func() time.Time
	log       zerolog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTracker(t ParticipationTracker) Option {
	return func(s *Service) { s.tracker = t }
}

func WithMaxTimerDelay(d time.Duration) Option {
	return func(s *Service) { s.scheduler.maxDelay = d }
}

func NewService(repo dg.Repository, renderer dg.Renderer, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		renderer: renderer,
		locks:    keylock.New(0),
		now:      time.Now,
		log:      logger.Component("giveaway"),
	}
	s.scheduler = NewScheduler(DefaultMaxTimerDelay, func() time.Time { return s.now() }, s.onTimer)
	for _, opt := range opts {
		opt(s)
	}
	if s.scheduler.maxDelay <= 0 {
		s.scheduler.maxDelay = DefaultMaxTimerDelay
	}
	return s
}

// Scheduler exposes the timer registry.
func (s *Service) Scheduler() *Scheduler {
	return s.scheduler
}

func (s *Service) onTimer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), timerResolutionTimeout)
	defer cancel()

	if _, err := s.Resolve(ctx, id); err != nil {
		s.log.Error().Err(err).Str("giveaway_id", id).Msg("scheduled resolution failed")
	}
}

// Create posts the announcement, persists the giveaway under the
// announcement's message id and arms its resolution timer.
func (s *Service) Create(ctx context.Context, in CreateInput) (*dg.Giveaway, error) {
	prize := strings.TrimSpace(in.Prize)
	if prize == "" {
		return nil, apperrors.NewValidationError("prize", "must not be empty")
	}
	if in.WinnerCount < 1 || in.WinnerCount > MaxWinners {
		return nil, apperrors.NewValidationError("winner_count", "must be between 1 and 50")
	}
	if in.Duration <= 0 {
		return nil, apperrors.NewValidationError("duration", "must be positive")
	}

	if err := s.renderer.CanPost(ctx, in.ChannelID); err != nil {
		appErr := apperrors.NewValidationError("channel", "the bot cannot post in this channel")
		appErr.Cause = err
		return nil, appErr
	}

	now := s.now().UTC()
	end := now.Add(in.Duration)
	id, err := s.renderer.Publish(ctx, dg.Draft{
		GuildID:      in.GuildID,
		ChannelID:    in.ChannelID,
		HostID:       in.HostID,
		Prize:        prize,
		WinnerCount:  in.WinnerCount,
		EndTime:      end,
		Requirements: in.Requirements,
	})
	if err != nil {
		return nil, apperrors.NewCollaboratorError("publish giveaway announcement", err)
	}

	g := &dg.Giveaway{
		MessageID:    id,
		GuildID:      in.GuildID,
		ChannelID:    in.ChannelID,
		HostID:       in.HostID,
		Prize:        prize,
		WinnerCount:  in.WinnerCount,
		CreatedAt:    now,
		EndTime:      end,
		Participants: []string{},
		Winners:      []string{},
		Requirements: in.Requirements,
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, apperrors.NewDatabaseError("create giveaway", err)
	}

	s.scheduler.Schedule(id, end)
	metrics.Inc(metrics.GiveawayTransitions, "created")
	s.log.Info().
		Str("giveaway_id", id).
		Str("guild_id", g.GuildID).
		Time("end_time", end).
		Int("winner_count", g.WinnerCount).
		Msg("giveaway created")

	return g.Clone(), nil
}

func (s *Service) Get(ctx context.Context, id string) (*dg.Giveaway, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate("get giveaway", id, err)
	}
	return g, nil
}

// ListActive returns the guild's giveaways still accepting entries or
// awaiting resolution.
func (s *Service) ListActive(ctx context.Context, guildID string) ([]*dg.Giveaway, error) {
	list, err := s.repo.ListByGuild(ctx, guildID, true)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list active giveaways", err)
	}
	return list, nil
}

// RecordEntry adds userID to the participants. It reports whether anything
// changed; unknown, ended or expired giveaways are a silent no-op. Role
// requirements are not checked, see RecordMemberEntry.
func (s *Service) RecordEntry(ctx context.Context, id, userID string) (bool, error) {
	return s.mutateEntry(ctx, id, userID, true, nil)
}

// RecordMemberEntry is RecordEntry for a member holding roles. A giveaway
// whose required role is missing from roles is left unchanged.
func (s *Service) RecordMemberEntry(ctx context.Context, id, userID string, roles []string) (bool, error) {
	return s.mutateEntry(ctx, id, userID, true, func(g *dg.Giveaway) bool {
		return g.Requirements.Satisfied(roles)
	})
}

// RemoveEntry removes userID from the participants with the same no-op rules
// as RecordEntry.
func (s *Service) RemoveEntry(ctx context.Context, id, userID string) (bool, error) {
	return s.mutateEntry(ctx, id, userID, false, nil)
}

func (s *Service) mutateEntry(ctx context.Context, id, userID string, enter bool, eligible func(g *dg.Giveaway) bool) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	now := s.now()
	var changed bool
	g, err := s.repo.Update(ctx, id, func(g *dg.Giveaway) error {
		changed = false
		if !g.AcceptsEntries(now) {
			return dg.ErrNoChange
		}
		if enter {
			if eligible != nil && !eligible(g) {
				s.log.Debug().Str("giveaway_id", id).Str("user_id", userID).Msg("entrant lacks the required role")
				return dg.ErrNoChange
			}
			if g.HasParticipant(userID) {
				return dg.ErrNoChange
			}
			g.Participants = append(g.Participants, userID)
		} else {
			idx := slices.Index(g.Participants, userID)
			if idx < 0 {
				return dg.ErrNoChange
			}
			g.Participants = append(g.Participants[:idx], g.Participants[idx+1:]...)
		}
		changed = true
		return nil
	})
	if errors.Is(err, dg.ErrGiveawayNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewDatabaseError("update giveaway entries", err)
	}
	if !changed {
		return false, nil
	}

	op := "remove"
	if enter {
		op = "add"
	}
	metrics.Inc(metrics.GiveawayEntries, op)
	s.log.Debug().Str("giveaway_id", id).Str("user_id", userID).Str("op", op).
		Int("participants", len(g.Participants)).Msg("entry updated")

	s.render(ctx, dg.RenderRequest{Giveaway: g, Intent: dg.IntentUpdateEntryCount})
	if enter && s.tracker != nil {
		s.track(ctx, g.GuildID, userID, s.tracker.GiveawayEntered)
	}
	return true, nil
}

// Resolve ends the giveaway and draws winners. Calling it on an ended
// giveaway returns the stored record without drawing or announcing again.
func (s *Service) Resolve(ctx context.Context, id string) (*dg.Giveaway, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	now := s.now().UTC()
	var transitioned bool
	g, err := s.repo.Update(ctx, id, func(g *dg.Giveaway) error {
		transitioned = false
		if g.Ended {
			return dg.ErrNoChange
		}
		winners, err := random.Sample(g.Participants, g.WinnerCount)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to draw winners")
		}
		g.Ended = true
		g.Winners = winners
		g.EndedAt = &now
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, s.translate("resolve giveaway", id, err)
	}
	s.scheduler.Cancel(id)
	if !transitioned {
		return g, nil
	}

	intent := dg.IntentAnnounceWinners
	if len(g.Winners) == 0 {
		intent = dg.IntentAnnounceNoEntries
	}
	metrics.Inc(metrics.GiveawayTransitions, "ended")
	s.log.Info().
		Str("giveaway_id", id).
		Str("guild_id", g.GuildID).
		Int("participants", len(g.Participants)).
		Strs("winners", g.Winners).
		Msg("giveaway resolved")

	s.render(ctx, dg.RenderRequest{Giveaway: g, Intent: intent})
	if s.tracker != nil {
		for _, w := range g.Winners {
			s.track(ctx, g.GuildID, w, s.tracker.GiveawayWon)
		}
	}
	return g, nil
}

// EndNow resolves an active giveaway ahead of its end time.
func (s *Service) EndNow(ctx context.Context, id, executorID string) (*dg.Giveaway, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.Ended {
		return nil, apperrors.NewInvalidStateError("giveaway", "has already ended")
	}
	s.log.Info().Str("giveaway_id", id).Str("user_id", executorID).Msg("giveaway ended early")
	return s.Resolve(ctx, id)
}

// Cancel ends an active giveaway without winners.
func (s *Service) Cancel(ctx context.Context, id, executorID, reason string) (*dg.Giveaway, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	now := s.now().UTC()
	reason = strings.TrimSpace(reason)
	g, err := s.repo.Update(ctx, id, func(g *dg.Giveaway) error {
		if g.Ended {
			return apperrors.NewInvalidStateError("giveaway", "has already ended")
		}
		g.Ended = true
		g.Cancelled = true
		g.CancelledBy = executorID
		g.CancelReason = reason
		g.EndedAt = &now
		g.Winners = []string{}
		return nil
	})
	if err != nil {
		return nil, s.translate("cancel giveaway", id, err)
	}
	s.scheduler.Cancel(id)

	metrics.Inc(metrics.GiveawayTransitions, "cancelled")
	s.log.Info().Str("giveaway_id", id).Str("user_id", executorID).Str("reason", reason).Msg("giveaway cancelled")

	s.render(ctx, dg.RenderRequest{
		Giveaway:   g,
		Intent:     dg.IntentAnnounceCancelled,
		ExecutorID: executorID,
		Reason:     reason,
	})
	return g, nil
}

// Reroll draws one additional winner among participants that have not won.
func (s *Service) Reroll(ctx context.Context, id, executorID string) (string, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var winner string
	g, err := s.repo.Update(ctx, id, func(g *dg.Giveaway) error {
		winner = ""
		switch {
		case !g.Ended:
			return apperrors.NewInvalidStateError("giveaway", "is still active")
		case g.Cancelled:
			return apperrors.NewInvalidStateError("giveaway", "was cancelled")
		case len(g.Participants) == 0:
			return apperrors.NewNoParticipantsError(id)
		}
		eligible := g.EligibleForReroll()
		if len(eligible) == 0 {
			return apperrors.NewExhaustedError(id)
		}
		picked, err := random.Pick(eligible)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to draw winner")
		}
		g.Winners = append(g.Winners, picked)
		winner = picked
		return nil
	})
	if err != nil {
		return "", s.translate("reroll giveaway", id, err)
	}

	metrics.Inc(metrics.GiveawayTransitions, "rerolled")
	s.log.Info().Str("giveaway_id", id).Str("user_id", executorID).Str("winner", winner).Msg("giveaway rerolled")

	s.render(ctx, dg.RenderRequest{
		Giveaway:    g,
		Intent:      dg.IntentAnnounceReroll,
		ExecutorID:  executorID,
		NewWinnerID: winner,
	})
	if s.tracker != nil {
		s.track(ctx, g.GuildID, winner, s.tracker.GiveawayWon)
	}
	return winner, nil
}

// ResolveIdentifier looks up a giveaway by a raw message id or any text
// embedding one, such as a message link. It returns nil when nothing matches.
func (s *Service) ResolveIdentifier(ctx context.Context, text string) (*dg.Giveaway, error) {
	matches := idPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil, nil
	}
	id, err := snowflake.ParseString(matches[len(matches)-1])
	if err != nil {
		return nil, nil
	}

	g, err := s.repo.GetByID(ctx, id.String())
	if errors.Is(err, dg.ErrGiveawayNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get giveaway", err)
	}
	return g, nil
}

// PruneExpired deletes ended giveaways whose end time is older than the
// retention window.
func (s *Service) PruneExpired(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := s.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	n, err := s.repo.DeleteEndedBefore(ctx, cutoff)
	if err != nil {
		return 0, apperrors.NewDatabaseError("prune giveaways", err)
	}
	if n > 0 {
		s.log.Info().Int("deleted", n).Int("retention_days", retentionDays).Msg("pruned ended giveaways")
	}
	return n, nil
}

// LoadActiveOnReady re-arms a timer for every persisted active giveaway.
// Past-due ones resolve immediately.
func (s *Service) LoadActiveOnReady(ctx context.Context) (int, error) {
	list, err := s.repo.ListActive(ctx)
	if err != nil {
		return 0, apperrors.NewDatabaseError("list active giveaways", err)
	}
	for _, g := range list {
		s.scheduler.Schedule(g.MessageID, g.EndTime)
	}
	s.log.Info().Int("count", len(list)).Msg("active giveaways rescheduled")
	return len(list), nil
}

// Shutdown drops every pending timer.
func (s *Service) Shutdown() {
	s.scheduler.Stop()
}

func (s *Service) render(ctx context.Context, req dg.RenderRequest) {
	ctx, cancel := context.WithTimeout(ctx, collaboratorCallTimeout)
	defer cancel()

	if err := s.renderer.Render(ctx, req); err != nil {
		metrics.Inc(metrics.GiveawayRenderFailure, string(req.Intent))
		s.log.Warn().Err(err).
			Str("giveaway_id", req.Giveaway.MessageID).
			Str("intent", string(req.Intent)).
			Msg("failed to render giveaway")
	}
}

func (s *Service) track(ctx context.Context, guildID, userID string, fn func(context.Context, string, string) error) {
	if err := fn(ctx, guildID, userID); err != nil {
		s.log.Warn().Err(err).Str("guild_id", guildID).Str("user_id", userID).Msg("failed to update participation stats")
	}
}

func (s *Service) translate(op, id string, err error) error {
	if errors.Is(err, dg.ErrGiveawayNotFound) {
		return apperrors.NewNotFoundError("giveaway", id)
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.NewDatabaseError(op, err)
}
