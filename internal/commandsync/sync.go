// Package commandsync publishes the registry's slash commands to Discord.
package commandsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/harmonix/internal/core"
	"github.com/keshon/harmonix/pkg/retrylimit"
	"github.com/keshon/harmonix/pkg/util"
)

// Client is the part of *discordgo.Session the synchronizer needs.
type Client interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

var ErrNoAppID = errors.New("application id is not set")

// Scope selects where commands are published. A public scope publishes
// globally and ignores GuildIDs.
type Scope struct {
	Public   bool
	GuildIDs []string
	// Force re-sends a payload even if it matches the last successful sync.
	Force bool
}

// Result is the outcome for one destination. GuildID is empty for the global
// scope.
type Result struct {
	GuildID  string
	Commands int
	Skipped  bool
	Err      error
}

// Report collects the results of one Sync call.
type Report struct {
	Results []Result
}

// Err joins every failed result, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Synced counts destinations that were written.
func (r Report) Synced() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil && !res.Skipped {
			n++
		}
	}
	return n
}

// Syncer replaces the remote command set with the local one.
type Syncer struct {
	client  Client
	appID   string
	lim     *retrylimit.AdaptiveLimiter
	retry   retrylimit.Config
	workers int
	log     zerolog.Logger

	mu   sync.Mutex
	last map[string]string
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithRetryConfig overrides the retry policy for each overwrite call.
func WithRetryConfig(cfg retrylimit.Config) Option {
	return func(s *Syncer) { s.retry = cfg }
}

// WithLimiter overrides the request pacing.
func WithLimiter(lim *retrylimit.AdaptiveLimiter) Option {
	return func(s *Syncer) { s.lim = lim }
}

// WithConcurrency sets how many guilds are synced at once.
func WithConcurrency(n int) Option {
	return func(s *Syncer) { s.workers = n }
}

// New returns a Syncer publishing as application appID.
func New(client Client, appID string, log zerolog.Logger, opts ...Option) *Syncer {
	s := &Syncer{
		client:  client,
		appID:   appID,
		lim:     retrylimit.NewAdaptiveLimiter(5, 1, 10, 1, 0.5),
		retry:   retrylimit.DefaultConfig(),
		workers: 4,
		log:     log.With().Str("component", "commandsync").Logger(),
		last:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.retry.Logger = s.log
	return s
}

// Sync publishes Payload(reg) to every destination in scope. A failed
// destination is logged and reported; it does not stop the others.
func (s *Syncer) Sync(ctx context.Context, reg *core.Registry, scope Scope) Report {
	var report Report
	if s.appID == "" {
		s.log.Warn().Err(ErrNoAppID).Msg("skipping command sync")
		report.Results = append(report.Results, Result{Err: ErrNoAppID})
		return report
	}

	payload := Payload(reg)
	fingerprint := Fingerprint(payload)

	destinations := scope.GuildIDs
	if scope.Public {
		destinations = []string{""}
	}
	if len(destinations) == 0 {
		s.log.Warn().Msg("no public scope and no guilds configured, nothing to sync")
	}

	report.Results = make([]Result, len(destinations))
	indexes := make([]int, len(destinations))
	for i := range indexes {
		indexes[i] = i
	}
	errs := util.Parallel(ctx, indexes, s.workers, func(ctx context.Context, i int) error {
		report.Results[i] = s.syncOne(ctx, destinations[i], payload, fingerprint, scope.Force)
		return nil
	})
	for i, err := range errs {
		if err != nil {
			report.Results[i] = Result{GuildID: destinations[i], Err: err}
		}
	}
	return report
}

func (s *Syncer) syncOne(ctx context.Context, guildID string, payload []*discordgo.ApplicationCommand, fingerprint string, force bool) Result {
	log := s.log.With().Str("scope", scopeName(guildID)).Logger()
	res := Result{GuildID: guildID, Commands: len(payload)}

	if !force && s.lastFingerprint(guildID) == fingerprint {
		log.Debug().Msg("commands unchanged, skipping")
		res.Skipped = true
		return res
	}

	err := retrylimit.Do(ctx, s.lim, s.retry, func() error {
		_, err := s.client.ApplicationCommandBulkOverwrite(s.appID, guildID, payload, discordgo.WithContext(ctx))
		return classify(err)
	})
	if err != nil {
		res.Err = fmt.Errorf("sync %s: %w", scopeName(guildID), err)
		log.Warn().Err(err).Msg("command sync failed")
		return res
	}

	s.mu.Lock()
	s.last[guildID] = fingerprint
	s.mu.Unlock()

	log.Info().Int("commands", len(payload)).Msg("commands synced")
	return res
}

func (s *Syncer) lastFingerprint(guildID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[guildID]
}

func scopeName(guildID string) string {
	if guildID == "" {
		return "global"
	}
	return "guild " + guildID
}

// restStatus exposes a REST error's HTTP status to retrylimit.
type restStatus struct {
	err *discordgo.RESTError
}

func (r restStatus) Error() string   { return r.err.Error() }
func (r restStatus) StatusCode() int { return r.err.Response.StatusCode }
func (r restStatus) Unwrap() error   { return r.err }

// classify marks client errors as fatal so only 429 and 5xx are retried.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) || rest.Response == nil {
		return err
	}
	code := rest.Response.StatusCode
	if code == http.StatusTooManyRequests || code >= 500 {
		return restStatus{err: rest}
	}
	return retrylimit.Fatal(err)
}
