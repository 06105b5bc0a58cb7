// Package bot wires the registry, dispatcher and synchronizer onto a Discord
// gateway session.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/harmonix/internal/commandsync"
	"github.com/keshon/harmonix/internal/config"
	"github.com/keshon/harmonix/internal/cooldown"
	"github.com/keshon/harmonix/internal/core"
	"github.com/keshon/harmonix/internal/dispatch"
	"github.com/keshon/harmonix/pkg/jobmgr"
)

var _ core.Session = (*discordgo.Session)(nil)

var (
	ErrPluginExists = errors.New("plugin already registered")
	ErrPluginName   = errors.New("plugin has no name")
)

const (
	jobSync  = "command-sync"
	jobSweep = "cooldown-sweep"
)

// Plugin extends the bot at startup, for example by opening a database and
// storing it as a collection.
type Plugin interface {
	Name() string
	Init(ctx context.Context, b *Bot) error
}

// Bot owns the gateway session and everything that serves it.
type Bot struct {
	cfg        *config.Config
	session    *discordgo.Session
	registry   *core.Registry
	cooldowns  *cooldown.Tracker
	dispatcher *dispatch.Dispatcher
	log        zerolog.Logger

	mu          sync.RWMutex
	jobs        *jobmgr.Manager
	appID       string
	syncer      *commandsync.Syncer
	syncerApp   string
	plugins     map[string]Plugin
	collections map[string]any
}

// New creates the session and loads units into a fresh registry. Invalid
// units are logged and skipped.
func New(cfg *config.Config, units []core.Unit, log zerolog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent

	b := &Bot{
		cfg:         cfg,
		session:     session,
		registry:    core.NewRegistry(log),
		cooldowns:   cooldown.New(),
		log:         log.With().Str("component", "bot").Logger(),
		appID:       cfg.AppID,
		plugins:     make(map[string]Plugin),
		collections: make(map[string]any),
	}

	core.NewLoader(b.registry, log).Load(units)
	b.dispatcher = dispatch.New(b, b.cooldowns, dispatch.WithPrefix(cfg.Prefix), dispatch.WithLogger(log))
	return b, nil
}

// Session implements core.Bot.
func (b *Bot) Session() core.Session { return b.session }

// Discord returns the underlying session for calls outside core.Session.
func (b *Bot) Discord() *discordgo.Session { return b.session }

// Registry implements core.Bot.
func (b *Bot) Registry() *core.Registry { return b.registry }

// Logger implements core.Bot.
func (b *Bot) Logger() zerolog.Logger { return b.log }

// Cooldowns returns the shared cooldown tracker.
func (b *Bot) Cooldowns() *cooldown.Tracker { return b.cooldowns }

// Use registers and initializes a plugin. Names are unique.
func (b *Bot) Use(ctx context.Context, p Plugin) error {
	name := p.Name()
	if name == "" {
		return ErrPluginName
	}

	b.mu.Lock()
	if _, exists := b.plugins[name]; exists {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPluginExists, name)
	}
	b.plugins[name] = p
	b.mu.Unlock()

	if err := p.Init(ctx, b); err != nil {
		b.mu.Lock()
		delete(b.plugins, name)
		b.mu.Unlock()
		return fmt.Errorf("init plugin %s: %w", name, err)
	}

	b.log.Info().Str("plugin", name).Msg("plugin registered")
	return nil
}

// Plugin returns a registered plugin by name.
func (b *Bot) Plugin(name string) (Plugin, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.plugins[name]
	return p, ok
}

// Plugins returns the registered plugin names, sorted.
func (b *Bot) Plugins() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.plugins))
	for name := range b.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddCollection stores v under name, replacing any previous value.
func (b *Bot) AddCollection(name string, v any) {
	b.mu.Lock()
	b.collections[name] = v
	b.mu.Unlock()
}

// Collection returns the value stored under name.
func (b *Bot) Collection(name string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.collections[name]
	return v, ok
}

// CollectionAs returns the collection under name if it holds a T.
func CollectionAs[T any](b *Bot, name string) (T, bool) {
	v, ok := b.Collection(name)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Run opens the gateway and serves events until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	jobs := jobmgr.NewManager(ctx, b.log)
	b.mu.Lock()
	b.jobs = jobs
	b.mu.Unlock()
	defer jobs.StopAll()

	b.session.AddHandler(b.dispatcher.OnInteraction)
	b.session.AddHandler(b.dispatcher.OnMessage)
	if len(b.registry.EventKeys()) > 0 {
		b.session.AddHandler(b.dispatcher.OnEvent)
	}
	b.session.AddHandlerOnce(b.onReady)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer b.session.Close()

	if err := jobs.StartAsync(jobSweep, func(ctx context.Context) error {
		return b.cooldowns.Run(ctx, b.cfg.CooldownSweepInterval, b.log)
	}); err != nil {
		return err
	}

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, cleaning up")
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.mu.Lock()
	if b.appID == "" && r.User != nil {
		b.appID = r.User.ID
	}
	b.mu.Unlock()

	commands, components, events := b.registry.Len()
	log := b.log.Info().Int("commands", commands).Int("components", components).Int("events", events)
	if r.User != nil {
		log = log.Str("user", r.User.Username)
	}
	log.Msg("bot is running")

	if !b.cfg.SyncCommands {
		b.log.Info().Msg("command sync disabled")
		return
	}
	if err := b.RequestSync(false); err != nil {
		b.log.Warn().Err(err).Msg("command sync not started")
	}
}

// RequestSync starts a background command sync unless one is running.
func (b *Bot) RequestSync(force bool) error {
	b.mu.RLock()
	jobs := b.jobs
	b.mu.RUnlock()
	if jobs == nil {
		return errors.New("bot is not running")
	}
	return jobs.StartAsync(jobSync, func(ctx context.Context) error {
		return b.SyncCommands(ctx, force).Err()
	})
}

// SyncCommands publishes the registry to the configured scope. It resolves
// the application id through REST when neither the config nor the gateway
// provided one.
func (b *Bot) SyncCommands(ctx context.Context, force bool) commandsync.Report {
	appID, err := b.resolveAppID(ctx)
	if err != nil {
		b.log.Warn().Err(err).Msg("could not resolve application id")
	}

	b.mu.Lock()
	if b.syncer == nil || b.syncerApp != appID {
		b.syncer = commandsync.New(b.session, appID, b.log)
		b.syncerApp = appID
	}
	syncer := b.syncer
	b.mu.Unlock()

	return syncer.Sync(ctx, b.registry, commandsync.Scope{
		Public:   b.cfg.PublicApp,
		GuildIDs: b.cfg.Guilds,
		Force:    force,
	})
}

func (b *Bot) resolveAppID(ctx context.Context) (string, error) {
	b.mu.RLock()
	id := b.appID
	b.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	u, err := b.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("fetch bot user: %w", err)
	}

	b.mu.Lock()
	b.appID = u.ID
	b.mu.Unlock()
	return u.ID, nil
}
