package daemon

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gofrs/flock"

	"github.com/forgekeep/threadbridge/internal/config"
	"github.com/forgekeep/threadbridge/internal/discord"
	"github.com/forgekeep/threadbridge/internal/guard"
	"github.com/forgekeep/threadbridge/internal/reconcile"
	"github.com/forgekeep/threadbridge/internal/tracker"
	"github.com/forgekeep/threadbridge/internal/watcher"
)

// interCallDelay is slept between mutating Discord calls during a pass.
const interCallDelay = 250 * time.Millisecond

// Daemon is the threadbridge background service.
type Daemon struct {
	cfg    *config.Config
	logger *log.Logger

	mu    sync.Mutex
	state *State
}

// New creates a daemon instance. The log file lives in the runtime
// directory under the tracker root.
func New(cfg *config.Config) (*Daemon, error) {
	if err := os.MkdirAll(RuntimeDir(cfg.TrackerDir), 0755); err != nil {
		return nil, fmt.Errorf("creating runtime directory: %w", err)
	}

	logFile, err := os.OpenFile(LogFile(cfg.TrackerDir), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	return &Daemon{
		cfg:    cfg,
		logger: log.New(logFile, "", log.LstdFlags),
	}, nil
}

// Run starts the daemon and blocks until a shutdown signal.
func (d *Daemon) Run() error {
	root := d.cfg.TrackerDir
	d.logger.Printf("Daemon starting (PID %d)", os.Getpid())

	// Single-instance lock: at most one reconciler may mutate the tracker
	// at a time.
	lock := flock.New(LockFile(root))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another threadbridge daemon is already running for %s", root)
	}
	defer func() { _ = lock.Unlock() }()

	if err := os.WriteFile(PidFile(root), []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer func() { _ = os.Remove(PidFile(root)) }() // best-effort cleanup

	d.state = &State{Running: true, PID: os.Getpid(), StartedAt: time.Now()}
	d.saveState()

	token, err := config.Token(root)
	if err != nil {
		return err
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("creating Discord session: %w", err)
	}
	// Guild intent covers thread create/update gateway events.
	session.Identify.Intents = discordgo.IntentsGuilds

	if err := session.Open(); err != nil {
		return fmt.Errorf("opening Discord gateway: %w", err)
	}
	defer func() { _ = session.Close() }()

	me, err := session.User("@me")
	if err != nil {
		return fmt.Errorf("resolving bot identity: %w", err)
	}
	d.logger.Printf("Connected as %s (%s)", me.Username, me.ID)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// An unresolvable forum disables the bridge for the process lifetime
	// instead of crash-looping; the process stays up and supervisable.
	if err := d.checkForum(session); err != nil {
		d.logger.Printf("Error: %v; bridge disabled for this run", err)
		sig := <-sigChan
		d.logger.Printf("Received signal %v, shutting down", sig)
		return d.shutdown()
	}

	threads := discord.New(session, d.cfg.ForumID, d.logger)
	trk := tracker.New(root)

	coord := reconcile.New(trk, threads, reconcile.Config{
		TagMapPath:     d.cfg.TagMapFile,
		NoThreadLabel:  d.cfg.NoThreadLabel,
		InterCallDelay: interCallDelay,
	}, d.logger)

	runner := reconcile.NewRunner(coord, d.recordPass, d.logger)
	runner.Start()
	defer runner.Stop()

	g := guard.New(d.cfg.ForumID, me.ID, threads, d.logger)
	g.Register(session)

	w := watcher.New(d.cfg.ChangeFile, d.cfg.DebounceDuration(), runner.Trigger, d.logger)
	if err := w.Start(); err != nil {
		// Periodic passes still converge; only incremental latency suffers.
		d.logger.Printf("Warning: change watcher unavailable: %v", err)
	} else {
		defer w.Stop()
	}

	interval := d.cfg.SyncIntervalDuration()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	d.logger.Printf("Daemon running, sync interval %v", interval)

	for {
		select {
		case sig := <-sigChan:
			d.logger.Printf("Received signal %v, shutting down", sig)
			return d.shutdown()
		case <-ticker.C:
			runner.Trigger()
		}
	}
}

// checkForum verifies the configured forum channel exists and has the
// right type.
func (d *Daemon) checkForum(session *discordgo.Session) error {
	ch, err := session.Channel(d.cfg.ForumID)
	if err != nil {
		return fmt.Errorf("resolving forum %s: %w", d.cfg.ForumID, err)
	}
	if ch.Type != discordgo.ChannelTypeGuildForum {
		return fmt.Errorf("channel %s is not a forum (type %d)", d.cfg.ForumID, ch.Type)
	}
	return nil
}

// recordPass folds a completed pass into the persisted state.
func (d *Daemon) recordPass(counters reconcile.Counters) {
	d.mu.Lock()
	d.state.LastPass = time.Now()
	d.state.PassCount++
	d.state.Totals.Add(counters)
	d.mu.Unlock()
	d.saveState()
}

func (d *Daemon) saveState() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := SaveState(d.cfg.TrackerDir, d.state); err != nil {
		d.logger.Printf("Warning: failed to save state: %v", err)
	}
}

func (d *Daemon) shutdown() error {
	d.mu.Lock()
	d.state.Running = false
	d.mu.Unlock()
	d.saveState()
	d.logger.Println("Daemon stopped")
	return nil
}
