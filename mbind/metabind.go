package mbind

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	"github.com/ankurkotwal/metabind/mbind/axes"
	"github.com/ankurkotwal/metabind/mbind/backend"
	"github.com/ankurkotwal/metabind/mbind/bindings"
	"github.com/ankurkotwal/metabind/mbind/canonical"
	"github.com/ankurkotwal/metabind/mbind/capture"
	"github.com/ankurkotwal/metabind/mbind/common"
	"github.com/ankurkotwal/metabind/mbind/conflicts"
	"github.com/ankurkotwal/metabind/mbind/devices"
	"github.com/ankurkotwal/metabind/mbind/hub"
)

// tickInterval drives the backend timeout when SDL isn't polling
const tickInterval = 100 * time.Millisecond

// Services is the whole pipeline, built once at start-up and shared by
// the HTTP handlers
type Services struct {
	Config *common.Config
	Log    *common.Logger

	Identities  *devices.IdentityMap
	Axes        *axes.Normalizer
	Descriptors *axes.DescriptorLookup
	Formatter   *canonical.Formatter
	Profile     *bindings.Profile
	Conflicts   *conflicts.Resolver
	Controller  *capture.Controller
	// UI is the keyboard and mouse listener, fed by the browser
	UI *capture.PushListener
	// Feed is the joystick/gamepad listener. SDL drives it when enabled,
	// otherwise only the feed and xinput endpoints do.
	Feed        *backend.Feed
	SDL         *backend.SDLFeed
	Hub         *hub.Hub
	Broadcaster *hub.Broadcaster
	Watcher     *bindings.Watcher

	saveMu sync.Mutex
}

// NewServices loads the persisted state named by cfg and wires the
// pipeline together. Nothing runs until Run.
func NewServices(cfg *common.Config, log *common.Logger) (*Services, error) {
	s := &Services{Config: cfg, Log: log}

	store, err := common.OpenYamlStore(cfg.StoreFile)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if s.Identities, err = devices.NewIdentityMap(store, log); err != nil {
		return nil, err
	}

	var profiles *axes.Profiles
	if cfg.AxisProfilesFile != "" {
		profiles, err = axes.LoadProfiles(cfg.AxisProfilesFile)
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("No axis profiles at %s", cfg.AxisProfilesFile)
		} else if err != nil {
			return nil, fmt.Errorf("loading axis profiles: %w", err)
		}
	}
	if s.Axes, err = axes.NewNormalizer(store, profiles, log); err != nil {
		return nil, err
	}
	s.Descriptors = &axes.DescriptorLookup{Dir: cfg.HidrawDir, Log: log}
	s.Formatter = &canonical.Formatter{Axes: s.Axes, Identities: s.Identities}

	catalog, err := bindings.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	if s.Profile, err = bindings.LoadProfile(cfg.ActionMapsFile, catalog, log); err != nil {
		return nil, fmt.Errorf("loading action maps: %w", err)
	}
	s.Conflicts = conflicts.NewResolver(s.Profile)

	if cfg.EnableSDL {
		s.SDL = backend.NewSDLFeed(s.Axes, cfg.BackendTimeout, log)
		s.Feed = s.SDL.Feed
	} else {
		s.Feed = backend.NewFeed("feed", s.Axes, cfg.BackendTimeout, log)
	}
	s.UI = capture.NewPushListener("ui")
	s.Controller = capture.NewController(s.Formatter, capture.Options{
		PrimaryTimeout:    cfg.PrimaryTimeout,
		SecondaryTimeout:  cfg.SecondaryTimeout,
		TimeoutCloseDelay: cfg.TimeoutCloseDelay,
	}, log, s.UI, s.Feed)

	s.Hub = hub.NewHub(log)
	s.Broadcaster = hub.NewBroadcaster(s.Hub, s.Conflicts.FindConflicts)
	s.Controller.Observe(s.Broadcaster.Session)

	if cfg.WatchActionMaps && cfg.ActionMapsFile != "" {
		if s.Watcher, err = bindings.NewWatcher(cfg.ActionMapsFile, s.Profile, log); err != nil {
			log.Err("Not watching %s: %s", cfg.ActionMapsFile, err)
		} else {
			s.Watcher.OnReload = s.Broadcaster.BindingsChanged
		}
	}
	return s, nil
}

// Run starts the background loops and blocks until ctx is done
func (s *Services) Run(ctx context.Context) {
	var wg sync.WaitGroup
	start := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}

	start(func() { s.Hub.Run(ctx) })
	if s.Watcher != nil {
		start(func() { s.Watcher.Run(ctx) })
	}
	if s.SDL != nil {
		start(func() {
			if err := s.SDL.Run(ctx); err != nil {
				s.Log.Err("SDL backend stopped: %s", err)
			}
		})
	} else {
		start(func() {
			ticker := time.NewTicker(tickInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.Feed.Tick()
				}
			}
		})
	}
	wg.Wait()
	s.Controller.Cancel()
}

// saveProfile writes the bindings back to the game's file, if there is one
func (s *Services) saveProfile() error {
	if s.Config.ActionMapsFile == "" {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.Profile.Save(s.Config.ActionMapsFile)
}

// GetServer builds the router for the HTTP control surface
func GetServer(s *Services) *gin.Engine {
	if !s.Config.DebugOutput {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	if s.Config.DebugOutput {
		pprof.Register(router)
	}

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/api/status")
	})

	api := router.Group("/api")
	api.GET("/status", s.getStatus)
	api.GET("/log", s.getLog)

	api.POST("/capture", s.startCapture)
	api.GET("/capture", s.getCapture)
	api.DELETE("/capture", s.cancelCapture)
	api.POST("/capture/input", s.postInput)
	api.POST("/capture/feed", s.postFeed)
	api.POST("/capture/xinput", s.postXInput)
	api.POST("/capture/select", s.selectCandidate)
	api.POST("/capture/confirm", s.confirmCapture)

	api.GET("/conflicts", s.getConflicts)

	api.GET("/bindings", s.getBindings)
	api.POST("/bindings", s.commitBinding)
	api.DELETE("/bindings", s.resetBinding)
	api.POST("/bindings/clear", s.clearBinding)

	api.GET("/devices", s.getDevices)
	api.POST("/devices/detect", s.detectDevice)
	api.DELETE("/devices/:slot", s.resetDevice)

	api.GET("/axes/:device", s.getAxes)
	api.PUT("/axes/:device", s.putAxes)
	api.DELETE("/axes/:device", s.deleteAxes)
	api.POST("/axes/:device/auto", s.autoAxes)
	api.POST("/axes/:device/detect", s.detectAxis)
	api.POST("/axes/:device/sample", s.sampleAxis)

	router.GET("/ws", func(c *gin.Context) {
		s.Hub.ServeWS(c.Writer, c.Request, wsCommands{s.Controller})
	})
	return router
}

// wsCommands lets UI clients drive the capture session over the socket
type wsCommands struct {
	controller *capture.Controller
}

func (w wsCommands) Cancel() {
	w.controller.Cancel()
}

func (w wsCommands) Select(sessionID, input string) error {
	_, err := w.controller.Select(sessionID, input)
	return err
}
