package internal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/gridlinehq/gridline/internal/core"
	"github.com/gridlinehq/gridline/internal/core/cache"
	"github.com/gridlinehq/gridline/internal/core/data"
	"github.com/gridlinehq/gridline/internal/core/debug"
	"github.com/gridlinehq/gridline/internal/hall"
	"github.com/gridlinehq/gridline/internal/web"
	"github.com/gridlinehq/gridline/internal/wire"
)

// Controller is the main entrypoint for gridline. It's responsible for
// initializing any shared resources (such as database and logging), wiring up
// the hall and web servers, and launching everything.
type Controller struct {
	Config *core.Config

	logger *logrus.Logger
	db     *gorm.DB
	hall   *hall.Server
	wg     sync.WaitGroup
}

func (c *Controller) Start(ctx context.Context) error {
	defer c.Shutdown()

	var err error
	// Set up the logger, which will be used by all sub-servers.
	c.logger, err = core.NewLogger(c.Config)
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}

	// Start any debug utilities if we're configured to do so.
	if c.Config.Debugging.PprofEnabled {
		debug.StartUtilities(c.logger, c.Config.Debugging.PprofPort)
	}

	c.db, err = data.Initialize(
		c.Config.Database.Engine,
		c.databaseSource(),
		c.Config.Debugging.DatabaseLoggingEnabled,
	)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}

	c.hall = &hall.Server{
		Name:   "HALL",
		Config: c.Config,
		Logger: c.logger,
		DB:     c.db,
		Frames: c.buildFrameCache(),
	}

	return c.run(ctx)
}

// run starts the hall frontend and the web API and blocks until either fails
// or the context is canceled.
func (c *Controller) run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	hallFrontend := &frontend{
		Address: c.Config.HallAddress(),
		Backend: c.hall,
		Config:  c.Config,
		Logger:  c.logger,
	}
	group.Go(func() error {
		if err := hallFrontend.Start(groupCtx, &c.wg); err != nil {
			return err
		}
		c.wg.Wait()
		return nil
	})

	webServer := &web.Server{
		Config: c.Config,
		Logger: c.logger,
		Hall:   c.hall,
		DB:     c.db,
	}
	group.Go(func() error {
		return webServer.Start(groupCtx)
	})

	// The operator console shares the lifetime of the servers.
	group.Go(func() error {
		return c.runConsole(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, errStopRequested) {
		return err
	}
	return nil
}

// databaseSource picks the data source for the configured engine: a file
// path for sqlite, a connection URL for postgres.
func (c *Controller) databaseSource() string {
	if c.Config.Database.Engine == "postgres" {
		return c.Config.DatabaseURL()
	}
	return c.Config.QualifiedPath(c.Config.Database.Filename)
}

// buildFrameCache constructs the recording frame cache on the configured
// backend.
func (c *Controller) buildFrameCache() cache.Cache[[]wire.Message] {
	if c.Config.Cache.Backend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: c.Config.Cache.RedisAddress})
		return cache.NewRedis[[]wire.Message](client)
	}
	return cache.NewMemory[[]wire.Message]()
}

func (c *Controller) Shutdown() {
	c.wg.Wait()
	if c.db != nil {
		if err := data.Shutdown(c.db); err != nil {
			c.logger.Warnf("error closing database: %s", err)
		}
	}
}
