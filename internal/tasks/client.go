package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
)

// Client runs the refresh, outbox replay and purge jobs. Jobs are kept in
// their own SQLite file next to the item database, so a retrying job never
// holds a write lock the store needs.
type Client struct {
	backlite *backlite.Client
	db       *sql.DB
	workers  int
	running  atomic.Bool
}

func NewClient(storePath string, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	path := TasksDBPath(storePath)
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open job database %s: %w", path, err)
	}
	// Workers plus the dispatcher and the cleanup loop.
	db.SetMaxOpenConns(cfg.Workers + 2)
	db.SetConnMaxIdleTime(10 * time.Minute)

	bl, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          taskLogger{},
	})
	if err == nil {
		err = bl.Install()
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("set up job queue: %w", err)
	}

	return &Client{backlite: bl, db: db, workers: cfg.Workers}, nil
}

// Register adds job queues. Call it before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.backlite.Register(q)
	}
}

// Start processes jobs until ctx ends or Stop is called. Only the first
// call has an effect.
func (c *Client) Start(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	log.Printf("[TASK] Job queue started with %d workers", c.workers)
	c.backlite.Start(ctx)
}

// Stop waits for running jobs. It reports false when ctx ended first.
func (c *Client) Stop(ctx context.Context) bool {
	if !c.running.Load() {
		return true
	}
	if !c.backlite.Stop(ctx) {
		log.Println("[TASK] Job queue stopped before all jobs finished")
		return false
	}
	log.Println("[TASK] Job queue stopped")
	return true
}

func (c *Client) Close() error {
	return c.db.Close()
}

// Enqueue stores jobs and returns their IDs.
func (c *Client) Enqueue(jobs ...backlite.Task) ([]string, error) {
	ids, err := c.backlite.Add(jobs...).Save()
	if err != nil {
		return nil, fmt.Errorf("enqueue jobs: %w", err)
	}
	return ids, nil
}

func (c *Client) Status(ctx context.Context, id string) (backlite.TaskStatus, error) {
	return c.backlite.Status(ctx, id)
}

// TasksDBPath turns "data/readinglist.db" into "data/readinglist-tasks.db".
func TasksDBPath(storePath string) string {
	ext := filepath.Ext(storePath)
	return strings.TrimSuffix(storePath, ext) + "-tasks" + ext
}

type taskLogger struct{}

func (taskLogger) Info(message string, params ...any) {
	log.Printf("[TASK] "+message, params...)
}

func (taskLogger) Error(message string, params ...any) {
	log.Printf("[TASK ERROR] "+message, params...)
}
