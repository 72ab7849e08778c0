package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	storagecfg "github.com/syntrixbase/sdastore/internal/core/storage/config"
	"github.com/syntrixbase/sdastore/internal/core/storage/types"
	"github.com/syntrixbase/sdastore/pkg/model"
)

var errNotFound = errors.New("not found")

// env is what a command runs against.
type env struct {
	store types.AgentsStore
	cfg   storagecfg.Config
	out   io.Writer
}

type command struct {
	name    string
	usage   string
	summary string
	args    int
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = []command{
	{name: "ping", usage: "ping", summary: "check that the database answers", run: runPing},
	{name: "bootstrap", usage: "bootstrap", summary: "create the unique index on agent ids and verify it", run: runBootstrap},
	{name: "agent", usage: "agent <agent-id>", summary: "print an agent record", args: 1, run: runAgent},
	{name: "profile", usage: "profile <agent-id>", summary: "print an agent's profile", args: 1, run: runProfile},
	{name: "key", usage: "key <key-id>", summary: "print a signed encryption key and its fingerprint", args: 1, run: runKey},
	{name: "committee", usage: "committee", summary: "list clerk candidates with their key ids", run: runCommittee},
	{name: "stats", usage: "stats", summary: "count agents and registered keys", run: runStats},
}

func lookupCommand(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

func runPing(ctx context.Context, e *env, _ []string) error {
	if err := e.store.Ping(ctx); err != nil {
		return err
	}
	return writeJSON(e.out, map[string]string{"status": "ok"})
}

// Opening storage creates the index; bootstrap reads it back from the engine.
func runBootstrap(ctx context.Context, e *env, _ []string) error {
	reporter, ok := e.store.(types.IndexReporter)
	if !ok {
		return errors.New("store does not report its indexes")
	}
	fields, err := reporter.UniqueIndexes(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(fields, reporter.KeyField()) {
		return fmt.Errorf("collection %s: %w: no unique index on %q",
			e.cfg.Agents.Collection, model.ErrSetup, reporter.KeyField())
	}
	return writeJSON(e.out, map[string]any{
		"database":       e.cfg.Mongo.DatabaseName,
		"collection":     e.cfg.Agents.Collection,
		"unique_indexes": fields,
		"status":         "ready",
	})
}

func runAgent(ctx context.Context, e *env, args []string) error {
	id, err := parseAgentID(args[0])
	if err != nil {
		return err
	}
	agent, err := e.store.GetAgent(ctx, id)
	if err != nil {
		return err
	}
	if agent == nil {
		return fmt.Errorf("agent %s: %w", id, errNotFound)
	}
	return writeJSON(e.out, agent)
}

func runProfile(ctx context.Context, e *env, args []string) error {
	id, err := parseAgentID(args[0])
	if err != nil {
		return err
	}
	profile, err := e.store.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("profile of %s: %w", id, errNotFound)
	}
	return writeJSON(e.out, profile)
}

func runKey(ctx context.Context, e *env, args []string) error {
	id, err := model.ParseEncryptionKeyID(args[0])
	if err != nil {
		return &usageError{err: fmt.Errorf("invalid key id %q: %w", args[0], err)}
	}
	if id.IsZero() {
		return &usageError{err: errors.New("key id must not be the nil UUID")}
	}
	key, err := e.store.GetEncryptionKey(ctx, id)
	if err != nil {
		return err
	}
	if key == nil {
		return fmt.Errorf("encryption key %s: %w", id, errNotFound)
	}
	return writeJSON(e.out, struct {
		Key         *model.SignedEncryptionKey `json:"key"`
		Fingerprint string                     `json:"fingerprint"`
	}{key, key.Body.Body.Fingerprint()})
}

func runCommittee(ctx context.Context, e *env, _ []string) error {
	candidates, err := e.store.SuggestCommittee(ctx)
	if err != nil {
		return err
	}
	return writeJSON(e.out, candidates)
}

func runStats(ctx context.Context, e *env, _ []string) error {
	counter, ok := e.store.(types.AgentCounter)
	if !ok {
		return errors.New("store does not support counting")
	}
	agents, err := counter.Count(ctx)
	if err != nil {
		return err
	}
	candidates, err := e.store.SuggestCommittee(ctx)
	if err != nil {
		return err
	}

	var withKeys, keys int
	for _, c := range candidates {
		if len(c.Keys) > 0 {
			withKeys++
		}
		keys += len(c.Keys)
	}
	return writeJSON(e.out, map[string]int64{
		"agents":           agents,
		"agents_with_keys": int64(withKeys),
		"keys":             int64(keys),
	})
}

func parseAgentID(s string) (model.AgentID, error) {
	id, err := model.ParseAgentID(s)
	if err != nil {
		return id, &usageError{err: fmt.Errorf("invalid agent id %q: %w", s, err)}
	}
	if id.IsZero() {
		return id, &usageError{err: errors.New("agent id must not be the nil UUID")}
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
