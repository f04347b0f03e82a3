package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"adiengine/internal/config"
	"adiengine/internal/daemon"
	"adiengine/internal/logging"
	"adiengine/internal/preflight"
	"adiengine/internal/queue"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the processing daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("prepare directories: %w", err)
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			for _, result := range preflight.RunAll(runCtx, cfg) {
				if !result.Passed {
					fmt.Fprintf(cmd.ErrOrStderr(), "preflight: %s: %s\n", result.Name, result.Detail)
				}
			}

			d, err := daemon.Bootstrap(cfg, logger)
			if err != nil {
				return fmt.Errorf("bootstrap daemon: %w", err)
			}
			defer d.Close()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			<-runCtx.Done()
			d.Stop()
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if view, err := fetchDaemonStatus(cmd.Context(), cfg.Paths.APIBind, cfg.Paths.APIToken); err == nil {
				printDaemonStatus(cmd, view)
				return nil
			}

			// Daemon unreachable; read the queue database directly.
			return ctx.withQueueStore(func(_ *config.Config, store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon: not reachable")
				printQueueStats(cmd, stats.ByStatus)
				return nil
			})
		},
	}
}

type daemonStatusView struct {
	Running  bool `json:"running"`
	Workflow struct {
		Running     bool             `json:"running"`
		LastError   string           `json:"lastError"`
		QueueStats  map[string]int   `json:"queueStats"`
		Watermarks  map[string]int64 `json:"watermarks"`
		StageHealth []struct {
			Name   string `json:"name"`
			Ready  bool   `json:"ready"`
			Detail string `json:"detail"`
		} `json:"stageHealth"`
	} `json:"workflow"`
}

func fetchDaemonStatus(ctx context.Context, bind, token string) (*daemonStatusView, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, fmt.Errorf("no api bind configured")
	}
	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, "http://"+bind+"/api/status", nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}
	var view daemonStatusView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, err
	}
	return &view, nil
}

func printDaemonStatus(cmd *cobra.Command, view *daemonStatusView) {
	out := cmd.OutOrStdout()
	state := "stopped"
	if view.Running {
		state = "running"
	}
	fmt.Fprintf(out, "Daemon: %s\n", state)
	if view.Workflow.LastError != "" {
		fmt.Fprintf(out, "Last error: %s\n", view.Workflow.LastError)
	}

	stats := make(map[queue.Status]int, len(view.Workflow.QueueStats))
	for status, count := range view.Workflow.QueueStats {
		stats[queue.Status(status)] = count
	}
	printQueueStats(cmd, stats)

	if len(view.Workflow.StageHealth) > 0 {
		rows := make([][]string, 0, len(view.Workflow.StageHealth))
		for _, check := range view.Workflow.StageHealth {
			state := "ok"
			if !check.Ready {
				state = "not ready"
			}
			rows = append(rows, []string{check.Name, state, check.Detail})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Stage", "State", "Detail"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft},
		))
	}
	if len(view.Workflow.Watermarks) > 0 {
		tiers := make([]string, 0, len(view.Workflow.Watermarks))
		for tier := range view.Workflow.Watermarks {
			tiers = append(tiers, tier)
		}
		sort.Strings(tiers)
		rows := make([][]string, 0, len(tiers))
		for _, tier := range tiers {
			rows = append(rows, []string{tier, strconv.FormatInt(view.Workflow.Watermarks[tier], 10)})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Tier", "Watermark"},
			rows,
			[]columnAlignment{alignLeft, alignRight},
		))
	}
}

func printQueueStats(cmd *cobra.Command, stats map[queue.Status]int) {
	if len(stats) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
		return
	}
	statuses := make([]string, 0, len(stats))
	for status := range stats {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		rows = append(rows, []string{status, strconv.Itoa(stats[queue.Status(status)])})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Status", "Count"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))
}
