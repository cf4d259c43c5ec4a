package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/cuemby/cassandra-scheduler/pkg/config"
	"github.com/cuemby/cassandra-scheduler/pkg/registry"
	"github.com/cuemby/cassandra-scheduler/pkg/storage"
	"github.com/cuemby/cassandra-scheduler/pkg/task"
	"github.com/spf13/cobra"
)

// Task commands work on the store directly and must not run against a
// store a live scheduler is writing to
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect and maintain recorded tasks offline",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		state, _ := cmd.Flags().GetString("state")
		return withRegistry(cmd, false, func(reg *registry.Registry) error {
			tasks, err := selectTasks(reg, task.Kind(kind), state)
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), tasks)
			return nil
		})
	},
}

var tasksGetCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Print the stored record of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(cmd, false, func(reg *registry.Registry) error {
			t, ok := reg.Get(args[0])
			if !ok {
				return fmt.Errorf("task %q not found", args[0])
			}
			record, err := task.Marshal(t)
			if err != nil {
				return err
			}
			var out bytes.Buffer
			if err := json.Indent(&out, record, "", "  "); err != nil {
				return err
			}
			out.WriteByte('\n')
			_, err = out.WriteTo(cmd.OutOrStdout())
			return err
		})
	},
}

var tasksRemoveCmd = &cobra.Command{
	Use:   "remove NAME...",
	Short: "Delete task records",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(cmd, true, func(reg *registry.Registry) error {
			before := reg.Len()
			if err := reg.RemoveAll(args...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d task(s)\n", before-reg.Len())
			return nil
		})
	},
}

func init() {
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksGetCmd)
	tasksCmd.AddCommand(tasksRemoveCmd)

	tasksListCmd.Flags().String("kind", "", "Only tasks of this kind (e.g. CASSANDRA_DAEMON)")
	tasksListCmd.Flags().String("state", "", "Only running, terminated or repair tasks")
}

// withRegistry loads the registry from the configured store, runs fn and
// closes the store
func withRegistry(cmd *cobra.Command, write bool, fn func(*registry.Registry) error) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if write && cfg.Storage.Backend == config.BackendRaft {
		return fmt.Errorf("refusing to modify a raft replica offline; use a running scheduler")
	}

	backend, err := openOffline(cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}
	defer func() {
		if cerr := backend.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return runWithBackend(cfg, backend, fn)
}

func runWithBackend(cfg *config.Config, backend storage.Backend, fn func(*registry.Registry) error) error {
	identity, err := config.NewIdentityManager(cfg.Service, backend)
	if err != nil {
		return err
	}
	reg, err := registry.New(identity, config.NewManager(cfg.Daemon), registry.NewMapStore(backend),
		registry.WithRepairPolicy(cfg.RepairPolicy()),
	)
	if err != nil {
		return err
	}
	return fn(reg)
}

func selectTasks(reg *registry.Registry, kind task.Kind, state string) ([]task.Task, error) {
	var tasks []task.Task
	switch state {
	case "":
		for _, t := range reg.All() {
			tasks = append(tasks, t)
		}
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name() < tasks[j].Name() })
	case "running":
		tasks = reg.GetRunningTasks()
	case "terminated":
		tasks = reg.GetTerminatedTasks()
	case "repair":
		tasks = reg.GetTasksToRepair()
	default:
		return nil, fmt.Errorf("unknown state filter %q", state)
	}

	if kind == "" {
		return tasks, nil
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	filtered := tasks[:0:0]
	for _, t := range tasks {
		if t.Kind() == kind {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

func printTasks(out io.Writer, tasks []task.Task) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tSTATE\tAGENT\tUPDATED\tID")
	for _, t := range tasks {
		status := t.Status()
		agent := t.Launch().Hostname
		if agent == "" {
			agent = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Name(), t.Kind(), status.State, agent, status.Timestamp.Format(time.RFC3339), t.ID())
	}
	w.Flush()
}
