package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/ffbot/ffbot-core/config"
	"github.com/ffbot/ffbot-core/ipc"
	"github.com/ffbot/ffbot-core/model"
	"github.com/ffbot/ffbot-core/nav"
	"github.com/ffbot/ffbot-core/planner"
)

// quietLogs keeps offline tools' stdout clean for their own output.
func quietLogs(cfg *config.Config) {
	lc := cfg.Log
	if level, _ := config.ParseLevel(lc.Level); level < slog.LevelWarn {
		lc.Level = "warn"
	}
	slog.SetDefault(newLogger(os.Stderr, lc))
}

func loadGraph(path string) (*nav.Graph, error) {
	mesh, err := nav.ReadMeshFile(path)
	if err != nil {
		return nil, err
	}
	g := nav.NewGraph()
	if _, err := nav.LoadNavMesh(g, mesh); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return g, nil
}

func newPathCmd() *cobra.Command {
	var (
		meshPath string
		from, to uint32
	)
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Find the cheapest route between two nav areas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			quietLogs(cfg)
			g, err := loadGraph(meshPath)
			if err != nil {
				return err
			}
			pf := nav.NewPathFinder(g, cfg.Nav.Costs())
			path, cost := pf.FindPathCost(nav.AreaID(from), nav.AreaID(to), nil)
			return printPath(cmd.OutOrStdout(), path, cost)
		},
	}
	cmd.Flags().StringVar(&meshPath, "mesh", "", "nav mesh YAML file")
	cmd.Flags().Uint32Var(&from, "from", 0, "start area id")
	cmd.Flags().Uint32Var(&to, "to", 0, "target area id")
	_ = cmd.MarkFlagRequired("mesh")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func printPath(w io.Writer, path []nav.AreaID, cost float64) error {
	if len(path) == 0 {
		_, err := fmt.Fprintln(w, "no path")
		return err
	}
	ids := make([]string, len(path))
	for i, id := range path {
		ids[i] = fmt.Sprint(id)
	}
	_, err := fmt.Fprintf(w, "%s (cost %.2f, %d areas)\n", strings.Join(ids, " -> "), cost, len(path))
	return err
}

func newPlanCmd() *cobra.Command {
	var (
		meshPath     string
		snapshotPath string
		botID        uint32
		team         int
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Rank objectives and decompose the winner for one bot in a recorded snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			quietLogs(cfg)

			var g *nav.Graph
			if meshPath != "" {
				if g, err = loadGraph(meshPath); err != nil {
					return err
				}
			}
			data, err := os.ReadFile(snapshotPath)
			if err != nil {
				return err
			}
			var snap model.Snapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return fmt.Errorf("parse %s: %w", snapshotPath, err)
			}

			bot, ok := findBot(snap.Bots, botID)
			if !ok {
				return fmt.Errorf("bot %d not in snapshot", botID)
			}
			if team == 0 {
				team = bot.Team
			}
			engine, err := loadEngine(cfg.Planner.DoctrineFile)
			if err != nil {
				return err
			}

			kb := model.NewKnowledgeBase(team, g)
			kb.ReplaceDynamic(snap.Tick, snap.ControlPoints, snap.Entities)
			p := planner.New(bot.ID, kb, nil, engine, cfg.Planner, nil)
			p.SetOwner(&bot)
			return printPlan(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVar(&meshPath, "mesh", "", "nav mesh YAML file (optional, enables threat painting)")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "snapshot JSON as sent by the game plugin")
	cmd.Flags().Uint32Var(&botID, "bot", 0, "bot id to plan for")
	cmd.Flags().IntVar(&team, "team", 0, "team override (defaults to the bot's team)")
	_ = cmd.MarkFlagRequired("snapshot")
	_ = cmd.MarkFlagRequired("bot")
	return cmd
}

func findBot(bots []model.BotState, id uint32) (model.BotState, bool) {
	for _, b := range bots {
		if b.ID == id {
			return b, true
		}
	}
	return model.BotState{}, false
}

func printPlan(w io.Writer, p *planner.Planner) error {
	tasks := p.GenerateAvailableTasks()
	p.PrioritizeTasks(tasks)
	best, ok := p.SelectTaskFromList(tasks)
	if !ok {
		_, err := fmt.Fprintln(w, "no objectives available")
		return err
	}

	fmt.Fprintln(w, "candidates:")
	for _, h := range tasks {
		fmt.Fprintf(w, "  %-18s point=%-3d priority=%8.2f target=(%.0f, %.0f, %.0f)\n",
			h.Type, h.PointID, h.Priority, h.TargetPos.X, h.TargetPos.Y, h.TargetPos.Z)
	}

	p.DecomposeTask(&best)
	fmt.Fprintf(w, "selected %s on point %d:\n", best.Type, best.PointID)
	for i, st := range best.SubTasks {
		line := fmt.Sprintf("  %d. %s", i+1, st.Type)
		if st.Duration > 0 {
			line += fmt.Sprintf(" for %s", st.Duration)
		}
		if st.Target.Valid() {
			line += fmt.Sprintf(" on entity %d", st.Target.ID)
		}
		if !st.Interruptible {
			line += " (uninterruptible)"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// protocol gathers every message the plugin and sidecar exchange so one
// schema document covers the whole wire contract.
type protocol struct {
	Envelope  ipc.Envelope         `json:"envelope" jsonschema:"description=Length-prefixed frame wrapping every message"`
	Hello     ipc.HelloMessage     `json:"hello"`
	Ack       ipc.AckMessage       `json:"ack"`
	Snapshot  ipc.SnapshotMessage  `json:"snapshot"`
	Intents   ipc.IntentsMessage   `json:"intents"`
	BotKilled ipc.BotKilledMessage `json:"bot_killed"`
	NavMesh   nav.MeshFile         `json:"nav_mesh" jsonschema:"description=Nav mesh file format, YAML on disk or JSON inside hello"`
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
	}
	schema := reflector.Reflect(new(protocol))
	schema.Title = "ffbot sidecar protocol"
	schema.Description = "Messages exchanged between the game plugin and the bot sidecar"
	return schema
}

func newSchemaCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Write the JSON schema of the plugin protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := json.MarshalIndent(buildSchema(), "", "  ")
			if err != nil {
				return fmt.Errorf("marshal schema: %w", err)
			}
			data = append(data, '\n')
			if outPath == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			return writeFileAtomic(outPath, data)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output file (stdout when empty)")
	return cmd
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
