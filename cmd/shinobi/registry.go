package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shinobi/internal/domain"
	"shinobi/internal/engine"
)

func ninjaCmd() *cobra.Command {
	nj := &cobra.Command{Use: "ninja", Short: "Manage ninjas"}
	nj.AddCommand(ninjaListCmd())
	nj.AddCommand(ninjaGetCmd())
	nj.AddCommand(ninjaCreateCmd())
	nj.AddCommand(ninjaUpdateCmd())
	nj.AddCommand(ninjaDeleteCmd())
	return nj
}

func ninjaListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ninjas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListNinjas(ctx)
				if err != nil {
					return err
				}
				return printNinjas(items...)
			})
		},
	}
}

func ninjaGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one ninja",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				n, err := e.GetNinja(ctx, id)
				if err != nil {
					return err
				}
				return printNinjas(n)
			})
		},
	}
}

func ninjaCreateCmd() *cobra.Command {
	var nombre, rango, aldea string
	var ataque, defensa, chakra int
	var jutsus []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a ninja",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.NinjaCreateOptions{
				Nombre:  nombre,
				Rango:   rango,
				Ataque:  optionalInt(cmd, "ataque", ataque),
				Defensa: optionalInt(cmd, "defensa", defensa),
				Chakra:  optionalInt(cmd, "chakra", chakra),
				Aldea:   optionalString(cmd, "aldea", aldea),
				Jutsus:  jutsus,
				ActorID: actorID(),
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				n, err := e.CreateNinja(ctx, opts)
				if err != nil {
					return err
				}
				return printNinjas(n)
			})
		},
	}
	cmd.Flags().StringVar(&nombre, "nombre", "", "name")
	cmd.Flags().StringVar(&rango, "rango", domain.RankGenin, "rank: "+strings.Join(domain.NinjaRanks, ", "))
	cmd.Flags().IntVar(&ataque, "ataque", engine.DefaultAtaque, "attack")
	cmd.Flags().IntVar(&defensa, "defensa", engine.DefaultDefensa, "defense")
	cmd.Flags().IntVar(&chakra, "chakra", engine.DefaultChakra, "chakra")
	cmd.Flags().StringVar(&aldea, "aldea", engine.DefaultAldea, "village")
	cmd.Flags().StringSliceVar(&jutsus, "jutsu", nil, "jutsu (repeatable or comma separated)")
	_ = cmd.MarkFlagRequired("nombre")
	return cmd
}

func ninjaUpdateCmd() *cobra.Command {
	var nombre, rango, aldea string
	var ataque, defensa, chakra int
	var jutsus []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a ninja; only the given flags change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			opts := engine.NinjaUpdateOptions{
				ID:      id,
				Nombre:  optionalString(cmd, "nombre", nombre),
				Rango:   optionalString(cmd, "rango", rango),
				Ataque:  optionalInt(cmd, "ataque", ataque),
				Defensa: optionalInt(cmd, "defensa", defensa),
				Chakra:  optionalInt(cmd, "chakra", chakra),
				Aldea:   optionalString(cmd, "aldea", aldea),
				ActorID: actorID(),
			}
			if cmd.Flags().Changed("jutsu") {
				opts.Jutsus = &jutsus
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				n, err := e.UpdateNinja(ctx, opts)
				if err != nil {
					return err
				}
				return printNinjas(n)
			})
		},
	}
	cmd.Flags().StringVar(&nombre, "nombre", "", "name")
	cmd.Flags().StringVar(&rango, "rango", "", "rank")
	cmd.Flags().IntVar(&ataque, "ataque", 0, "attack")
	cmd.Flags().IntVar(&defensa, "defensa", 0, "defense")
	cmd.Flags().IntVar(&chakra, "chakra", 0, "chakra")
	cmd.Flags().StringVar(&aldea, "aldea", "", "village")
	cmd.Flags().StringSliceVar(&jutsus, "jutsu", nil, "replace the jutsu list")
	return cmd
}

func ninjaDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a ninja and their assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteNinja(ctx, id, actorID()); err != nil {
					return err
				}
				fmt.Println("Ninja eliminado correctamente")
				return nil
			})
		},
	}
}

func printNinjas(items ...domain.Ninja) error {
	if viper.GetBool("json") {
		if len(items) == 1 {
			return printJSON(items[0])
		}
		return printJSON(items)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Nombre", "Rango", "Ataque", "Defensa", "Chakra", "Aldea", "Jutsus"})
	for _, n := range items {
		tw.AppendRow(table.Row{n.ID, n.Nombre, n.Rango, n.Ataque, n.Defensa, n.Chakra, n.Aldea, strings.Join(n.Jutsus, ", ")})
	}
	tw.Render()
	return nil
}

func missionCmd() *cobra.Command {
	ms := &cobra.Command{Use: "mission", Aliases: []string{"mision"}, Short: "Manage missions"}
	ms.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListMissions(ctx)
				if err != nil {
					return err
				}
				return printMissions(items...)
			})
		},
	})
	ms.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.GetMission(ctx, id)
				if err != nil {
					return err
				}
				return printMissions(m)
			})
		},
	})
	ms.AddCommand(missionCreateCmd())
	ms.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a mission and its assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteMission(ctx, id, actorID()); err != nil {
					return err
				}
				fmt.Println("Misión eliminada correctamente")
				return nil
			})
		},
	})
	return ms
}

func missionCreateCmd() *cobra.Command {
	var nombre, rango, descripcion string
	var recompensa int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.MissionCreateOptions{
				Nombre:      nombre,
				Rango:       rango,
				Recompensa:  optionalInt(cmd, "recompensa", recompensa),
				Descripcion: optionalString(cmd, "descripcion", descripcion),
				ActorID:     actorID(),
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.CreateMission(ctx, opts)
				if err != nil {
					return err
				}
				return printMissions(m)
			})
		},
	}
	cmd.Flags().StringVar(&nombre, "nombre", "", "name")
	cmd.Flags().StringVar(&rango, "rango", "D", "rank: "+strings.Join(domain.MissionRanks, ", "))
	cmd.Flags().IntVar(&recompensa, "recompensa", 0, "reward")
	cmd.Flags().StringVar(&descripcion, "descripcion", "", "description")
	_ = cmd.MarkFlagRequired("nombre")
	return cmd
}

func printMissions(items ...domain.Mission) error {
	if viper.GetBool("json") {
		if len(items) == 1 {
			return printJSON(items[0])
		}
		return printJSON(items)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Nombre", "Rango", "Recompensa", "Descripción"})
	for _, m := range items {
		tw.AppendRow(table.Row{m.ID, m.Nombre, m.Rango, m.Recompensa, m.Descripcion})
	}
	tw.Render()
	return nil
}

func assignCmd() *cobra.Command {
	as := &cobra.Command{Use: "assign", Short: "Send ninjas on missions"}
	as.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListAssignments(ctx)
				if err != nil {
					return err
				}
				return printAssignments(items...)
			})
		},
	})
	as.AddCommand(&cobra.Command{
		Use:   "create <ninja-id> <mission-id>",
		Short: "Assign a ninja to a mission their rank allows",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ninjaID, err := parseID(args[0])
			if err != nil {
				return err
			}
			missionID, err := parseID(args[1])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.Assign(ctx, ninjaID, missionID, actorID())
				if err != nil {
					return err
				}
				return printAssignments(a)
			})
		},
	})
	as.AddCommand(&cobra.Command{
		Use:   "complete <assignment-id>",
		Short: "Mark an assignment completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CompleteAssignment(ctx, id, actorID())
				if err != nil {
					return err
				}
				return printAssignments(a)
			})
		},
	})
	return as
}

func printAssignments(items ...domain.Assignment) error {
	if viper.GetBool("json") {
		if len(items) == 1 {
			return printJSON(items[0])
		}
		return printJSON(items)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Ninja", "Misión", "Asignada", "Completada"})
	for _, a := range items {
		done := ""
		if a.FechaCompletado != nil {
			done = *a.FechaCompletado
		}
		tw.AppendRow(table.Row{a.ID, a.NinjaNombre, a.MisionNombre, a.FechaAsignacion, done})
	}
	tw.Render()
	return nil
}

func reportCmd() *cobra.Command {
	rp := &cobra.Command{Use: "report", Short: "Assignment reports"}
	rp.AddCommand(&cobra.Command{
		Use:   "ninjas",
		Short: "Missions assigned and completed per ninja",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rows, err := e.NinjaReport(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Nombre", "Rango", "Asignadas", "Completadas"})
				for _, r := range rows {
					tw.AppendRow(table.Row{r.Ninja.ID, r.Ninja.Nombre, r.Ninja.Rango, r.MisionesAsignadas, r.MisionesCompletadas})
				}
				tw.Render()
				return nil
			})
		},
	})
	rp.AddCommand(&cobra.Command{
		Use:   "missions",
		Short: "Assigned ninjas per mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rows, err := e.MissionReport(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Misión", "Rango", "Ninjas", "Completada"})
				for _, r := range rows {
					done := "no"
					if r.Completada {
						done = "sí"
					}
					tw.AppendRow(table.Row{r.Mision.ID, r.Mision.Nombre, r.Mision.Rango, strings.Join(r.NinjasAsignados, ", "), done})
				}
				tw.Render()
				return nil
			})
		},
	})
	return rp
}
