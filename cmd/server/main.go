package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"hackergrows/internal/config"
	"hackergrows/internal/db"
	"hackergrows/internal/router"
	"hackergrows/internal/services"
	"hackergrows/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "hackergrows",
		Short:         "Hackergrows links products to online discussions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")

	root.AddCommand(serveCmd(), migrateCmd(), recountCmd())

	if err := root.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func connect() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, conn, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := connect()
			if err != nil {
				return err
			}
			if err := db.Migrate(conn); err != nil {
				return err
			}

			titles, err := services.NewTitleFetcher(cfg.Title)
			if err != nil {
				return err
			}
			st := store.New(conn)
			forum := services.NewForum(st, titles)
			accounts := services.NewAccounts(st, services.NewNotifier(cfg.Smtp, cfg.Site.Name), cfg.Site.URL)

			gin.SetMode(cfg.Server.Mode)
			r := router.New(st, forum, accounts, cfg.Server.SessionSecret)

			log.Printf("%s server starting on :%s", cfg.Site.Name, cfg.Server.Port)
			return r.Run(":" + cfg.Server.Port)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := connect()
			if err != nil {
				return err
			}
			return db.Migrate(conn)
		},
	}
}

func recountCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "recount",
		Short: "Recompute vote tallies, comment counts and karma from the vote rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := connect()
			if err != nil {
				return err
			}

			drifts, err := services.NewReconciler(store.New(conn)).Run(context.Background(), !dryRun)
			for _, d := range drifts {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			if err != nil {
				return err
			}

			verb := "repaired"
			if dryRun {
				verb = "found"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d counters %s\n", len(drifts), verb)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report drift without writing")
	return cmd
}
