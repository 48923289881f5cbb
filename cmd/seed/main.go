// Command seed writes the sample Push/Pull/Leg week into a user's calendar.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"alcyxob/fitflow/internal/app"
	"alcyxob/fitflow/internal/config"
	"alcyxob/fitflow/internal/logging"
	"alcyxob/fitflow/internal/metrics"
	"alcyxob/fitflow/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	configDir string
	userHex   string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a user's calendar with the sample workout week",
	Long: `Writes Push Day, Pull Day and Leg Day to Monday, Wednesday and Friday
of the current week for the given user. Dates that already hold a workout
are overwritten, so running it twice is safe.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	rootCmd.Flags().StringVar(&configDir, "config", ".", "directory containing config.yaml and .env")
	rootCmd.Flags().StringVarP(&userHex, "user", "u", "", "owner id (24 hex characters)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	_ = rootCmd.MarkFlagRequired("user")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	owner, err := primitive.ObjectIDFromHex(userHex)
	if err != nil {
		return fmt.Errorf("invalid --user %q: %w", userHex, err)
	}

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return err
	}
	if cfg.Database.Driver == config.DriverMemory {
		return fmt.Errorf("seeding needs a persistent database, driver is %q", cfg.Database.Driver)
	}
	logging.Setup(logging.LoggerSetupParams{
		LogLevel:      cfg.Log.Level,
		LogFormatJSON: cfg.Log.JSON,
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer stores.Close()

	workouts := service.NewWorkoutService(stores.Workouts, metrics.NewManager("fitflow", "seed", prometheus.NewRegistry()))
	n, err := service.NewMigrationService(workouts).Run(ctx, owner)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Infof("seeded %d workouts for %s", n, owner.Hex())
	fmt.Fprintf(cmd.OutOrStdout(), "%d workouts successfully migrated\n", n)
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
