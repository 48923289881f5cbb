// Package app wires configuration into the concrete stores shared by the
// server and the seed CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"alcyxob/fitflow/internal/config"
	"alcyxob/fitflow/internal/repository"
	"alcyxob/fitflow/internal/repository/memory"
	"alcyxob/fitflow/internal/repository/mongo"

	log "github.com/sirupsen/logrus"
)

type Stores struct {
	Users    repository.UserRepository
	Workouts repository.WorkoutRepository
	close    func()
}

// Close releases the database connection, if any.
func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

func OpenStores(ctx context.Context, cfg config.DatabaseConfig) (*Stores, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warnln("using in-memory stores, data is lost on exit")
		return &Stores{
			Users:    memory.NewUserRepository(),
			Workouts: memory.NewWorkoutRepository(),
		}, nil

	case config.DriverMongo:
		client, err := mongo.ConnectDB(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		db := client.Database(cfg.Name)
		log.Infof("connected to mongodb database %s", cfg.Name)

		indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
		mongo.EnsureIndexes(indexCtx, db)
		cancel()

		return &Stores{
			Users:    mongo.NewMongoUserRepository(db),
			Workouts: mongo.NewMongoWorkoutRepository(db),
			close: func() {
				log.Debugln("disconnecting mongodb...")
				if err := mongo.DisconnectDB(client); err != nil {
					log.Errorf("failed to disconnect mongodb: %s", err)
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
