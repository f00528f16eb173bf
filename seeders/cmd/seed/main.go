package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"freeflow/internal/dto"
	"freeflow/internal/resources"
	"freeflow/internal/routes"
	"freeflow/migrations"
	"freeflow/pkg/config"
	"freeflow/pkg/database/postgresql"
	"freeflow/pkg/eventbus"
	applogger "freeflow/pkg/logger"
	"freeflow/pkg/service"
	"freeflow/seeders"
)

func main() {
	runMigrate := flag.Bool("migrate", false, "apply database migrations before seeding")
	runDemo := flag.Bool("demo", false, "create a demo workspace")
	printToken := flag.Bool("token", false, "print an access token for the demo user")
	userFlag := flag.String("user", "", "owner user id (random when empty)")
	email := flag.String("email", "demo@freeflow.local", "owner email used in the token")
	seed := flag.Uint64("seed", 1, "faker seed")
	flag.Parse()

	if !*runMigrate && !*runDemo && !*printToken {
		fmt.Fprintln(os.Stderr, "nothing to do, pass at least one of -migrate, -demo, -token")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log.Level, cfg.Log.File)
	defer logger.Sync()

	if err := run(cfg, logger, options{
		migrate: *runMigrate,
		demo:    *runDemo,
		token:   *printToken,
		user:    *userFlag,
		email:   *email,
		seed:    *seed,
	}); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
}

type options struct {
	migrate bool
	demo    bool
	token   bool
	user    string
	email   string
	seed    uint64
}

func run(cfg *config.Config, logger *zap.Logger, opts options) error {
	ctx := context.Background()

	owner := dto.UserClaims{UserID: uuid.New(), Email: opts.email, Name: "Demo User"}
	if opts.user != "" {
		id, err := uuid.Parse(opts.user)
		if err != nil {
			return fmt.Errorf("-user: %w", err)
		}
		owner.UserID = id
	}

	if opts.migrate || opts.demo {
		pool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			return err
		}
		defer pool.Close()

		if opts.migrate {
			if err := migrations.Up(ctx, pool, logger); err != nil {
				return err
			}
		}

		if opts.demo {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			defer rdb.Close()
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis: %w", err)
			}

			bus := eventbus.New(logger)
			svc, err := routes.NewServices(pool, rdb, resources.DefaultRegistry(), bus, cfg.Cache.ListTTL, logger)
			if err != nil {
				return err
			}
			summary, err := seeders.NewSeeder(svc.Records, svc.Invoices, svc.Escrow, opts.seed, logger).
				Run(ctx, owner, seeders.DefaultCounts())
			bus.Wait()
			if err != nil {
				return err
			}
			fmt.Printf("seeded workspace for %s: %v\n", owner.UserID, summary)
			fmt.Printf("escrow completion password: %s\n", seeders.DemoCompletionPassword)
		}
	}

	if opts.token {
		jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, logger)
		token, err := jwtSvc.GenerateToken(owner.UserID, owner.Email, owner.Name)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Printf("user %s token:\n%s\n", owner.UserID, token)
	}
	return nil
}
