package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	pkg "github.com/luner-app/luner/pkg/internal"
	"github.com/luner-app/luner/pkg/internal/auth"
	"github.com/luner-app/luner/pkg/internal/blob"
	"github.com/luner-app/luner/pkg/internal/cache"
	"github.com/luner-app/luner/pkg/internal/database"
	"github.com/luner-app/luner/pkg/internal/http"
	"github.com/luner-app/luner/pkg/internal/http/api"
	"github.com/luner-app/luner/pkg/internal/services"
	"github.com/luner-app/luner/pkg/internal/store"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.YellowString(" _\n| |   _   _ _ __   ___ _ __\n| |  | | | | '_ \\ / _ \\ '__|\n| |__| |_| | | | |  __/ |\n|_____\\__,_|_| |_|\\___|_|"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiYellow).Add(color.Bold).Sprintf("Luner"), pkg.AppVersion)
	fmt.Printf("The realtime social feed service\n")
	color.HiBlack("=====================================================\n")

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Local cache
	if err := cache.NewStore(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when initializing cache.")
	}

	// Pick the data store
	var dataStore store.Store
	switch viper.GetString("storage.driver") {
	case "postgres":
		if err := database.NewGorm(); err != nil {
			log.Fatal().Err(err).Msg("An error occurred when connect to database.")
		} else if err := database.RunMigration(database.C); err != nil {
			log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
		}
		dataStore = store.NewPostgres(database.C)
	default:
		dataStore = store.NewMemory()
	}

	// Pick the blob backend
	var uploader blob.Uploader
	switch viper.GetString("blob.driver") {
	case "s3":
		s3, err := blob.NewS3(viper.GetString("blob.region"), viper.GetString("blob.bucket"))
		if err != nil {
			log.Fatal().Err(err).Msg("An error occurred when connecting to object storage.")
		}
		uploader = s3
	default:
		uploader = blob.NewLocal(viper.GetString("blob.base_path"), viper.GetString("blob.base_url"))
	}

	authority := auth.NewLocal(dataStore, viper.GetString("security.jwt_secret"))
	hub := services.NewHub(
		dataStore,
		viper.GetInt("paging.posts_per_load"),
		viper.GetDuration("notify.transient_ttl"),
	)

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 15s", hub.SweepNotifications)
	quartz.AddFunc("@every 60m", func() {
		services.InvalidateProfileCache(context.Background())
	})
	quartz.Start()

	// Server
	go http.NewServer(&api.Deps{
		Store: dataStore,
		Auth:  authority,
		Blob:  uploader,
		Hub:   hub,
	}).Listen()

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	quartz.Stop()
}
