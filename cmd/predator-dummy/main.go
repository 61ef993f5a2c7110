package main

import (
	"net"
	"strconv"

	"github.com/Meesho/BharatMLStack/predator-client/internal/dummyserver"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/logger"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/metric"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	_ "go.uber.org/automaxprocs"
)

func main() {
	viper.AutomaticEnv()
	viper.SetDefault("APP_PORT", 8001)
	viper.SetDefault("APP_LOG_LEVEL", "INFO")

	if err := logger.InitLogger(viper.GetString("APP_LOG_LEVEL")); err != nil {
		log.Panic().Err(err).Msg("Failed to initialise logger")
	}
	if viper.IsSet("TELEGRAF_ADDRESS") {
		metric.Init(viper.GetString("TELEGRAF_ADDRESS"), []string{"service:predator-dummy"}, viper.GetFloat64("METRIC_SAMPLING_RATE"))
	}

	listener, err := net.Listen("tcp", ":"+strconv.Itoa(viper.GetInt("APP_PORT")))
	if err != nil {
		log.Panic().Msgf("Failed to start the application - Failed to listen: %v", err)
	}
	if err := dummyserver.New().Run(listener); err != nil {
		log.Panic().Err(err).Msg("predator dummy server stopped")
	}
}
