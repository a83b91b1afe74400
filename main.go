// Copyright 2024 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/environment"
	"github.com/binkynet/Gadgeteer/pkg/logging"
	"github.com/binkynet/Gadgeteer/pkg/server"
	"github.com/binkynet/Gadgeteer/pkg/service"
	"github.com/binkynet/Gadgeteer/pkg/service/bridge"
	"github.com/binkynet/Gadgeteer/pkg/service/telemetry"
)

const (
	projectName       = "Gadgeteer HAT Worker"
	defaultServerPort = 7130
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

func main() {
	var levelFlag string
	var bridgeType string
	var configPath string
	var serverHost string
	var serverPort int
	var mqttBroker string
	var mqttTopic string
	var mqttLog bool
	var pollInterval time.Duration

	pflag.StringVarP(&levelFlag, "level", "l", "info", "Set log level")
	pflag.StringVarP(&bridgeType, "bridge", "b", "auto", "Type of bridge to use (auto|rpi|virtual)")
	pflag.StringVarP(&configPath, "config", "c", "gadgeteer.yaml", "Path of the worker configuration file")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the HTTP server will listen on")
	pflag.IntVar(&serverPort, "port", defaultServerPort, "Port the HTTP server will listen on")
	pflag.StringVar(&mqttBroker, "mqtt-broker", "", "Address (host:port) of the MQTT broker (overrides config)")
	pflag.StringVar(&mqttTopic, "mqtt-topic", "", "Prefix of all MQTT topics (overrides config)")
	pflag.BoolVar(&mqttLog, "mqtt-log", false, "Publish log lines to <mqtt-topic>/log")
	pflag.DurationVar(&pollInterval, "poll-interval", 0, "Interval between module readings (overrides config)")
	pflag.Parse()

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())

	var mqttWriter logging.MQTTWriter
	var logOutput io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if mqttLog {
		mqttWriter = logging.NewMQTTWriter(ctx)
		logOutput = logging.NewMultiWriter(logOutput, mqttWriter)
	}
	logger := zerolog.New(logOutput).With().Timestamp().Logger()
	level, err := zerolog.ParseLevel(levelFlag)
	if err != nil {
		Exitf("Invalid log level '%s': %v\n", levelFlag, err)
	}
	logger = logger.Level(level)

	conf, err := model.LoadConfiguration(configPath)
	if err != nil {
		Exitf("Failed to load configuration from '%s': %v\n", configPath, err)
	}
	if mqttBroker != "" {
		conf.Telemetry.Broker = mqttBroker
	}
	if mqttTopic != "" {
		conf.Telemetry.TopicPrefix = mqttTopic
	}
	if pollInterval != 0 {
		conf.PollInterval = pollInterval
	}

	if bridgeType == "auto" {
		bridgeType = string(environment.AutoDetectBridgeType(logger))
	}
	br, err := bridge.New(bridge.Type(bridgeType), bridge.DefaultRaspberryPiConfig(logger))
	if err != nil {
		Exitf("Failed to initialize %s bridge: %v\n", bridgeType, err)
	}

	svc, err := service.NewService(service.Config{
		WorkerConfiguration: conf,
		ProgramVersion:      projectVersion,
	}, service.Dependencies{
		Logger: logger,
		Bridge: br,
	})
	if err != nil {
		Exitf("Failed to initialize Service: %v\n", err)
	}

	httpServer, err := server.New(server.Config{
		Host:     serverHost,
		HTTPPort: serverPort,
	}, logger, svc)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	g, ctx := errgroup.WithContext(ctx)
	if broker := conf.Telemetry.Broker; broker != "" {
		publisher := telemetry.NewMQTTPublisher(logger, broker, conf.Telemetry.ClientID)
		forwarder := telemetry.NewForwarder(logger, conf.Telemetry.TopicPrefix, publisher)
		svc.SubscribeReadings(forwarder.Forward)
		if mqttWriter != nil {
			mqttWriter.SetDestination(conf.Telemetry.TopicPrefix+"/log", publisher)
			mqttWriter.Enable(true)
		}
		g.Go(func() error { return publisher.Run(ctx) })
	}
	g.Go(func() error { return svc.Run(ctx) })
	g.Go(func() error { return httpServer.Run(ctx) })
	if err := g.Wait(); err != nil {
		Exitf("Service run failed: %#v", err)
	}
}

func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
