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

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/service"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

type Config struct {
	// Host interface to listen on
	Host string
	// Port to listen on for HTTP requests
	HTTPPort int
}

// Service is the part of the worker service exposed over HTTP.
type Service interface {
	Healthy() bool
	Sockets() []socket.Info
	Modules() []service.ModuleStatus
	DetectI2CAddresses(ctx context.Context, deviceID string) ([]byte, error)
}

type Server struct {
	Config
	log     zerolog.Logger
	service Service
}

func New(cfg Config, log zerolog.Logger, service Service) (*Server, error) {
	return &Server{
		Config:  cfg,
		log:     log.With().Str("component", "server").Logger(),
		service: service,
	}, nil
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	httpRouter := echo.New()
	httpRouter.HideBanner = true
	httpRouter.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	httpRouter.GET("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	httpRouter.GET("/health", s.healthHandler)
	httpRouter.GET("/sockets", s.socketsHandler)
	httpRouter.GET("/modules", s.modulesHandler)
	httpRouter.GET("/i2c/:id/addresses", s.i2cAddressesHandler)
	return httpRouter
}

func (s *Server) Run(ctx context.Context) error {
	log := s.log
	httpAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.HTTPPort))
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on address %s: %w", httpAddr, err)
	}
	httpSrv := http.Server{
		Handler: s.Handler(),
	}

	log.Debug().Str("address", httpAddr).Msg("Serving HTTP")
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to serve HTTP server")
		}
		log.Debug().Str("address", httpAddr).Msg("Done Serving HTTP")
	}()

	// Wait until context closed
	<-ctx.Done()

	log.Info().Msg("Closing servers")
	httpSrv.Shutdown(context.Background())
	return nil
}

func (s *Server) healthHandler(c echo.Context) error {
	if !s.service.Healthy() {
		return c.String(http.StatusServiceUnavailable, "NOT READY")
	}
	return c.String(http.StatusOK, "OK")
}

func (s *Server) socketsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.service.Sockets())
}

func (s *Server) modulesHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.service.Modules())
}

func (s *Server) i2cAddressesHandler(c echo.Context) error {
	addrs, err := s.service.DetectI2CAddresses(c.Request().Context(), c.Param("id"))
	if model.IsInvalidArgument(err) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	} else if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	result := make([]string, 0, len(addrs))
	for _, a := range addrs {
		result = append(result, fmt.Sprintf("0x%02x", a))
	}
	return c.JSON(http.StatusOK, result)
}
