// Package app assembles the controller from its configuration and runs it.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/smartlock/internal/certs"
	"github.com/muurk/smartlock/internal/config"
	"github.com/muurk/smartlock/internal/control"
	"github.com/muurk/smartlock/internal/discovery"
	"github.com/muurk/smartlock/internal/events"
	"github.com/muurk/smartlock/internal/lockstate"
	"github.com/muurk/smartlock/internal/logging"
	"github.com/muurk/smartlock/internal/netaddr"
	"github.com/muurk/smartlock/internal/netstack"
	"github.com/muurk/smartlock/internal/server"
	"github.com/muurk/smartlock/internal/wifi"
)

// Controller is the assembled set of tasks.
type Controller struct {
	Stack      *netstack.Stack
	Register   *lockstate.Register
	Radio      *wifi.HostRadio
	Supervisor *wifi.Supervisor
	Server     *server.Server
	Advertiser *discovery.Advertiser
	Publisher  events.Publisher
	Material   *certs.Material

	linkPollInterval time.Duration
}

// New validates cfg and builds every component. Nothing runs until Run.
func New(cfg *config.Config, version string) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	addr, err := cfg.Address()
	if err != nil {
		return nil, err
	}

	stack := netstack.New(netstack.Config{
		Address:   addr,
		PrefixLen: cfg.Device.PrefixLen,
		BindAny:   cfg.Device.BindAny,
	})
	register := lockstate.New()

	radio := wifi.NewHostRadio(stack)
	supervisor := wifi.NewSupervisor(radio, wifi.Config{
		SSID:     cfg.WiFi.SSID,
		Password: cfg.WiFi.Password,
		Backoff:  cfg.WiFi.Backoff,
	})

	material, err := loadCertificate(cfg, addr)
	if err != nil {
		return nil, err
	}
	tlsCert, err := material.TLSCertificate()
	if err != nil {
		return nil, err
	}
	clientAuth, err := server.ParseClientAuth(cfg.Server.ClientAuth)
	if err != nil {
		return nil, err
	}

	publisher := newPublisher(cfg)

	srvCfg := server.Config{
		Port:             cfg.Server.Port,
		Workers:          cfg.Server.Workers,
		BufferSize:       cfg.Server.BufferSize,
		IdleTimeout:      cfg.Server.IdleTimeout,
		LinkPollInterval: cfg.Server.LinkPollInterval,
		CloseGrace:       cfg.Server.CloseGrace,
	}
	srv := server.New(srvCfg, stack,
		server.NewTLSConfig(tlsCert, clientAuth),
		control.NewController(cfg.Device.Secret, register),
		register,
		server.WithPublisher(publisher),
	)

	c := &Controller{
		Stack:            stack,
		Register:         register,
		Radio:            radio,
		Supervisor:       supervisor,
		Server:           srv,
		Publisher:        publisher,
		Material:         material,
		linkPollInterval: srv.Config().LinkPollInterval,
	}

	if cfg.Discovery.Enabled {
		advAddr := addr
		if cfg.Device.BindAny {
			advAddr = netaddr.Address{}
		}
		c.Advertiser = discovery.NewAdvertiser(discovery.AdvertiserConfig{
			Instance: cfg.Discovery.Instance,
			Service:  cfg.Discovery.Service,
			Domain:   cfg.Discovery.Domain,
			Port:     cfg.Server.Port,
			Address:  advAddr,
			Version:  version,
		})
	}

	return c, nil
}

// Run starts the supervisor, the server and the optional advertiser and
// blocks until ctx ends or one of them fails fatally.
func (c *Controller) Run(ctx context.Context) error {
	defer func() {
		if err := c.Publisher.Close(); err != nil {
			logging.Warn("Failed to close event publisher", zap.Error(err))
		}
	}()

	logging.Info("Starting smartlock",
		zap.String("address", c.Stack.CIDR()),
		zap.String("url", c.Server.URL()),
		zap.String("fingerprint", c.Material.Fingerprint()),
		zap.Stringer("state", c.Register.Load()),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Supervisor.Run(gctx)
	})
	g.Go(func() error {
		return c.Server.Run(gctx)
	})
	if c.Advertiser != nil {
		g.Go(func() error {
			if err := c.Stack.WaitLinkUp(gctx, c.linkPollInterval); err != nil {
				return nil
			}
			if err := c.Advertiser.Run(gctx); err != nil {
				logging.Warn("mDNS advertisement unavailable", zap.Error(err))
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		logging.Error("smartlock stopped", zap.Error(err))
		return err
	}
	logging.Info("smartlock stopped")
	return nil
}

// Main runs the controller until SIGINT or SIGTERM.
func Main(cfg *config.Config, version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := New(cfg, version)
	if err != nil {
		return err
	}
	return c.Run(ctx)
}

func loadCertificate(cfg *config.Config, addr netaddr.Address) (*certs.Material, error) {
	if cfg.Server.CertFile != "" {
		m, err := certs.Load(cfg.Server.CertFile, cfg.Server.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load server certificate: %w", err)
		}
		logging.Info("Loaded server certificate",
			zap.String("cert", cfg.Server.CertFile),
			zap.String("key", cfg.Server.KeyFile),
		)
		return m, nil
	}

	params := certs.DefaultParams(addr.IP())
	logging.Info("Generating self-signed server certificate",
		zap.String("CN", params.CommonName),
		zap.String("ip", addr.String()),
		zap.Int("valid_days", params.ValidDays),
	)
	m, err := certs.Generate(params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate server certificate: %w", err)
	}
	return m, nil
}

// newPublisher returns the MQTT publisher when enabled. A broker that
// cannot be reached at startup disables publishing.
func newPublisher(cfg *config.Config) events.Publisher {
	if !cfg.MQTT.Enabled {
		return events.NopPublisher{}
	}
	p, err := events.NewMQTTPublisher(events.MQTTConfig{
		Broker:      cfg.MQTT.Broker,
		TLS:         cfg.MQTT.TLS,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		QoS:         byte(cfg.MQTT.QoS),
	})
	if err != nil {
		logging.For(logging.ComponentEvents).Warn("Lock state publishing disabled", zap.Error(err))
		return events.NopPublisher{}
	}
	return p
}
