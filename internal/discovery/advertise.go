package discovery

import (
	"context"
	"fmt"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/smartlock/internal/logging"
	"github.com/muurk/smartlock/internal/netaddr"
)

// AdvertiserConfig describes the service record to announce.
type AdvertiserConfig struct {
	Instance string
	Service  string
	Domain   string
	Host     string
	Port     int
	// Address is announced as the A record. When unspecified the host's
	// own addresses are announced instead.
	Address netaddr.Address
	Version string
}

func (c AdvertiserConfig) withDefaults() AdvertiserConfig {
	if c.Instance == "" {
		c.Instance = "smartlock"
	}
	if c.Service == "" {
		c.Service = ServiceType
	}
	if c.Domain == "" {
		c.Domain = ServiceDomain
	}
	if c.Host == "" {
		c.Host = c.Instance
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	return c
}

// TXT returns the TXT strings announced with the service.
func (c AdvertiserConfig) TXT() []string {
	txt := []string{"path=/", "scheme=https"}
	if c.Version != "" {
		txt = append(txt, "version="+c.Version)
	}
	return txt
}

// Advertiser announces the control endpoint over mDNS.
type Advertiser struct {
	cfg AdvertiserConfig
	log *zap.Logger
}

// NewAdvertiser creates an Advertiser. Nothing is sent until Run.
func NewAdvertiser(cfg AdvertiserConfig) *Advertiser {
	return &Advertiser{
		cfg: cfg.withDefaults(),
		log: logging.For(logging.ComponentDiscovery),
	}
}

// Config returns the effective configuration.
func (a *Advertiser) Config() AdvertiserConfig {
	return a.cfg
}

// Run announces the service until ctx ends.
func (a *Advertiser) Run(ctx context.Context) error {
	srv, err := a.register()
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	defer srv.Shutdown()

	a.log.Info("Advertising control endpoint",
		zap.String("instance", a.cfg.Instance),
		zap.String("service", a.cfg.Service),
		zap.Int("port", a.cfg.Port),
		zap.Strings("txt", a.cfg.TXT()),
	)

	<-ctx.Done()
	a.log.Info("Withdrawing mDNS advertisement")
	return nil
}

func (a *Advertiser) register() (*zeroconf.Server, error) {
	if a.cfg.Address.IsUnspecified() {
		return zeroconf.Register(a.cfg.Instance, a.cfg.Service, a.cfg.Domain, a.cfg.Port, a.cfg.TXT(), nil)
	}
	return zeroconf.RegisterProxy(
		a.cfg.Instance, a.cfg.Service, a.cfg.Domain, a.cfg.Port,
		a.cfg.Host, []string{a.cfg.Address.String()},
		a.cfg.TXT(), nil,
	)
}
