package app

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/smartlock/internal/certs"
	"github.com/muurk/smartlock/internal/config"
	"github.com/muurk/smartlock/internal/lockstate"
	"github.com/muurk/smartlock/internal/netaddr"
	"github.com/muurk/smartlock/internal/render"
	"github.com/muurk/smartlock/internal/wifi"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.WiFi.SSID = "workshop"
	cfg.WiFi.Backoff = 10 * time.Millisecond
	cfg.Device.StaticIP = "127.0.0.1"
	cfg.Device.Secret = "abc123"
	cfg.Server.Port = freePort(t)
	cfg.Server.CloseGrace = 10 * time.Millisecond
	cfg.Server.LinkPollInterval = 10 * time.Millisecond
	cfg.Discovery.Enabled = false
	return cfg
}

func TestNewRejectsMalformedAddress(t *testing.T) {
	cfg := testConfig(t)
	cfg.Device.StaticIP = "127.0.0"

	_, err := New(cfg, "test")
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.ErrorIs(t, err, netaddr.ErrMalformedAddress)
}

func TestNewRejectsUnknownClientAuth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.ClientAuth = "mutual"

	_, err := New(cfg, "test")
	assert.Error(t, err)
}

func TestNewWiresAdvertiser(t *testing.T) {
	cfg := testConfig(t)
	cfg.Discovery.Enabled = true
	cfg.Discovery.Instance = "front-door"

	c, err := New(cfg, "1.2.3")
	require.NoError(t, err)
	require.NotNil(t, c.Advertiser)
	assert.Equal(t, "front-door", c.Advertiser.Config().Instance)
	assert.Equal(t, cfg.Server.Port, c.Advertiser.Config().Port)
	assert.Contains(t, c.Advertiser.Config().TXT(), "version=1.2.3")
}

func TestRunServesAfterAssociation(t *testing.T) {
	cfg := testConfig(t)

	c, err := New(cfg, "test")
	require.NoError(t, err)
	assert.Equal(t, lockstate.Locked, c.Register.Load())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		return c.Supervisor.State() == wifi.StateConnected
	}, 5*time.Second, 10*time.Millisecond)

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Server.Port))
	var conn *tls.Conn
	require.Eventually(t, func() bool {
		conn, err = tls.Dial("tcp", addr, &tls.Config{InsecureSkipVerify: true})
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	peer := conn.ConnectionState().PeerCertificates
	require.NotEmpty(t, peer)
	assert.Equal(t, c.Material.Fingerprint(), certs.Fingerprint(peer[0].Raw))

	_, err = conn.Write([]byte("GET /unlock?password=abc123 HTTP/1.0\r\n\r\n"))
	require.NoError(t, err)
	resp, _ := io.ReadAll(conn)
	assert.Equal(t, string(render.AppendResponse(nil, lockstate.Unlocked, false)), string(resp))
	assert.Equal(t, lockstate.Unlocked, c.Register.Load())

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not stop")
	}
}

func TestRunStopsOnRadioStartFailure(t *testing.T) {
	cfg := testConfig(t)

	c, err := New(cfg, "test")
	require.NoError(t, err)
	c.Radio.FailStart(assert.AnError)

	err = c.Run(context.Background())
	assert.ErrorIs(t, err, wifi.ErrRadioStart)
	assert.ErrorIs(t, err, assert.AnError)
}
