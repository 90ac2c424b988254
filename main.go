// Command rustun runs either the relay/routing broker (server mode) or the
// overlay-VPN data-plane client (client mode), dispatched from argv[1] the
// way tungo's main.go dispatches on a mode argument.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"rustun/internal/application"
	clientpkg "rustun/internal/client"
	clientconfig "rustun/internal/config/client"
	serverconfig "rustun/internal/config/server"
	"rustun/internal/config/routes"
	"rustun/internal/cryptography"
	"rustun/internal/listeners"
	"rustun/internal/logging"
	"rustun/internal/metrics"
	"rustun/internal/server"
	"rustun/internal/settings"
	"rustun/internal/statusui"
	"rustun/internal/tundevice"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var err error
	switch os.Args[1] {
	case "server":
		err = runServer(os.Args[2:])
	case "client":
		err = runClient(ctx, os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "rustun:", err)
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: rustun server <config.toml> | rustun client [--status] <flags>")
}

func runServer(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("server: config file path required")
	}
	cfg, err := serverconfig.Read(args[0])
	if err != nil {
		return err
	}
	routeEntries, err := routes.Load(cfg.Route.RoutesFile)
	if err != nil {
		return err
	}
	routeIdx := routes.NewIndex(routeEntries)

	suite, key, err := cfg.CipherSuite()
	if err != nil {
		return err
	}
	cipher, err := cryptography.NewCipher(suite, key)
	if err != nil {
		return err
	}
	codec := cryptography.NewCodec(cipher)

	log, err := logging.NewProduction()
	if err != nil {
		return err
	}
	counters := metrics.NewCounters("rustun_server")

	ln, err := listeners.NewTCPListener(cfg.Server.ListenAddr)
	if err != nil {
		return err
	}
	log.Infof("server: listening on %s", cfg.Server.ListenAddr)

	broker := server.NewBroker(routeIdx, codec, log, counters)
	return broker.Serve(ln)
}

func runClient(ctx context.Context, args []string) error {
	showStatus := false
	if len(args) > 0 && args[0] == "--status" {
		showStatus = true
		args = args[1:]
	}

	cfg, err := clientconfig.Parse(args)
	if err != nil {
		return err
	}

	log, err := logging.NewDevelopment()
	if err != nil {
		return err
	}
	counters := metrics.NewCounters("rustun_client")

	tun, err := tundevice.OpenTunDevice(settings.DefaultTunName, settings.DefaultMTU)
	if err != nil {
		return fmt.Errorf("client: open tun: %w", err)
	}
	defer tun.Close()

	var ipv6Listener, stunListener application.PacketConn
	if cfg.EnableP2P {
		ipv6Listener, err = listeners.NewUDPListener(fmt.Sprintf(":%d", settings.DefaultUDPDirectPort))
		if err != nil {
			return fmt.Errorf("client: open ipv6 udp listener: %w", err)
		}
		defer ipv6Listener.Close()

		stunListener, err = listeners.NewUDPListener(fmt.Sprintf(":%d", settings.DefaultUDPStunPort))
		if err != nil {
			return fmt.Errorf("client: open stun udp listener: %w", err)
		}
		defer stunListener.Close()
	}

	c, err := clientpkg.New(*cfg, tun, ipv6Listener, stunListener, log, counters)
	if err != nil {
		return err
	}

	if showStatus {
		return runStatusUI(ctx, c)
	}
	return c.Run(ctx)
}

func runStatusUI(ctx context.Context, c *clientpkg.Client) error {
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	model := statusui.NewModel(func() statusui.Snapshot {
		return statusui.Snapshot{Identity: c.Identity(), Relay: c.RelayUp(), Peers: c.Peers()}
	})
	program := tea.NewProgram(model)
	if _, err := program.Run(); err != nil {
		return err
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
