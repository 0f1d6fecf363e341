// Command lightkraken runs the networked LED-lighting controller: it
// listens for Art-Net, sACN and DDP ingress, drives the pixel/analog
// output stages, and serves the settings/metrics/topology HTTP surface.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/tinic/lightkraken/internal/api"
	"github.com/tinic/lightkraken/internal/config"
	applog "github.com/tinic/lightkraken/internal/logger"
	"github.com/tinic/lightkraken/internal/protocol/ddp"
	"github.com/tinic/lightkraken/internal/protocol/sacn"
	"github.com/tinic/lightkraken/internal/system"
	"github.com/tinic/lightkraken/internal/websocket"
)

var Version = "0.1.0"

func main() {
	configPath := os.Getenv("LIGHTKRAKEN_CONFIG")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lightkraken: load config: %v\n", err)
		os.Exit(1)
	}

	if err := applog.Init(applog.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		LogDir:     cfg.Logger.LogDir,
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 7,
		Compress:   true,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "lightkraken: init logger: %v\n", err)
		os.Exit(1)
	}
	log := applog.Get()
	defer log.Sync()

	if cfg.Network.DiagnosticUART != "" {
		port, err := serial.Open(cfg.Network.DiagnosticUART, &serial.Mode{
			BaudRate: cfg.Network.DiagnosticUARTBaud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			log.Warn("diagnostic UART unavailable", zap.Error(err))
		} else {
			applog.SetUARTSink(port)
			defer port.Close()
		}
	}

	initHardware(log)

	sys, err := system.New(system.Options{
		SettingsPath:      cfg.Storage.Path,
		JournalSectorKB:   cfg.Storage.JournalSectorKB,
		DiscoveryInterval: sacn.DiscoveryInterval,
		PulseSetter:       openPulseSetter(cfg.Hardware, log),
		Log:               log,
	})
	if err != nil {
		log.Fatal("build system", zap.Error(err))
	}
	defer sys.Close()

	for i, t := range openSPITransports(cfg.Hardware, log) {
		if t == nil || i >= len(sys.Strips) {
			continue
		}
		sys.Strips[i].DMATransfer = t.Transfer
		sys.Strips[i].DMABusy = t.Busy
	}

	applog.SetBroadcaster(func(level, message, source string, fields map[string]interface{}) {
		sys.Hub.Broadcast(websocket.MessageTypeLog, map[string]interface{}{
			"level":   level,
			"message": message,
			"source":  source,
			"fields":  fields,
		})
	})

	localIP, mac := localIdentity(cfg.Network.MulticastInterface)
	sys.ArtNet.LocalIP = localIP
	sys.ArtNet.MAC = mac
	sys.ArtNet.ShortName = "lightkraken"
	sys.ArtNet.LongName = "lightkraken LED controller"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	artnetConn, err := listenUDP("artnet", cfg.Network.ArtNetPort)
	if err != nil {
		log.Fatal("listen artnet", zap.Error(err))
	}
	defer artnetConn.Close()
	sys.ArtNet.Send = func(data []byte, addr *net.UDPAddr) {
		if _, err := artnetConn.WriteToUDP(data, addr); err != nil {
			log.Warn("artnet send failed", zap.Error(err))
		}
	}
	go readLoop(ctx, log, "artnet", artnetConn, sys.ArtNet.HandlePacket)

	sacnConn, err := listenUDP("sacn", cfg.Network.SACNPort)
	if err != nil {
		log.Fatal("listen sacn", zap.Error(err))
	}
	defer sacnConn.Close()
	if cfg.Network.BroadcastEnabled {
		var cid [16]byte
		sys.SACN.SendDiscovery = func() {
			universes := sys.Control.CollectActiveE131Universes()
			frame := sacn.BuildDiscoveryPacket(universes, "lightkraken", cid)
			broadcast := &net.UDPAddr{IP: net.IPv4bcast, Port: cfg.Network.SACNPort}
			if _, err := sacnConn.WriteToUDP(frame, broadcast); err != nil {
				log.Warn("sacn discovery send failed", zap.Error(err))
			}
		}
	}
	go readLoop(ctx, log, "sacn", sacnConn, sys.SACN.HandlePacket)

	ddpConn, err := listenUDP("ddp", cfg.Network.DDPPort)
	if err != nil {
		log.Fatal("listen ddp", zap.Error(err))
	}
	defer ddpConn.Close()
	go readLoop(ctx, log, "ddp", ddpConn, handleDDP(log))

	sys.Start(ctx)
	go sys.Hub.Run()

	app := fiber.New(fiber.Config{
		AppName: "lightkraken v" + Version,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	svc := api.NewService(sys)
	api.SetupRoutes(app, svc)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("http server starting", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	cancel()
	sys.Systick.Stop()
	_ = app.ShutdownWithTimeout(5 * time.Second)
}

func listenUDP(name string, port int) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("resolve %s addr: %w", name, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", name, err)
	}
	return conn, nil
}

// readLoop reads datagrams from conn until ctx is cancelled, handing each
// one to handle. A read error (other than shutdown) is logged and the
// loop continues - one bad packet or transient error must not take the
// listener down.
func readLoop(ctx context.Context, log *zap.Logger, name string, conn *net.UDPConn, handle func([]byte, *net.UDPAddr)) {
	buf := make([]byte, 2048)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		conn.SetReadDeadline(time.Now().Add(time.Second))
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return
			default:
				log.Debug("udp read error", zap.String("proto", name), zap.Error(err))
				continue
			}
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		handle(frame, from)
	}
}

// handleDDP adapts ddp.Dispatch's parse/verify-only behavior to the
// listener's HandlePacket signature, logging a structurally valid packet
// that still has no wired pixel destination instead of silently dropping it.
func handleDDP(log *zap.Logger) func([]byte, *net.UDPAddr) {
	return func(buf []byte, from *net.UDPAddr) {
		_, err := ddp.Dispatch(buf)
		switch err {
		case nil:
			return
		case ddp.ErrNotWired:
			log.Debug("ddp packet has no wired destination", zap.String("from", from.String()))
		case ddp.ErrInvalid:
			return
		}
	}
}

// localIdentity picks the outbound IPv4 address and MAC of ifaceName, or
// the first non-loopback interface carrying an IPv4 address if ifaceName
// is empty, for the Art-Net ArtPollReply body.
func localIdentity(ifaceName string) (net.IP, net.HardwareAddr) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return net.IPv4zero, nil
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if ifaceName != "" && iface.Name != ifaceName {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			return ipnet.IP.To4(), iface.HardwareAddr
		}
	}
	return net.IPv4zero, nil
}
