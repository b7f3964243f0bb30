// Package run wires every subsystem — the timer wheel, the MLDPv1 engine,
// the ICMPv6 transmitter, the in-memory interface manager, the transport
// socket backings, DNS resolution, and the BSD socket facade — into a
// single runnable process driven by a YAML config file.
package run

import (
	"context"
	"log"
	"net"
	"time"

	"github.com/spf13/cobra"

	"netstack/internal/conf"
	"netstack/internal/contract"
	"netstack/internal/dnsclient"
	"netstack/internal/flog"
	"netstack/internal/iface"
	"netstack/internal/icmpv6mld"
	"netstack/internal/ipv6util"
	"netstack/internal/mldp"
	"netstack/internal/netlock"
	"netstack/internal/pkg/buffer"
	"netstack/internal/pkg/iterator"
	"netstack/internal/resolve"
	"netstack/internal/socket"
	"netstack/internal/timer"
	"netstack/internal/tnetsock"
)

// noopTransmitter stands in for the real ICMPv6 transmitter when a raw
// socket can't be opened (typically a privilege restriction), so the MLDP
// engine can still run its join/leave/timer state machine in a demo without
// actually reaching the wire.
type noopTransmitter struct{}

func (noopTransmitter) TxMsgReqHandler(ctx context.Context, ifNbr int, msgType, code byte, src, dst net.IP, hopLimit byte, payload []byte) error {
	flog.Debugf("noop mld transmit: if=%d type=%d dst=%s", ifNbr, msgType, dst)
	return nil
}

var confPath string

func init() {
	Cmd.Flags().StringVarP(&confPath, "config", "c", "config.yaml", "Path to the configuration file.")
}

var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the stack against the given configuration file.",
	Long:  `The 'run' command reads the specified YAML configuration file, brings up the timer wheel, the MLDP engine, and the socket facade, and joins the configured multicast groups.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := conf.LoadFromFile(confPath)
		if err != nil {
			log.Fatalf("failed to load configuration: %v", err)
		}
		if err := run(cmd.Context(), cfg); err != nil {
			log.Fatalf("run: %v", err)
		}
	},
}

// stack bundles every wired-up collaborator so the demo interface-join and
// socket dial paths below have something to call into.
type stack struct {
	lock    *netlock.Lock
	wheel   *timer.Wheel
	mldp    *mldp.Engine
	ifaces  *iface.Manager
	tcp     *tnetsock.TCP
	udp     *tnetsock.UDP
	bsdTCP  *socket.BSD
	resolve *resolve.Resolver
	sockCfg socket.RetryConfig
}

func run(ctx context.Context, cfg *conf.Conf) error {
	flog.SetLevel(int(flog.ParseLevel(cfg.Log.Level)))

	if err := buffer.Initialize(buffer.DefaultTCPBufferSize, buffer.DefaultUDPBufferSize, buffer.DefaultRelayBufferSize); err != nil {
		return err
	}

	lock := &netlock.Lock{}
	wheel := timer.New(lock, nil, cfg.Timer.PoolSize)

	var transmitter contract.ICMPv6Transmitter
	realTransmitter, err := icmpv6mld.NewTransmitter("::")
	if err != nil {
		flog.Warnf("mld transmitter unavailable (likely missing raw-socket privilege), membership reports will be logged only: %v", err)
		transmitter = noopTransmitter{}
	} else {
		transmitter = realTransmitter
	}

	ifaces := iface.New()
	ipv6 := ipv6util.New()

	engine := mldp.New(lock, nil, cfg.MLDP.PoolSize, wheel, ifaces, ipv6, transmitter, mldp.Config{
		TickPerSec:              cfg.Timer.TaskFreqHz,
		UnsolicitedReportDlySec: cfg.MLDP.UnsolicitedReportDlySec,
		ReportRetryDlySec:       cfg.MLDP.ReportRetryDlySec,
		MaxResponseDlyCapSec:    cfg.MLDP.MaxResponseDlyCapSec,
	})

	dns := dnsclient.New(cfg.Resolve.DNSCacheSize, secToDuration(cfg.Resolve.DNSCacheTTLSec))
	resolver := resolve.NewResolver(cfg.Resolve.AddrInfoMax, dns)

	tcp := tnetsock.NewTCP(cfg.Transport)
	udp := tnetsock.NewUDP()
	bsdTCP := socket.NewBSD(lock, tcp)

	st := &stack{
		lock:    lock,
		wheel:   wheel,
		mldp:    engine,
		ifaces:  ifaces,
		tcp:     tcp,
		udp:     udp,
		bsdTCP:  bsdTCP,
		resolve: resolver,
		sockCfg: socket.RetryConfig{
			RetryMax:    cfg.Socket.RetryMax,
			TimeoutMs:   cfg.Socket.TimeoutMs,
			DlyMs:       cfg.Socket.DlyMs,
			RxThreshold: cfg.Socket.RxThreshold,
		},
	}

	go wheel.Run(ctx, cfg.Timer.TaskFreqHz)

	// Demo interfaces 1-3, each given a distinct solicited-node group to
	// join; ifIter cycles through them so a larger deployment's startup
	// sequence doesn't have to spell out one join call per interface.
	demoGroups := []net.IP{
		net.ParseIP("ff02::1:ff00:1"),
		net.ParseIP("ff02::1:ff00:2"),
		net.ParseIP("ff02::1:ff00:3"),
	}
	ifIter := &iterator.Iterator[int]{Items: []int{1, 2, 3}}
	for range demoGroups {
		ifNbr := ifIter.Next()
		st.ifaces.AddIface(ifNbr, net.ParseIP("fe80::1"))
		group := demoGroups[ifNbr-1]
		if err := st.mldp.Join(ctx, ifNbr, group); err != nil {
			flog.Warnf("join if=%d group=%s failed: %v", ifNbr, group, err)
		}
	}

	flog.Infof("stack up: timer pool=%d mldp pool=%d addrinfo pool=%d", cfg.Timer.PoolSize, cfg.MLDP.PoolSize, cfg.Resolve.AddrInfoMax)

	<-ctx.Done()
	return nil
}

func secToDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
