package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"timerhub/internal/logs"

	"golang.org/x/sys/unix"
)

// Wire tokens. Devices broadcast the probe on the LAN and take the
// sender of the response as the server address.
const (
	ProbeToken    = "POKER_TIMER_DISCOVERY"
	ResponseToken = "POKER_TIMER_SERVER"
)

// DefaultReplyDelay separates the two copies of the response. UDP on a
// busy WiFi floor loses packets; the duplicate roughly doubles the
// chance a device catches one.
const DefaultReplyDelay = 100 * time.Millisecond

// Responder answers discovery probes on a UDP port. It owns one
// goroutine blocked on the socket; Stop closes the socket, which is the
// only way to unblock it, and the loop treats the post-close error as a
// normal shutdown.
type Responder struct {
	Port       int
	ReplyDelay time.Duration

	conn net.PacketConn
	done chan struct{}
}

func NewResponder(port int) *Responder {
	return &Responder{Port: port, ReplyDelay: DefaultReplyDelay}
}

// Start binds the socket (reuse-addr and broadcast enabled, as devices
// may probe via the subnet broadcast address) and launches the receive
// loop.
func (r *Responder) Start() error {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var serr error
			err := c.Control(func(fd uintptr) {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if serr == nil {
					serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
				}
			})
			if err != nil {
				return err
			}
			return serr
		},
	}
	conn, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", r.Port))
	if err != nil {
		return fmt.Errorf("discovery: bind udp :%d: %w", r.Port, err)
	}
	r.conn = conn
	r.done = make(chan struct{})

	logs.Logger.Infof("discovery responder listening on %s", conn.LocalAddr())
	go r.loop()
	return nil
}

// Addr returns the bound address (useful when Port was 0).
func (r *Responder) Addr() net.Addr {
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

func (r *Responder) loop() {
	defer close(r.done)
	buf := make([]byte, 1024)
	for {
		n, addr, err := r.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logs.Logger.Info("discovery responder stopped")
				return
			}
			// One bad packet must not kill the responder.
			logs.Logger.Errorf("discovery read: %v", err)
			continue
		}

		msg := strings.TrimSpace(string(buf[:n]))
		if msg != ProbeToken {
			continue
		}
		logs.Logger.Infof("discovery probe from %s", addr)

		resp := []byte(ResponseToken)
		if _, err := r.conn.WriteTo(resp, addr); err != nil {
			logs.Logger.Errorf("discovery reply to %s: %v", addr, err)
			continue
		}
		time.Sleep(r.ReplyDelay)
		if _, err := r.conn.WriteTo(resp, addr); err != nil {
			logs.Logger.Errorf("discovery second reply to %s: %v", addr, err)
		}
	}
}

// Stop closes the socket and waits for the loop to exit.
func (r *Responder) Stop() {
	if r.conn == nil {
		return
	}
	_ = r.conn.Close()
	<-r.done
}
