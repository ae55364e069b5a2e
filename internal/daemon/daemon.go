package daemon

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/leonardotrapani/mockroom/internal/bus"
	"github.com/leonardotrapani/mockroom/internal/notify"
	"github.com/leonardotrapani/mockroom/internal/session"
)

// Session is the interview the daemon hosts. *session.Session satisfies it.
type Session interface {
	Start(ctx context.Context) error
	End()
	Interact()
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
	Done() <-chan struct{}
}

// Daemon hosts one session and serves the control socket until it ends.
type Daemon struct {
	notifier notify.Notifier
	session  Session
	render   func(session.Snapshot)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a daemon for s. render, if set, receives every snapshot.
func New(s Session, n notify.Notifier, render func(session.Snapshot)) *Daemon {
	if n == nil {
		n = notify.Nop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		notifier: n,
		session:  s,
		render:   render,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, ending interview", sig)
			d.session.End()
		case <-d.ctx.Done():
		}
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	initial := d.session.Snapshot()
	updates, unsubscribe := d.session.Subscribe()
	defer unsubscribe()
	if err := d.session.Start(d.ctx); err != nil {
		d.cancel()
		return fmt.Errorf("failed to start session: %w", err)
	}

	d.wg.Add(1)
	go d.watch(initial, updates)

	log.Printf("Daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				break
			}
			log.Printf("Accept error: %v", err)
			d.session.End()
			d.cancel()
			d.wg.Wait()
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}

	<-d.session.Done()
	d.wg.Wait()
	log.Printf("Daemon stopped")
	return nil
}

// watch forwards snapshots to the renderer and notifier and stops the
// daemon once the session closes the channel.
func (d *Daemon) watch(prev session.Snapshot, updates <-chan session.Snapshot) {
	defer d.wg.Done()
	defer d.cancel()

	for snap := range updates {
		if d.render != nil {
			d.render(snap)
		}
		for _, mt := range transitions(prev, snap) {
			d.notifier.Send(mt)
		}
		if prev.Active && !snap.Active && snap.Connection == session.Error && snap.LastError != "" {
			d.notifier.Error(snap.LastError)
		}
		prev = snap
	}
}

// transitions lists the notifications due between two snapshots.
func transitions(prev, next session.Snapshot) []notify.MessageType {
	var out []notify.MessageType
	if prev.Connection != session.Connected && next.Connection == session.Connected {
		out = append(out, notify.MsgCallConnected)
	}
	if !prev.Closing && next.Closing {
		out = append(out, notify.MsgClosingSoon)
	}
	if prev.Active && !next.Active {
		if next.Connection == session.Error {
			out = append(out, notify.MsgCallFailed)
		} else {
			out = append(out, notify.MsgCallEnded)
		}
	}
	return out
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := line[0]

	switch cmd {
	case bus.CmdEnd:
		d.session.End()
		fmt.Fprint(c, "OK ended\n")
	case bus.CmdInteract:
		d.session.Interact()
		fmt.Fprintf(c, "OK audio=%s\n", d.session.Snapshot().AudioStatus)
	case bus.CmdStatus:
		fmt.Fprintf(c, "STATUS %s\n", StatusLine(d.session.Snapshot()))
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.session.End()
	default:
		log.Printf("Unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

// StatusLine renders a snapshot as space-separated key=value pairs.
func StatusLine(s session.Snapshot) string {
	return fmt.Sprintf("connection=%s timer=%s remaining=%s closing=%t ai_speaking=%t audio=%s active=%t",
		s.Connection, clock(s.Timer), clock(s.Remaining()), s.Closing, s.AISpeaking,
		quoteSpaces(string(s.AudioStatus)), s.Active)
}

func clock(sec int) string {
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

func quoteSpaces(v string) string {
	for _, r := range v {
		if r == ' ' {
			return fmt.Sprintf("%q", v)
		}
	}
	return v
}
