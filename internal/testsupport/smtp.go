package testsupport

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// SMTPMessage is one message captured by SMTPServer.
type SMTPMessage struct {
	From string
	To   []string
	Data string
}

// SMTPServer is a minimal plaintext SMTP sink for tests.
type SMTPServer struct {
	listener net.Listener
	mu       sync.Mutex
	messages []SMTPMessage
	reject   bool
	held     chan struct{}
	release  chan struct{}
	wg       sync.WaitGroup
}

// NewSMTPServer starts a sink on a loopback port and stops it on cleanup.
func NewSMTPServer(t testing.TB) *SMTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen smtp: %v", err)
	}
	s := &SMTPServer{listener: ln}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

// Host returns the listener host.
func (s *SMTPServer) Host() string {
	host, _, _ := net.SplitHostPort(s.listener.Addr().String())
	return host
}

// Port returns the listener port.
func (s *SMTPServer) Port() int {
	_, port, _ := net.SplitHostPort(s.listener.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

// RejectData makes the server refuse every message body.
func (s *SMTPServer) RejectData() {
	s.mu.Lock()
	s.reject = true
	s.mu.Unlock()
}

// HoldData makes the server wait before acknowledging each message body.
// held receives once per waiting message; release lets every waiting and
// future message through. Cleanup releases automatically.
func (s *SMTPServer) HoldData(t testing.TB) (held <-chan struct{}, release func()) {
	t.Helper()
	s.mu.Lock()
	s.held = make(chan struct{}, 16)
	s.release = make(chan struct{})
	ch, gate := s.held, s.release
	s.mu.Unlock()

	var once sync.Once
	release = func() { once.Do(func() { close(gate) }) }
	t.Cleanup(release)
	return ch, release
}

// Messages returns the captured messages.
func (s *SMTPServer) Messages() []SMTPMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SMTPMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *SMTPServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *SMTPServer) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	reply := func(line string) {
		_, _ = w.WriteString(line + "\r\n")
		_ = w.Flush()
	}

	reply("220 localhost ESMTP test")
	var current SMTPMessage
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		verb := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(verb, "EHLO"), strings.HasPrefix(verb, "HELO"):
			reply("250 localhost")
		case strings.HasPrefix(verb, "MAIL FROM:"):
			current = SMTPMessage{From: addressOf(line[len("MAIL FROM:"):])}
			reply("250 OK")
		case strings.HasPrefix(verb, "RCPT TO:"):
			current.To = append(current.To, addressOf(line[len("RCPT TO:"):]))
			reply("250 OK")
		case verb == "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")
			var body strings.Builder
			for {
				dataLine, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if dataLine == ".\r\n" || dataLine == ".\n" {
					break
				}
				body.WriteString(strings.TrimPrefix(dataLine, "."))
			}
			s.mu.Lock()
			held, gate := s.held, s.release
			s.mu.Unlock()
			if gate != nil {
				select {
				case held <- struct{}{}:
				default:
				}
				<-gate
			}

			s.mu.Lock()
			reject := s.reject
			if !reject {
				current.Data = body.String()
				s.messages = append(s.messages, current)
			}
			s.mu.Unlock()
			if reject {
				reply("554 Transaction failed")
			} else {
				reply("250 OK queued")
			}
		case verb == "QUIT":
			reply("221 Bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func addressOf(value string) string {
	value = strings.TrimSpace(value)
	if idx := strings.IndexByte(value, ' '); idx >= 0 {
		value = value[:idx]
	}
	return strings.Trim(value, "<>")
}
