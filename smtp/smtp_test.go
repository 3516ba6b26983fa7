package smtp

import (
	"bufio"
	"crypto/tls"
	"net"
	"testing"
	"time"

	"github.com/karastojko/mailio-sub000/address"
	"github.com/karastojko/mailio-sub000/internal/tlstest"
	"github.com/karastojko/mailio-sub000/message"
)

func serve(t *testing.T, fn func(net.Conn, *bufio.Reader)) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer ln.Close()
		defer conn.Close()
		fn(conn, bufio.NewReader(conn))
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	return line
}

func TestAuthenticateNoAuth(t *testing.T) {
	port := serve(t, func(conn net.Conn, r *bufio.Reader) {
		conn.Write([]byte("220 smtp.example.com ESMTP\r\n"))
		line := readLine(t, r)
		if line[:4] != "EHLO" {
			t.Errorf("server got %q, want EHLO", line)
		}
		conn.Write([]byte("250-smtp.example.com\r\n250 OK\r\n"))
	})

	c, err := Connect("127.0.0.1", port, time.Second)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if err := c.Authenticate("", "", AuthNone); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if c.State() != StateIdle {
		t.Errorf("State = %v, want StateIdle", c.State())
	}
}

func TestAuthenticateBadBanner(t *testing.T) {
	port := serve(t, func(conn net.Conn, r *bufio.Reader) {
		conn.Write([]byte("554 go away\r\n"))
	})

	c, err := Connect("127.0.0.1", port, time.Second)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if err := c.Authenticate("", "", AuthNone); err == nil {
		t.Fatal("Authenticate: want error on bad banner, got nil")
	}
}

func TestSubmitRejectedRecipient(t *testing.T) {
	port := serve(t, func(conn net.Conn, r *bufio.Reader) {
		conn.Write([]byte("220 smtp.example.com ESMTP\r\n"))
		readLine(t, r) // EHLO
		conn.Write([]byte("250 OK\r\n"))
		readLine(t, r) // MAIL FROM
		conn.Write([]byte("250 OK\r\n"))
		readLine(t, r) // RCPT TO
		conn.Write([]byte("550 no such user\r\n"))
	})

	c, err := Connect("127.0.0.1", port, time.Second)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()
	if err := c.Authenticate("", "", AuthNone); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	m := message.New()
	m.SetFrom(address.Address{Addr: "alice@example.com"})
	m.SetTo(address.Address{Addr: "bob@example.com"})
	m.Body = []byte("hi")

	err = c.Submit(m)
	if err == nil {
		t.Fatal("Submit: want error, got nil")
	}
	smtpErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("Submit err type = %T, want *Error", err)
	}
	if smtpErr.Code != 550 || smtpErr.Category != CategoryPermanent {
		t.Errorf("Submit err = %+v", smtpErr)
	}
}

func TestSubmitSuccess(t *testing.T) {
	var dataReceived []byte
	port := serve(t, func(conn net.Conn, r *bufio.Reader) {
		conn.Write([]byte("220 smtp.example.com ESMTP\r\n"))
		readLine(t, r) // EHLO
		conn.Write([]byte("250 OK\r\n"))
		readLine(t, r) // MAIL FROM
		conn.Write([]byte("250 OK\r\n"))
		readLine(t, r) // RCPT TO
		conn.Write([]byte("250 OK\r\n"))
		readLine(t, r) // DATA
		conn.Write([]byte("354 go ahead\r\n"))
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			dataReceived = append(dataReceived, line...)
			if line == ".\r\n" {
				break
			}
		}
		conn.Write([]byte("250 queued\r\n"))
	})

	c, err := Connect("127.0.0.1", port, time.Second)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()
	if err := c.Authenticate("", "", AuthNone); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	m := message.New()
	m.SetFrom(address.Address{Addr: "alice@example.com"})
	m.SetTo(address.Address{Addr: "bob@example.com"})
	m.Body = []byte("hi")

	if err := c.Submit(m); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(dataReceived) == 0 {
		t.Error("Submit: server saw no DATA payload")
	}
}

func TestStartTLS(t *testing.T) {
	port := serve(t, func(conn net.Conn, r *bufio.Reader) {
		conn.Write([]byte("220 smtp.example.com ESMTP\r\n"))
		readLine(t, r) // EHLO
		conn.Write([]byte("250 OK\r\n"))
		readLine(t, r) // STARTTLS
		conn.Write([]byte("220 go ahead\r\n"))

		tlsConn := tls.Server(conn, tlstest.ServerConfig)
		if err := tlsConn.Handshake(); err != nil {
			t.Errorf("server handshake: %v", err)
			return
		}
		tr := bufio.NewReader(tlsConn)
		readLine(t, tr) // EHLO again, over TLS
		tlsConn.Write([]byte("250 OK\r\n"))
	})

	c, err := Connect("127.0.0.1", port, time.Second)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if err := c.readBanner(); err != nil {
		t.Fatalf("readBanner: %v", err)
	}
	if err := c.helloOnce(); err != nil {
		t.Fatalf("helloOnce: %v", err)
	}
	if err := c.StartTLS(tlstest.ClientConfig); err != nil {
		t.Fatalf("StartTLS: %v", err)
	}
}
