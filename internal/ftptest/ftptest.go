// Package ftptest is a minimal FTP client for exercising the server from
// tests. It speaks just enough of the protocol to log in, negotiate
// passive mode, and move bytes; replies with unexpected codes come back as
// *textproto.Error so tests can assert on them.
package ftptest

import (
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

const dialTimeout = 5 * time.Second

// Client drives one control connection.
type Client struct {
	conn      net.Conn
	text      *textproto.Conn
	greetCode int
	greetMsg  string
}

// Dial connects to addr and reads the greeting, which may be a 421
// refusal; check Greeting.
func Dial(addr string) (*Client, error) {
	return DialFrom(addr, "")
}

// DialFrom connects from a specific local IP, letting tests present
// distinct peers to the per-IP session registry. Any 127.0.0.0/8 address
// binds on the loopback interface.
func DialFrom(addr, localIP string) (*Client, error) {
	d := net.Dialer{Timeout: dialTimeout}
	if localIP != "" {
		d.LocalAddr = &net.TCPAddr{IP: net.ParseIP(localIP)}
	}

	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}

	c := &Client{conn: conn, text: textproto.NewConn(conn)}
	code, msg, err := c.text.ReadResponse(-1)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading greeting: %w", err)
	}
	c.greetCode, c.greetMsg = code, msg
	return c, nil
}

// Greeting returns the code and text the server opened the connection
// with.
func (c *Client) Greeting() (int, string) {
	return c.greetCode, c.greetMsg
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes one command line without waiting for the reply.
func (c *Client) Send(format string, args ...any) error {
	return c.text.PrintfLine(format, args...)
}

// ReadReply reads one (possibly multiline) reply.
func (c *Client) ReadReply() (int, string, error) {
	return c.text.ReadResponse(-1)
}

// Cmd sends one command and reads its reply.
func (c *Client) Cmd(format string, args ...any) (int, string, error) {
	if err := c.Send(format, args...); err != nil {
		return 0, "", err
	}
	return c.ReadReply()
}

// Login runs the USER/PASS exchange and returns the final reply.
func (c *Client) Login(user, pass string) (int, string, error) {
	code, msg, err := c.Cmd("USER %s", user)
	if err != nil || code != 331 {
		return code, msg, err
	}
	return c.Cmd("PASS %s", pass)
}

// Quit sends QUIT and closes the connection.
func (c *Client) Quit() error {
	_, _, err := c.Cmd("QUIT")
	c.conn.Close()
	return err
}

// Pasv negotiates passive mode and returns the advertised host:port.
func (c *Client) Pasv() (string, error) {
	code, msg, err := c.Cmd("PASV")
	if err != nil {
		return "", err
	}
	if code != 227 {
		return "", &textproto.Error{Code: code, Msg: msg}
	}
	return ParsePasv(msg)
}

// ParsePasv extracts host:port from 227 text of the form
// "Entering passive mode =h1,h2,h3,h4,p1,p2".
func ParsePasv(msg string) (string, error) {
	i := strings.LastIndex(msg, "=")
	if i < 0 {
		return "", fmt.Errorf("no address pair in %q", msg)
	}
	parts := strings.Split(strings.TrimSpace(msg[i+1:]), ",")
	if len(parts) != 6 {
		return "", fmt.Errorf("malformed address pair in %q", msg)
	}

	nums := make([]int, 6)
	for j, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return "", fmt.Errorf("malformed octet %q in %q", part, msg)
		}
		nums[j] = n
	}

	host := fmt.Sprintf("%d.%d.%d.%d", nums[0], nums[1], nums[2], nums[3])
	return net.JoinHostPort(host, strconv.Itoa(nums[4]*256+nums[5])), nil
}

// OpenData dials the address a Pasv call returned.
func (c *Client) OpenData(addr string) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, dialTimeout)
}

// Download retrieves path over a fresh passive data connection.
func (c *Client) Download(path string) ([]byte, error) {
	return c.retrieve("RETR " + path)
}

// List fetches a long-format listing of path; pass "" for the working
// directory.
func (c *Client) List(path string) ([]byte, error) {
	cmd := "LIST"
	if path != "" {
		cmd += " " + path
	}
	return c.retrieve(cmd)
}

// Nlst fetches a bare-names listing of path.
func (c *Client) Nlst(path string) ([]byte, error) {
	cmd := "NLST"
	if path != "" {
		cmd += " " + path
	}
	return c.retrieve(cmd)
}

func (c *Client) retrieve(cmd string) ([]byte, error) {
	addr, err := c.Pasv()
	if err != nil {
		return nil, err
	}
	dconn, err := c.OpenData(addr)
	if err != nil {
		return nil, err
	}
	defer dconn.Close()

	code, msg, err := c.Cmd("%s", cmd)
	if err != nil {
		return nil, err
	}
	if code != 150 {
		return nil, &textproto.Error{Code: code, Msg: msg}
	}

	data, err := io.ReadAll(dconn)
	if err != nil {
		return nil, err
	}
	dconn.Close()

	code, msg, err = c.ReadReply()
	if err != nil {
		return nil, err
	}
	if code != 226 {
		return data, &textproto.Error{Code: code, Msg: msg}
	}
	return data, nil
}

// Upload stores data at path over a fresh passive data connection.
func (c *Client) Upload(path string, data []byte) error {
	addr, err := c.Pasv()
	if err != nil {
		return err
	}
	dconn, err := c.OpenData(addr)
	if err != nil {
		return err
	}
	defer dconn.Close()

	code, msg, err := c.Cmd("STOR %s", path)
	if err != nil {
		return err
	}
	if code != 150 {
		return &textproto.Error{Code: code, Msg: msg}
	}

	if _, err := dconn.Write(data); err != nil {
		return err
	}
	dconn.Close()

	code, msg, err = c.ReadReply()
	if err != nil {
		return err
	}
	if code != 226 {
		return &textproto.Error{Code: code, Msg: msg}
	}
	return nil
}
