package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"casino-engine/models"
)

// Client issues admin commands over one TCP connection. Calls are serialized.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
	mu      sync.Mutex
}

func Dial(address string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to reach admin server: %w", err)
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn), timeout: timeout}, nil
}

// Do sends one command and waits for its response line.
func (c *Client) Do(command string, data map[string]interface{}) (models.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := json.Marshal(models.Command{Command: command, Data: data})
	if err != nil {
		return models.Response{}, err
	}
	c.conn.SetDeadline(time.Now().Add(c.timeout))
	if _, err := c.conn.Write(append(payload, '\n')); err != nil {
		return models.Response{}, fmt.Errorf("failed to send command: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return models.Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	var resp models.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return models.Response{}, fmt.Errorf("bad response: %w", err)
	}
	return resp, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
