package comfy

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/easel-dev/easel/internal/log"
)

// Binary frame layout: 4-byte event type, 4-byte payload format, data.
const (
	wsBinaryHeaderLen   = 8
	wsEventPreviewImage = 1
)

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// readLoop consumes the websocket event stream and routes events to job
// handles. It exits when ctx is cancelled or the connection drops.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				// Close() initiated the teardown; it owns the cleanup.
				log.Debug(log.CatComfy, "Websocket reader stopped")
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.ErrorErr(log.CatComfy, "Websocket read failed", err)
				} else {
					log.Debug(log.CatComfy, "Websocket closed", "reason", err.Error())
				}
				c.handleDisconnect()
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			c.handleTextMessage(data)
		case websocket.BinaryMessage:
			c.handleBinaryMessage(data)
		}
	}
}

// pingLoop keeps the connection alive with periodic pings.
func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// handleDisconnect marks the client disconnected after an unexpected read
// failure and fails all in-flight jobs.
func (c *Client) handleDisconnect() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.conn = nil
	cancel := c.cancel
	c.cancel = nil
	jobs := c.jobs
	c.jobs = make(map[string]*Job)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, job := range jobs {
		job.complete(ErrDisconnected)
	}
	c.status.Publish(Status{Connected: false})
}

func (c *Client) handleTextMessage(data []byte) {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Debug(log.CatComfy, "Unparseable websocket message", "error", err.Error())
		return
	}

	switch msg.Type {
	case "status":
		var payload struct {
			Status struct {
				ExecInfo struct {
					QueueRemaining int `json:"queue_remaining"`
				} `json:"exec_info"`
			} `json:"status"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return
		}
		c.status.Publish(Status{Connected: true, QueueRemaining: payload.Status.ExecInfo.QueueRemaining})

	case "execution_start":
		var payload struct {
			PromptID string `json:"prompt_id"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return
		}
		c.mu.Lock()
		c.current = payload.PromptID
		c.node = ""
		c.mu.Unlock()
		log.Debug(log.CatComfy, "Execution started", "promptID", payload.PromptID)

	case "executing":
		var payload struct {
			Node     *string `json:"node"`
			PromptID string  `json:"prompt_id"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return
		}
		if payload.Node == nil {
			// A null node means the prompt finished executing.
			if job := c.takeJob(payload.PromptID); job != nil {
				log.Debug(log.CatComfy, "Execution finished", "promptID", payload.PromptID)
				job.complete(nil)
			}
			c.mu.Lock()
			if c.current == payload.PromptID {
				c.current = ""
				c.node = ""
			}
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		c.current = payload.PromptID
		c.node = *payload.Node
		c.mu.Unlock()

	case "progress":
		var payload struct {
			Value    int    `json:"value"`
			Max      int    `json:"max"`
			PromptID string `json:"prompt_id"`
			Node     string `json:"node"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return
		}
		job, node := c.currentJob(payload.PromptID)
		if job == nil {
			return
		}
		if payload.Node != "" {
			node = payload.Node
		}
		job.publishProgress(Progress{Value: payload.Value, Max: payload.Max, Node: node})

	case "executed":
		var payload struct {
			Node     string `json:"node"`
			PromptID string `json:"prompt_id"`
			Output   struct {
				Images []ImageRef `json:"images"`
			} `json:"output"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return
		}
		if job := c.lookupJob(payload.PromptID); job != nil && len(payload.Output.Images) > 0 {
			job.addOutput(payload.Node, payload.Output.Images)
		}

	case "execution_error":
		var payload struct {
			PromptID         string `json:"prompt_id"`
			NodeID           string `json:"node_id"`
			NodeType         string `json:"node_type"`
			ExceptionMessage string `json:"exception_message"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return
		}
		if job := c.takeJob(payload.PromptID); job != nil {
			job.complete(fmt.Errorf("comfy: node %s (%s) failed: %s",
				payload.NodeID, payload.NodeType, payload.ExceptionMessage))
		}

	case "execution_interrupted":
		var payload struct {
			PromptID string `json:"prompt_id"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return
		}
		if job := c.takeJob(payload.PromptID); job != nil {
			log.Debug(log.CatComfy, "Execution interrupted", "promptID", payload.PromptID)
			job.complete(ErrInterrupted)
		}

	default:
		// execution_cached and friends carry nothing we track
		log.Debug(log.CatComfy, "Ignoring websocket message", "type", msg.Type)
	}
}

// handleBinaryMessage routes preview frames to the executing job. Frames
// carry an 8-byte header (event type, payload format) ahead of the image
// bytes.
func (c *Client) handleBinaryMessage(data []byte) {
	if len(data) < wsBinaryHeaderLen {
		return
	}
	eventType := binary.BigEndian.Uint32(data[:4])
	if eventType != wsEventPreviewImage {
		return
	}
	job, _ := c.currentJob("")
	if job == nil {
		return
	}
	frame := make([]byte, len(data)-wsBinaryHeaderLen)
	copy(frame, data[wsBinaryHeaderLen:])
	job.publishPreview(frame)
}

// currentJob resolves the job for an event, preferring an explicit prompt
// ID and falling back to the prompt currently marked executing. The second
// return value is the display name of the executing node.
func (c *Client) currentJob(promptID string) (*Job, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id := promptID
	if id == "" {
		id = c.current
	}
	return c.jobs[id], c.node
}

// lookupJob returns the registered job for a prompt ID, or nil.
func (c *Client) lookupJob(promptID string) *Job {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jobs[promptID]
}

// takeJob removes and returns the registered job for a prompt ID, or nil.
// Used for terminal events so late stragglers don't resurrect the entry.
func (c *Client) takeJob(promptID string) *Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	job := c.jobs[promptID]
	delete(c.jobs, promptID)
	return job
}
