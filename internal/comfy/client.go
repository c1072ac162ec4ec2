package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/easel-dev/easel/internal/log"
	"github.com/easel-dev/easel/internal/pubsub"
)

var (
	ErrNotConnected = errors.New("comfy: not connected")
	ErrDisconnected = errors.New("comfy: connection lost")
	ErrInterrupted  = errors.New("comfy: execution interrupted")
)

// APIError is a structured backend rejection, typically from POST /prompt
// when the graph fails validation on the backend side.
type APIError struct {
	StatusCode int
	Message    string
	NodeErrors map[string]json.RawMessage
	Raw        string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("comfy: backend rejected request (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("comfy: backend returned status %d", e.StatusCode)
}

// Status is the client-level backend state published on the status broker.
type Status struct {
	Connected      bool
	QueueRemaining int
}

// QueueStatus reports the backend execution queue depth.
type QueueStatus struct {
	Running int
	Pending int
}

// DeviceStats describes one compute device reported by the backend.
type DeviceStats struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	VRAMTotal int64  `json:"vram_total"`
	VRAMFree  int64  `json:"vram_free"`
}

// SystemStats is the backend's self-description from GET /system_stats.
type SystemStats struct {
	OS             string
	ComfyUIVersion string
	PythonVersion  string
	Devices        []DeviceStats
}

// Options configures a Client.
type Options struct {
	// Address is the backend host:port.
	Address string

	// UseTLS switches to https/wss schemes.
	UseTLS bool

	// Timeout bounds individual HTTP requests. Zero means 30s.
	Timeout time.Duration
}

// Client talks to a ComfyUI-compatible backend over HTTP and websocket.
// HTTP methods are safe for concurrent use; Connect/Close pair the
// websocket lifecycle.
type Client struct {
	baseURL  string
	wsURL    string
	clientID string
	http     *http.Client
	status   *pubsub.Broker[Status]

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	jobs      map[string]*Job
	current   string // prompt currently executing, for routing untagged events
	node      string // display name of the node currently executing
	cancel    context.CancelFunc
	writeMu   sync.Mutex // serializes websocket writes (ping loop)
}

// NewClient creates a client for the given backend. No connection is made
// until Connect.
func NewClient(opts Options) *Client {
	scheme, wsScheme := "http", "ws"
	if opts.UseTLS {
		scheme, wsScheme = "https", "wss"
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	clientID := uuid.New().String()
	return &Client{
		baseURL:  scheme + "://" + opts.Address,
		wsURL:    wsScheme + "://" + opts.Address + "/ws?clientId=" + url.QueryEscape(clientID),
		clientID: clientID,
		http:     &http.Client{Timeout: timeout},
		status:   pubsub.NewBroker[Status](),
		jobs:     make(map[string]*Job),
	}
}

// ClientID returns the identifier sent with queued prompts and the
// websocket handshake.
func (c *Client) ClientID() string {
	return c.clientID
}

// BaseURL returns the backend HTTP base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Connected reports whether the websocket session is up.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// StatusEvents subscribes to client status changes (connectivity, queue
// depth reported by the backend).
func (c *Client) StatusEvents(ctx context.Context) <-chan pubsub.Event[Status] {
	return c.status.Subscribe(ctx)
}

// StatusBroker returns the underlying status broker for Bubble Tea
// listener wiring.
func (c *Client) StatusBroker() *pubsub.Broker[Status] {
	return c.status
}

// Connect verifies the backend is reachable, then opens the websocket
// session and starts the event reader. Calling Connect while connected is
// a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	// Reachability check before dialing the socket; also surfaces version
	// info into the debug log.
	stats, err := c.SystemStats(ctx)
	if err != nil {
		return fmt.Errorf("checking backend: %w", err)
	}
	log.Info(log.CatComfy, "Backend reachable",
		"version", stats.ComfyUIVersion, "os", stats.OS, "devices", len(stats.Devices))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dialing websocket: %w", err)
	}

	readCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.cancel = cancel
	c.mu.Unlock()

	log.SafeGo("comfy.readLoop", func() { c.readLoop(readCtx, conn) })
	log.SafeGo("comfy.pingLoop", func() { c.pingLoop(readCtx, conn) })

	c.status.Publish(Status{Connected: true})
	return nil
}

// Close tears down the websocket session. In-flight jobs are completed
// with ErrDisconnected.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.cancel = nil
	wasConnected := c.connected
	c.connected = false
	jobs := c.jobs
	c.jobs = make(map[string]*Job)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, job := range jobs {
		job.complete(ErrDisconnected)
	}
	if wasConnected {
		c.status.Publish(Status{Connected: false})
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// QueuePrompt submits a graph for execution and returns the job handle.
// The backend's validation rejection surfaces as *APIError.
func (c *Client) QueuePrompt(ctx context.Context, g *Graph) (*Job, error) {
	if !c.Connected() {
		return nil, ErrNotConnected
	}

	body, err := json.Marshal(promptRequest{ClientID: c.clientID, Prompt: g})
	if err != nil {
		return nil, fmt.Errorf("encoding prompt: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/prompt", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	var accepted struct {
		PromptID string `json:"prompt_id"`
		Number   int    `json:"number"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return nil, fmt.Errorf("decoding prompt response: %w", err)
	}

	job := newJob(accepted.PromptID, accepted.Number)

	c.mu.Lock()
	c.jobs[accepted.PromptID] = job
	c.mu.Unlock()

	log.Debug(log.CatComfy, "Prompt queued", "promptID", accepted.PromptID, "number", accepted.Number, "nodes", g.Len())
	return job, nil
}

// Interrupt asks the backend to stop the currently executing prompt.
func (c *Client) Interrupt(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/interrupt", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return checkResponse(resp)
}

// History fetches the recorded outputs for a finished prompt.
func (c *Client) History(ctx context.Context, promptID string) (Outputs, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/history/"+url.PathEscape(promptID), nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	// Response shape: {"<prompt_id>": {"outputs": {"<node>": {"images": [...]}}}}
	var entries map[string]struct {
		Outputs map[string]struct {
			Images []ImageRef `json:"images"`
		} `json:"outputs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}

	entry, ok := entries[promptID]
	if !ok {
		return Outputs{}, nil
	}
	outputs := make(Outputs, len(entry.Outputs))
	for node, out := range entry.Outputs {
		if len(out.Images) > 0 {
			outputs[node] = out.Images
		}
	}
	return outputs, nil
}

// QueueStatus reports the backend queue depth from GET /queue.
func (c *Client) QueueStatus(ctx context.Context) (QueueStatus, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/queue", nil)
	if err != nil {
		return QueueStatus{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkResponse(resp); err != nil {
		return QueueStatus{}, err
	}

	var payload struct {
		Running []json.RawMessage `json:"queue_running"`
		Pending []json.RawMessage `json:"queue_pending"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return QueueStatus{}, fmt.Errorf("decoding queue: %w", err)
	}
	return QueueStatus{Running: len(payload.Running), Pending: len(payload.Pending)}, nil
}

// SystemStats fetches the backend's system description.
func (c *Client) SystemStats(ctx context.Context) (*SystemStats, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/system_stats", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	var payload struct {
		System struct {
			OS             string `json:"os"`
			ComfyUIVersion string `json:"comfyui_version"`
			PythonVersion  string `json:"python_version"`
		} `json:"system"`
		Devices []DeviceStats `json:"devices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding system stats: %w", err)
	}
	return &SystemStats{
		OS:             payload.System.OS,
		ComfyUIVersion: payload.System.ComfyUIVersion,
		PythonVersion:  payload.System.PythonVersion,
		Devices:        payload.Devices,
	}, nil
}

// ObjectInfoChoices fetches the declared choice list for one input of a
// node class, e.g. the sampler names of "KSampler" or the checkpoint
// files of "CheckpointLoaderSimple".
func (c *Client) ObjectInfoChoices(ctx context.Context, class, input string) ([]string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/object_info/"+url.PathEscape(class), nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	// Shape: {"<class>": {"input": {"required": {"<input>": [[choices...], {...}]}}}}
	var payload map[string]struct {
		Input struct {
			Required map[string][]json.RawMessage `json:"required"`
			Optional map[string][]json.RawMessage `json:"optional"`
		} `json:"input"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding object info: %w", err)
	}

	info, ok := payload[class]
	if !ok {
		return nil, fmt.Errorf("comfy: class %q not reported by backend", class)
	}
	spec, ok := info.Input.Required[input]
	if !ok {
		spec, ok = info.Input.Optional[input]
	}
	if !ok || len(spec) == 0 {
		return nil, fmt.Errorf("comfy: input %q not declared on class %q", input, class)
	}

	var choices []string
	if err := json.Unmarshal(spec[0], &choices); err != nil {
		return nil, fmt.Errorf("comfy: input %q on class %q has no choice list", input, class)
	}
	return choices, nil
}

// ViewURL returns the backend URL serving an output image.
func (c *Client) ViewURL(ref ImageRef) string {
	q := url.Values{}
	q.Set("filename", ref.Filename)
	q.Set("subfolder", ref.Subfolder)
	q.Set("type", ref.Type)
	return c.baseURL + "/view?" + q.Encode()
}

// doRequest performs an HTTP request against the backend.
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// checkResponse converts non-2xx responses into *APIError.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "failed to read error response"}
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Raw: string(raw)}

	// Prompt validation failures carry a structured error plus per-node
	// detail; fall back to the raw body for anything else.
	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
			Details string `json:"details"`
		} `json:"error"`
		NodeErrors map[string]json.RawMessage `json:"node_errors"`
	}
	if jsonErr := json.Unmarshal(raw, &payload); jsonErr == nil && payload.Error.Message != "" {
		apiErr.Message = payload.Error.Message
		if payload.Error.Details != "" {
			apiErr.Message += ": " + payload.Error.Details
		}
		apiErr.NodeErrors = payload.NodeErrors
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
